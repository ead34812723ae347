package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/seantiz/forge/internal/engine"
	"github.com/seantiz/forge/internal/model"
	"github.com/seantiz/forge/internal/stats"
)

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(data))
}

func submit(t *testing.T, baseURL string, kind stats.Kind, body string) int {
	t.Helper()
	resp, data := postJSON(t, baseURL+"/api/"+string(kind), body)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("POST %s status = %d, want 202: %s", kind, resp.StatusCode, data)
	}
	var sr submitResponse
	if err := json.Unmarshal(data, &sr); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	if sr.Status != "success" {
		t.Errorf("status = %q, want success", sr.Status)
	}
	return sr.JobID
}

// waitForResult polls get_results until the job leaves running and
// not_found, returning the final status code and body.
func waitForResult(t *testing.T, baseURL string, id int) (int, string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		code, body := get(t, fmt.Sprintf("%s/api/get_results/%d", baseURL, id))
		if code != http.StatusNotFound && body != `{"status":"running"}` {
			return code, body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %d did not finish", id)
	return 0, ""
}

func TestSubmitAndGetStateMean(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	id := submit(t, ts.URL, stats.KindStateMean, fmt.Sprintf(`{"question":%q,"state":"Ohio"}`, minQuestion))
	if id != 1 {
		t.Errorf("job_id = %d, want 1", id)
	}

	code, body := waitForResult(t, ts.URL, id)
	if code != http.StatusOK {
		t.Errorf("status = %d, want 200", code)
	}
	if want := `{"status":"done","data":{"Ohio":20}}`; body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestResultKeepsPayloadOrder(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	id := submit(t, ts.URL, stats.KindStatesMean, fmt.Sprintf(`{"question":%q}`, minQuestion))
	_, body := waitForResult(t, ts.URL, id)
	if want := `{"status":"done","data":{"Texas":5,"Ohio":20}}`; body != want {
		t.Errorf("body = %s, want %s", body, want)
	}

	id = submit(t, ts.URL, stats.KindStateMeanByCategory, fmt.Sprintf(`{"question":%q,"state":"Ohio"}`, minQuestion))
	_, body = waitForResult(t, ts.URL, id)
	if want := `{"status":"done","data":{"Ohio":{"('Sex', 'Female')":20,"('Sex', 'Male')":20}}}`; body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestValidationErrorsUseHint(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	tests := []struct {
		kind stats.Kind
		body string
		want string
	}{
		{stats.KindBest5, `{"question":"How tall is Ohio?"}`, `{"status":"done","data":{"status":"error","message":"Invalid question"}}`},
		{stats.KindGlobalMean, `{}`, `{"status":"done","data":{"status":"error","message":"Invalid question"}}`},
		{stats.KindStateMean, fmt.Sprintf(`{"question":%q}`, minQuestion), `{"status":"done","data":{"status":"error","message":"State not specified"}}`},
	}

	for _, tt := range tests {
		id := submit(t, ts.URL, tt.kind, tt.body)
		code, body := waitForResult(t, ts.URL, id)
		if code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.kind, code)
		}
		if body != tt.want {
			t.Errorf("%s: body = %s, want %s", tt.kind, body, tt.want)
		}
	}
}

func TestSubmitInvalidJSON(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	resp, data := postJSON(t, ts.URL+"/api/best5", "not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var te model.TaskError
	if err := json.Unmarshal(data, &te); err != nil || te.Message == "" {
		t.Errorf("expected error message in response, got %s", data)
	}
}

func TestGetResultsUnknownAndBadID(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	code, body := get(t, ts.URL+"/api/get_results/42")
	if code != http.StatusNotFound || body != `{"status":"not_found"}` {
		t.Errorf("unknown id: %d %s", code, body)
	}

	code, _ = get(t, ts.URL+"/api/get_results/abc")
	if code != http.StatusBadRequest {
		t.Errorf("bad id: status = %d, want 400", code)
	}
}

func TestGetResultsRunningAndFailed(t *testing.T) {
	p := newTestPool(t)
	ts := httptest.NewServer(newServerWithPool(t, p).Router())
	defer ts.Close()

	started := make(chan struct{})
	release := make(chan struct{})
	running := p.Submit(engine.TaskFunc(func() (model.Outcome, error) {
		close(started)
		<-release
		return model.Success(model.Payload{}), nil
	}))
	failing := p.Submit(engine.TaskFunc(func() (model.Outcome, error) {
		return model.Outcome{}, errors.New("boom")
	}))

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-started

	code, body := get(t, fmt.Sprintf("%s/api/get_results/%d", ts.URL, running))
	if code != http.StatusOK || body != `{"status":"running"}` {
		t.Errorf("running job: %d %s", code, body)
	}

	code, body = waitForResult(t, ts.URL, failing)
	if code != http.StatusInternalServerError || body != `{"status":"failed","error":"boom"}` {
		t.Errorf("failed job: %d %s", code, body)
	}

	close(release)
	code, body = waitForResult(t, ts.URL, running)
	if code != http.StatusOK || body != `{"status":"done","data":{}}` {
		t.Errorf("done job: %d %s", code, body)
	}
}

func TestListJobsSortedByID(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	for range 5 {
		submit(t, ts.URL, stats.KindGlobalMean, fmt.Sprintf(`{"question":%q}`, minQuestion))
	}
	for id := 1; id <= 5; id++ {
		waitForResult(t, ts.URL, id)
	}

	code, body := get(t, ts.URL+"/api/jobs")
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	var resp listJobsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || len(resp.Jobs) != 5 {
		t.Fatalf("response = %+v", resp)
	}
	for i, j := range resp.Jobs {
		if j.ID != i+1 || j.Status != model.StatusDone {
			t.Errorf("jobs[%d] = %+v", i, j)
		}
	}
}

func TestListJobsEmpty(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	_, body := get(t, ts.URL+"/api/jobs")
	if body != `{"status":"success","jobs":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestNumJobsCountsUnclaimed(t *testing.T) {
	p := newTestPool(t)
	ts := httptest.NewServer(newServerWithPool(t, p).Router())
	defer ts.Close()

	for range 3 {
		submit(t, ts.URL, stats.KindBest5, fmt.Sprintf(`{"question":%q}`, maxQuestion))
	}

	_, body := get(t, ts.URL+"/api/num_jobs")
	if body != `{"status":"success","remaining_jobs":3}` {
		t.Errorf("body = %s", body)
	}
	code, _ := get(t, ts.URL+"/api/get_results/1")
	if code != http.StatusNotFound {
		t.Errorf("unclaimed job status = %d, want 404", code)
	}

	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for id := 1; id <= 3; id++ {
		waitForResult(t, ts.URL, id)
	}
	_, body = get(t, ts.URL+"/api/num_jobs")
	if body != `{"status":"success","remaining_jobs":0}` {
		t.Errorf("body = %s", body)
	}
}

func TestGracefulShutdown(t *testing.T) {
	p := newTestPool(t)
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ts := httptest.NewServer(newServerWithPool(t, p).Router())
	defer ts.Close()

	code, body := get(t, ts.URL+"/api/graceful_shutdown")
	if code != http.StatusOK || body != `{"status":"success"}` {
		t.Fatalf("graceful_shutdown: %d %s", code, body)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !p.Stopped() {
		if time.Now().After(deadline) {
			t.Fatal("pool did not stop")
		}
		time.Sleep(5 * time.Millisecond)
	}

	id := submit(t, ts.URL, stats.KindGlobalMean, fmt.Sprintf(`{"question":%q}`, minQuestion))
	if id != 1 {
		t.Errorf("job_id = %d, want 1", id)
	}
	time.Sleep(50 * time.Millisecond)
	if code, _ := get(t, ts.URL+"/api/get_results/1"); code != http.StatusNotFound {
		t.Errorf("job after shutdown: status = %d, want 404", code)
	}

	_, body = get(t, ts.URL+"/healthz")
	if !strings.Contains(body, `"pool":"stopped"`) {
		t.Errorf("healthz = %s", body)
	}
}

func TestEcho(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	resp, data := postJSON(t, ts.URL+"/api/post_endpoint", `{"a":[1,2]}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if got := strings.TrimSpace(string(data)); got != `{"message":"Received data successfully","data":{"a":[1,2]}}` {
		t.Errorf("body = %s", got)
	}
}

func TestListKinds(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	_, body := get(t, ts.URL+"/api/kinds")
	var resp listKindsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Kinds) != 9 {
		t.Fatalf("got %d kinds, want 9", len(resp.Kinds))
	}
	needsState := 0
	for _, k := range resp.Kinds {
		if k.NeedsState {
			needsState++
		}
	}
	if needsState != 3 {
		t.Errorf("%d kinds need a state, want 3", needsState)
	}
}

func TestGetStats(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	submit(t, ts.URL, stats.KindBest5, fmt.Sprintf(`{"question":%q}`, minQuestion))
	submit(t, ts.URL, stats.KindBest5, `{"question":"nope"}`)
	waitForResult(t, ts.URL, 1)
	waitForResult(t, ts.URL, 2)

	_, body := get(t, ts.URL+"/api/stats")
	var resp statsResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || resp.ByStatus[model.StatusDone] != 2 {
		t.Errorf("stats = %+v", resp)
	}
	if resp.Workers != 2 || resp.Pending != 0 || resp.Stopped {
		t.Errorf("stats = %+v", resp)
	}
	if resp.RunID != srv.pool.RunID() {
		t.Errorf("run_id = %q, want %q", resp.RunID, srv.pool.RunID())
	}
	if resp.Rows != len(testRows()) {
		t.Errorf("dataset_rows = %d, want %d", resp.Rows, len(testRows()))
	}
}

func TestIndexListsRoutes(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Router())
	defer ts.Close()

	for _, path := range []string{"/", "/index"} {
		code, body := get(t, ts.URL+path)
		if code != http.StatusOK {
			t.Errorf("%s: status = %d", path, code)
		}
		for _, want := range []string{"Hello, World!", "<p>POST /api/best5</p>", "<p>GET /api/get_results/{job_id}</p>"} {
			if !strings.Contains(body, want) {
				t.Errorf("%s: body missing %q", path, want)
			}
		}
	}
}
