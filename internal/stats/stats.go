package stats

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/seantiz/forge/internal/dataset"
	"github.com/seantiz/forge/internal/model"
)

// Kind names one statistic. Kinds double as the route suffix under /api/.
type Kind string

// Supported kinds.
const (
	KindStatesMean          Kind = "states_mean"
	KindStateMean           Kind = "state_mean"
	KindBest5               Kind = "best5"
	KindWorst5              Kind = "worst5"
	KindGlobalMean          Kind = "global_mean"
	KindDiffFromMean        Kind = "diff_from_mean"
	KindStateDiffFromMean   Kind = "state_diff_from_mean"
	KindMeanByCategory      Kind = "mean_by_category"
	KindStateMeanByCategory Kind = "state_mean_by_category"
)

// Validation messages returned inside the job result.
const (
	MsgInvalidQuestion   = "Invalid question"
	MsgStateNotSpecified = "State not specified"
)

// ErrUnknownKind is returned when building a task for an unregistered kind.
var ErrUnknownKind = errors.New("unknown statistic kind")

// ErrNoDataset is the execution fault raised by a task built without data.
var ErrNoDataset = errors.New("dataset not loaded")

// Query carries the client parameters of one request.
type Query struct {
	Kind     Kind   `json:"kind"`
	Question string `json:"question"`
	State    string `json:"state,omitempty"`
}

// Reducer computes a payload from the rows answering the query's question.
type Reducer func(rows []dataset.Row, q Query, policy dataset.Policy) model.Payload

// Computation describes one kind: whether it is scoped to a state, and how
// to reduce rows into a payload.
type Computation struct {
	Kind        Kind
	NeedsState  bool
	Description string
	Reduce      Reducer
}

// KindInfo is the public description of a registered computation.
type KindInfo struct {
	Kind        Kind   `json:"kind"`
	NeedsState  bool   `json:"needs_state"`
	Description string `json:"description"`
}

// Registry maps kinds to computations.
type Registry struct {
	mu    sync.RWMutex
	kinds map[Kind]Computation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[Kind]Computation)}
}

// DefaultRegistry returns a registry holding every built-in statistic.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range builtins {
		r.Register(c)
	}
	return r
}

var builtins = []Computation{
	{Kind: KindStatesMean, Description: "mean per state, ascending", Reduce: reduceStatesMean},
	{Kind: KindStateMean, NeedsState: true, Description: "mean for one state", Reduce: reduceStateMean},
	{Kind: KindBest5, Description: "five best states", Reduce: reduceBest5},
	{Kind: KindWorst5, Description: "five worst states", Reduce: reduceWorst5},
	{Kind: KindGlobalMean, Description: "mean over all rows", Reduce: reduceGlobalMean},
	{Kind: KindDiffFromMean, Description: "global mean minus each state mean, descending", Reduce: reduceDiffFromMean},
	{Kind: KindStateDiffFromMean, NeedsState: true, Description: "global mean minus one state mean", Reduce: reduceStateDiffFromMean},
	{Kind: KindMeanByCategory, Description: "mean per state and stratification", Reduce: reduceMeanByCategory},
	{Kind: KindStateMeanByCategory, NeedsState: true, Description: "mean per stratification for one state", Reduce: reduceStateMeanByCategory},
}

// Register adds or replaces a computation.
func (r *Registry) Register(c Computation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[c.Kind] = c
}

// Lookup returns the computation registered for kind.
func (r *Registry) Lookup(kind Kind) (Computation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.kinds[kind]
	if !ok {
		return Computation{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return c, nil
}

// List returns every registered kind sorted by name for a stable API response.
func (r *Registry) List() []KindInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]KindInfo, 0, len(r.kinds))
	for _, c := range r.kinds {
		infos = append(infos, KindInfo{
			Kind:        c.Kind,
			NeedsState:  c.NeedsState,
			Description: c.Description,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Kind < infos[j].Kind
	})
	return infos
}

// NewTask builds a task answering q over data.
func (r *Registry) NewTask(q Query, data *dataset.Dataset) (*Task, error) {
	c, err := r.Lookup(q.Kind)
	if err != nil {
		return nil, err
	}
	return &Task{query: q, comp: c, data: data}, nil
}

// Task is one statistic request bound to the shared dataset. It holds no
// mutable state, so any number of tasks may execute concurrently.
type Task struct {
	query Query
	comp  Computation
	data  *dataset.Dataset
}

// Kind returns the statistic the task computes.
func (t *Task) Kind() string {
	return string(t.query.Kind)
}

// Query returns the parameters the task was built with.
func (t *Task) Query() Query {
	return t.query
}

// Execute validates the parameters and reduces the dataset. Invalid
// parameters produce a validation outcome, not an error.
func (t *Task) Execute() (model.Outcome, error) {
	policy, ok := dataset.PolicyFor(t.query.Question)
	if !ok {
		return model.Invalid(MsgInvalidQuestion), nil
	}
	if t.comp.NeedsState && t.query.State == "" {
		return model.Invalid(MsgStateNotSpecified), nil
	}
	if t.data == nil {
		return model.Outcome{}, ErrNoDataset
	}
	return model.Success(t.comp.Reduce(t.data.Rows(t.query.Question), t.query, policy)), nil
}
