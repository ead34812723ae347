package stats

import (
	"fmt"
	"sort"

	"github.com/seantiz/forge/internal/dataset"
	"github.com/seantiz/forge/internal/model"
)

// topN is how many states best5/worst5 keep.
const topN = 5

// group accumulates a running mean over rows that carry a value.
type group struct {
	sum float64
	n   int
}

func (g *group) add(r dataset.Row) {
	if r.HasValue {
		g.sum += r.Value
		g.n++
	}
}

func (g group) mean() (float64, bool) {
	if g.n == 0 {
		return 0, false
	}
	return g.sum / float64(g.n), true
}

// value is the mean as a payload value; an empty group encodes as null.
func (g group) value() any {
	m, ok := g.mean()
	if !ok {
		return nil
	}
	return m
}

type stateMean struct {
	state string
	mean  float64
	ok    bool
}

// stateMeansInFileOrder groups rows by state and returns one mean per state,
// in the order states first appear in rows.
func stateMeansInFileOrder(rows []dataset.Row) []stateMean {
	groups := make(map[string]*group)
	var order []string
	for _, r := range rows {
		g, ok := groups[r.State]
		if !ok {
			g = &group{}
			groups[r.State] = g
			order = append(order, r.State)
		}
		g.add(r)
	}

	out := make([]stateMean, 0, len(order))
	for _, state := range order {
		m, ok := groups[state].mean()
		out = append(out, stateMean{state: state, mean: m, ok: ok})
	}
	return out
}

// stateMeans returns one mean per state, ordered by state name.
func stateMeans(rows []dataset.Row) []stateMean {
	out := stateMeansInFileOrder(rows)
	sort.Slice(out, func(i, j int) bool { return out[i].state < out[j].state })
	return out
}

// sortByMean orders by mean, keeping name order for ties. States without a
// mean go last.
func sortByMean(ms []stateMean, descending bool) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.ok != b.ok {
			return a.ok
		}
		if descending {
			return a.mean > b.mean
		}
		return a.mean < b.mean
	})
}

func toPayload(ms []stateMean) model.Payload {
	p := make(model.Payload, 0, len(ms))
	for _, m := range ms {
		var v any
		if m.ok {
			v = m.mean
		}
		p = append(p, model.Entry{Key: m.state, Value: v})
	}
	return p
}

func overall(rows []dataset.Row) group {
	var g group
	for _, r := range rows {
		g.add(r)
	}
	return g
}

func ofState(rows []dataset.Row, state string) group {
	var g group
	for _, r := range rows {
		if r.State == state {
			g.add(r)
		}
	}
	return g
}

func reduceStatesMean(rows []dataset.Row, _ Query, _ dataset.Policy) model.Payload {
	ms := stateMeans(rows)
	sortByMean(ms, false)
	return toPayload(ms)
}

func reduceStateMean(rows []dataset.Row, q Query, _ dataset.Policy) model.Payload {
	return model.Payload{{Key: q.State, Value: ofState(rows, q.State).value()}}
}

func reduceBest5(rows []dataset.Row, _ Query, policy dataset.Policy) model.Payload {
	ms := stateMeans(rows)
	sortByMean(ms, policy == dataset.BestIsMax)
	return toPayload(head(ms, topN))
}

func reduceWorst5(rows []dataset.Row, _ Query, policy dataset.Policy) model.Payload {
	ms := stateMeans(rows)
	sortByMean(ms, policy == dataset.BestIsMin)
	return toPayload(head(ms, topN))
}

func reduceGlobalMean(rows []dataset.Row, _ Query, _ dataset.Policy) model.Payload {
	return model.Payload{{Key: "global_mean", Value: overall(rows).value()}}
}

func reduceDiffFromMean(rows []dataset.Row, _ Query, _ dataset.Policy) model.Payload {
	global, globalOK := overall(rows).mean()
	// Ties keep dataset order rather than name order.
	ms := stateMeansInFileOrder(rows)
	for i := range ms {
		ms[i].mean = global - ms[i].mean
		ms[i].ok = ms[i].ok && globalOK
	}
	sortByMean(ms, true)
	return toPayload(ms)
}

func reduceStateDiffFromMean(rows []dataset.Row, q Query, _ dataset.Policy) model.Payload {
	global, globalOK := overall(rows).mean()
	state, stateOK := ofState(rows, q.State).mean()
	var v any
	if globalOK && stateOK {
		v = global - state
	}
	return model.Payload{{Key: q.State, Value: v}}
}

func reduceMeanByCategory(rows []dataset.Row, _ Query, _ dataset.Policy) model.Payload {
	groups := make(map[[3]string]*group)
	for _, r := range rows {
		if r.State == "" || r.Category == "" || r.Segment == "" {
			continue
		}
		key := [3]string{r.State, r.Category, r.Segment}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.add(r)
	}

	keys := make([][3]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessTuple(keys[i][:], keys[j][:]) })

	p := make(model.Payload, 0, len(keys))
	for _, k := range keys {
		p = append(p, model.Entry{Key: tupleKey(k[:]...), Value: groups[k].value()})
	}
	return p
}

func reduceStateMeanByCategory(rows []dataset.Row, q Query, _ dataset.Policy) model.Payload {
	groups := make(map[[2]string]*group)
	for _, r := range rows {
		if r.State != q.State || r.Category == "" || r.Segment == "" {
			continue
		}
		key := [2]string{r.Category, r.Segment}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.add(r)
	}

	keys := make([][2]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessTuple(keys[i][:], keys[j][:]) })

	inner := make(model.Payload, 0, len(keys))
	for _, k := range keys {
		inner = append(inner, model.Entry{Key: tupleKey(k[:]...), Value: groups[k].value()})
	}
	return model.Payload{{Key: q.State, Value: inner}}
}

func head(ms []stateMean, n int) []stateMean {
	if len(ms) > n {
		return ms[:n]
	}
	return ms
}

func lessTuple(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// tupleKey renders a grouping key in tuple form, e.g. ('Ohio', 'Sex', 'Male').
func tupleKey(parts ...string) string {
	s := "("
	for i, p := range parts {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("'%s'", p)
	}
	return s + ")"
}
