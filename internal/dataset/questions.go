package dataset

// Policy says which end of the value range is the good one for a question.
type Policy int

const (
	// BestIsMin marks questions where a lower percentage is better.
	BestIsMin Policy = iota + 1
	// BestIsMax marks questions where a higher percentage is better.
	BestIsMax
)

func (p Policy) String() string {
	switch p {
	case BestIsMin:
		return "best_is_min"
	case BestIsMax:
		return "best_is_max"
	default:
		return "unknown"
	}
}

// Questions where a lower value is better.
var QuestionsBestIsMin = []string{
	"Percent of adults aged 18 years and older who have an overweight classification",
	"Percent of adults aged 18 years and older who have obesity",
	"Percent of adults who engage in no leisure-time physical activity",
	"Percent of adults who report consuming fruit less than one time daily",
	"Percent of adults who report consuming vegetables less than one time daily",
}

// Questions where a higher value is better.
var QuestionsBestIsMax = []string{
	"Percent of adults who achieve at least 150 minutes a week of moderate-intensity aerobic physical activity or 75 minutes a week of vigorous-intensity aerobic activity (or an equivalent combination)",
	"Percent of adults who achieve at least 150 minutes a week of moderate-intensity aerobic physical activity or 75 minutes a week of vigorous-intensity aerobic physical activity and engage in muscle-strengthening activities on 2 or more days a week",
	"Percent of adults who achieve at least 300 minutes a week of moderate-intensity aerobic physical activity or 150 minutes a week of vigorous-intensity aerobic activity (or an equivalent combination)",
	"Percent of adults who engage in muscle-strengthening activities on 2 or more days a week",
}

var policies = func() map[string]Policy {
	m := make(map[string]Policy, len(QuestionsBestIsMin)+len(QuestionsBestIsMax))
	for _, q := range QuestionsBestIsMin {
		m[q] = BestIsMin
	}
	for _, q := range QuestionsBestIsMax {
		m[q] = BestIsMax
	}
	return m
}()

// PolicyFor returns the ranking policy of a known question. The boolean is
// false for questions outside both allow-lists.
func PolicyFor(question string) (Policy, bool) {
	p, ok := policies[question]
	return p, ok
}
