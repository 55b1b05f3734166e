package pipeline

import (
	"github.com/geostrata/categorize/internal/core/model"
	"github.com/geostrata/categorize/internal/query"
)

// Plan describes one category partition: the division-subset selection
// criterion and the scratch artifacts it owns. Plans are independent of each
// other; they share only the accumulation artifact they all feed.
type Plan struct {
	Category         model.Value
	Predicate        query.Predicate
	DivisionArtifact string
	SliceArtifact    string
}

// BuildPlans maps the category universe onto ordered partition plans. Pure:
// same namespace and categories yield the same plans.
func BuildPlans(ns Namespace, divisionField string, categories []model.Value) []Plan {
	plans := make([]Plan, 0, len(categories))
	for i, c := range categories {
		plans = append(plans, Plan{
			Category:         c,
			Predicate:        query.Equals(divisionField, c),
			DivisionArtifact: ns.Division(i),
			SliceArtifact:    ns.Slice(i),
		})
	}
	return plans
}
