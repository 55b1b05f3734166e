// Package query builds and evaluates the attribute predicates used to carve
// division subsets out of the division dataset.
package query

import (
	"fmt"

	"github.com/geostrata/categorize/internal/core/model"
)

// Predicate is an equality filter over a single attribute field. Rendering
// to text follows the per-kind quoting rules of model.Value; evaluation
// never goes through the text form.
type Predicate struct {
	Field string
	Value model.Value
}

func Equals(field string, v model.Value) Predicate {
	return Predicate{Field: field, Value: v}
}

// String renders the canonical filter expression, e.g. `region = 'North'`.
func (p Predicate) String() string {
	return fmt.Sprintf("%s = %s", p.Field, p.Value.Literal())
}

// Match reports whether the feature's field equals the predicate value.
// Null never matches.
func (p Predicate) Match(f model.Feature) bool {
	if p.Value.IsNull() {
		return false
	}
	return f.Attr(p.Field).Equal(p.Value)
}
