package erpnext

import "encoding/json"

// Filter is a single named predicate against a document field. Frappe's
// resource API takes filters as loose [field, operator, value] arrays;
// these constructors keep the operator set closed and the construction
// typed.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Filters accumulates predicates for a list query. The zero value is ready
// to use and chainable.
type Filters []Filter

func (f Filters) where(field, op string, value any) Filters {
	return append(f, Filter{Field: field, Op: op, Value: value})
}

// Eq matches field = value.
func (f Filters) Eq(field string, value any) Filters { return f.where(field, "=", value) }

// Gt matches field > value.
func (f Filters) Gt(field string, value any) Filters { return f.where(field, ">", value) }

// Gte matches field >= value.
func (f Filters) Gte(field string, value any) Filters { return f.where(field, ">=", value) }

// Lt matches field < value.
func (f Filters) Lt(field string, value any) Filters { return f.where(field, "<", value) }

// Lte matches field <= value.
func (f Filters) Lte(field string, value any) Filters { return f.where(field, "<=", value) }

// In matches field against any of the given values.
func (f Filters) In(field string, values ...string) Filters { return f.where(field, "in", values) }

// IsNotSet matches documents where field is empty.
func (f Filters) IsNotSet(field string) Filters { return f.where(field, "is", "not set") }

// MarshalJSON serializes to Frappe's triplet-array wire shape.
func (f Filters) MarshalJSON() ([]byte, error) {
	triplets := make([][]any, 0, len(f))
	for _, flt := range f {
		triplets = append(triplets, []any{flt.Field, flt.Op, flt.Value})
	}
	return json.Marshal(triplets)
}
