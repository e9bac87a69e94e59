package docstore

// Op is a filter operator understood by the backends.
type Op string

// Filter operators
const (
	OpEqual          Op = "=="
	OpNotEqual       Op = "!="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
	OpIn             Op = "in"
	OpNotIn          Op = "not-in"
)

// Condition is a single (field, operator, value) filter.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Condition.
func Where(field string, op Op, value any) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// FindOptions composes a query: zero or more conditions, an optional result
// limit, and zero or more ascending order fields applied in array order.
// Regardless of composition order, execution is filter, then sort, then
// limit, so a limited ordered query returns the first documents of the
// sorted filtered set.
type FindOptions struct {
	Conditions []Condition
	Limit      int
	OrderBy    []string
}
