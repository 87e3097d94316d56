// Package filter defines field conditions accepted by list endpoints.
package filter

// ComparisonType is a comparison operator.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"
	NotEqual       ComparisonType = "neq"
	Less           ComparisonType = "lt"
	Greater        ComparisonType = "gt"
	LessOrEqual    ComparisonType = "lte"
	GreaterOrEqual ComparisonType = "gte"
	InList         ComparisonType = "in"
	NotInList      ComparisonType = "nin"
	Contains       ComparisonType = "contains"  // ILIKE %val%
	NotContains    ComparisonType = "ncontains" // NOT ILIKE %val%
	IsNull         ComparisonType = "null"
	IsNotNull      ComparisonType = "not_null"
)

// Item is one condition.
type Item struct {
	Field    string         `json:"field"`    // snake_case column name
	Operator ComparisonType `json:"operator"`
	Value    any            `json:"value"`
}

// Eq builds an equality condition.
func Eq(field string, value any) Item {
	return Item{Field: field, Operator: Equal, Value: value}
}
