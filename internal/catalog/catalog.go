// Package catalog holds the classification vocabulary: each dimension has a
// closed, ordered set of allowed values. The catalog is seed data; there are
// no mutation operations.
package catalog

// Unassigned is the display value stats reads coalesce to when a note has no
// value for a dimension. It is never written to storage.
const Unassigned = "Unassigned"

type Dimension struct {
	Name   string
	Values []string
}

var dimensions = []Dimension{
	{Name: "Status", Values: []string{"Todo", "In Progress", "Done"}},
	{Name: "Priority", Values: []string{"Low", "Medium", "High"}},
	{Name: "Context", Values: []string{"Work", "Home", "Hobby"}},
}

// Dimensions returns the full vocabulary in presentation order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	for i, d := range dimensions {
		values := make([]string, len(d.Values))
		copy(values, d.Values)
		out[i] = Dimension{Name: d.Name, Values: values}
	}
	return out
}

// Valid reports whether value is an allowed value for dimension.
func Valid(dimension, value string) bool {
	for _, d := range dimensions {
		if d.Name != dimension {
			continue
		}
		for _, v := range d.Values {
			if v == value {
				return true
			}
		}
		return false
	}
	return false
}

// HasDimension reports whether the catalog defines the named dimension.
func HasDimension(dimension string) bool {
	for _, d := range dimensions {
		if d.Name == dimension {
			return true
		}
	}
	return false
}
