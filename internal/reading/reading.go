package reading

// Reading is one parsed record: one value per schema field, in schema
// order. It is never mutated after Parse returns it.
type Reading struct {
	values []float64
}

// New builds a Reading from values. The slice is copied.
func New(values ...float64) Reading {
	return Reading{values: append([]float64(nil), values...)}
}

// Len returns the number of values.
func (r Reading) Len() int {
	return len(r.values)
}

// At returns value i.
func (r Reading) At(i int) float64 {
	return r.values[i]
}

// Values returns a copy of the values.
func (r Reading) Values() []float64 {
	return append([]float64(nil), r.values...)
}
