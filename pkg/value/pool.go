package value

// MaxConstants is the number of literals a single chunk may hold. Every index
// below it fits the one-byte operand of OpConstant.
const MaxConstants = 255

// Pool is the append-only table of literal values referenced by index from
// OpConstant. Entries are never deduplicated.
type Pool struct {
	values []Value
}

// Add appends v and returns its index.
func (p *Pool) Add(v Value) int {
	p.values = append(p.values, v)
	return len(p.values) - 1
}

// At returns the value at index i and whether it exists.
func (p *Pool) At(i int) (Value, bool) {
	if i < 0 || i >= len(p.values) {
		return Nil, false
	}
	return p.values[i], true
}

// Len returns the number of entries.
func (p *Pool) Len() int { return len(p.values) }

// Values returns the backing slice. Callers must not modify it.
func (p *Pool) Values() []Value { return p.values }
