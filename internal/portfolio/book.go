package portfolio

// Book holds open positions in entry order
type Book struct {
	positions []*OpenPosition
}

// NewBook creates an empty book
func NewBook() *Book {
	return &Book{}
}

// Open appends a position
func (b *Book) Open(op *OpenPosition) {
	b.positions = append(b.positions, op)
}

// Len returns the number of open positions
func (b *Book) Len() int {
	return len(b.positions)
}

// Positions returns open positions oldest first. The slice must not be
// modified by the caller.
func (b *Book) Positions() []*OpenPosition {
	return b.positions
}

// TotalAsset sums the asset held across positions
func (b *Book) TotalAsset() float64 {
	total := 0.0
	for _, op := range b.positions {
		total += op.AssetAmount
	}
	return total
}

// Remove drops the given positions, keeping the order of the rest
func (b *Book) Remove(closed []*OpenPosition) {
	if len(closed) == 0 {
		return
	}
	drop := make(map[*OpenPosition]struct{}, len(closed))
	for _, op := range closed {
		drop[op] = struct{}{}
	}
	kept := b.positions[:0]
	for _, op := range b.positions {
		if _, ok := drop[op]; !ok {
			kept = append(kept, op)
		}
	}
	for i := len(kept); i < len(b.positions); i++ {
		b.positions[i] = nil
	}
	b.positions = kept
}

// Reset empties the book
func (b *Book) Reset() {
	b.positions = nil
}
