package model

// BlockRange represents an inclusive block range.
type BlockRange struct {
	From uint64
	To   uint64
}
