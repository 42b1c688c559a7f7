package channel

import (
	"fmt"
	"strconv"
)

const noiseIndex = -1

// Label identifies the cluster a channel was assigned to: either a
// non-negative group index or the distinguished noise bucket produced by
// density-based clustering. The zero value is Group(0).
type Label struct {
	index int
}

// Group returns the label for cluster index i. Panics if i is negative;
// noise is constructed through Noise, never through an index.
func Group(i int) Label {
	if i < 0 {
		panic(fmt.Sprintf("cluster: negative group index %d", i))
	}
	return Label{index: i}
}

// Noise returns the label for points not assigned to any dense region.
func Noise() Label {
	return Label{index: noiseIndex}
}

// IsNoise reports whether the label is the noise bucket.
func (l Label) IsNoise() bool {
	return l.index == noiseIndex
}

// Index returns the group index and true, or 0 and false for noise.
func (l Label) Index() (int, bool) {
	if l.IsNoise() {
		return 0, false
	}
	return l.index, true
}

// String renders the label the way the serialized result keys clusters:
// the decimal group index, or "-1" for noise.
func (l Label) String() string {
	return strconv.Itoa(l.index)
}

// ParseLabel converts a serialized cluster key back into a Label.
func ParseLabel(s string) (Label, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return Label{}, fmt.Errorf("invalid cluster label %q: %w", s, err)
	}
	if i < noiseIndex {
		return Label{}, fmt.Errorf("invalid cluster label %q", s)
	}
	return Label{index: i}, nil
}
