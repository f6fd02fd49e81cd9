package starhunt

import (
	"fmt"
	"strconv"
	"strings"
)

// SectionStride is the width of each section's block of global indices.
const SectionStride = 100

// SectionCount is the number of sections in the hunt.
const SectionCount = 3

// Position identifies one riddle: a section (1-based) and an index within it.
type Position struct {
	Section int `json:"section"`
	Index   int `json:"index"`
}

func (p Position) valid() bool {
	return p.Section >= 1 && p.Section <= SectionCount && p.Index >= 0 && p.Index < SectionStride
}

// Encode maps a position to its global index: Index + (Section-1)*100.
func Encode(p Position) (int, error) {
	if !p.valid() {
		return 0, fmt.Errorf("%w: section %d index %d", ErrInvalidPosition, p.Section, p.Index)
	}
	return p.Index + (p.Section-1)*SectionStride, nil
}

// Decode is the inverse of Encode.
func Decode(global int) (Position, error) {
	if global < 0 || global >= SectionCount*SectionStride {
		return Position{}, fmt.Errorf("%w: global index %d", ErrInvalidPosition, global)
	}
	return Position{Section: global/SectionStride + 1, Index: global % SectionStride}, nil
}

// AttemptKey keys the per-riddle attempt counter. Its text form is
// "<section>-<index>", which is also the JSON map key in the store.
type AttemptKey struct {
	Section int
	Index   int
}

func (p Position) AttemptKey() AttemptKey {
	return AttemptKey{Section: p.Section, Index: p.Index}
}

func (k AttemptKey) String() string {
	return strconv.Itoa(k.Section) + "-" + strconv.Itoa(k.Index)
}

func (k AttemptKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *AttemptKey) UnmarshalText(b []byte) error {
	sec, idx, ok := strings.Cut(string(b), "-")
	if !ok {
		return fmt.Errorf("attempt key %q: missing separator", b)
	}
	s, err := strconv.Atoi(sec)
	if err != nil {
		return fmt.Errorf("attempt key %q: %w", b, err)
	}
	i, err := strconv.Atoi(idx)
	if err != nil {
		return fmt.Errorf("attempt key %q: %w", b, err)
	}
	if s < 0 || i < 0 {
		return fmt.Errorf("attempt key %q: negative component", b)
	}
	*k = AttemptKey{Section: s, Index: i}
	return nil
}

// Attempts counts submissions per riddle, independent of solved state.
type Attempts map[AttemptKey]int

func (a Attempts) Get(p Position) int {
	return a[p.AttemptKey()]
}
