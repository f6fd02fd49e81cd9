package starhunt

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Riddle is one puzzle. Section membership is implied by its position in
// Catalog.Sections.
type Riddle struct {
	Subject         string   `json:"subject"`
	Name            string   `json:"name"`
	Prompt          string   `json:"prompt"`
	ImageURLs       []string `json:"imageUrls,omitempty"`
	AcceptedAnswers []string `json:"acceptedAnswers"`
	Hints           []string `json:"hints,omitempty"`
	// Telescope marks section-1 riddles that carry a pointing challenge.
	Telescope bool `json:"telescope,omitempty"`
}

// Catalog is the ordered riddle list for every section.
type Catalog struct {
	Sections map[int][]Riddle `json:"sections"`
}

//go:embed catalog.json
var defaultCatalog []byte

// DefaultCatalog returns the riddles shipped with the binary.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(strings.NewReader(string(defaultCatalog)))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// LoadCatalog decodes and validates a catalog.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	for section, riddles := range c.Sections {
		if section < 1 || section > SectionCount {
			return nil, fmt.Errorf("catalog: section %d out of range", section)
		}
		if len(riddles) > SectionStride {
			return nil, fmt.Errorf("catalog: section %d has %d riddles", section, len(riddles))
		}
		for i, rd := range riddles {
			// Section 1 is human-verified; every other section needs answers.
			if section != 1 && len(rd.AcceptedAnswers) == 0 {
				return nil, fmt.Errorf("catalog: riddle %d-%d has no accepted answers", section, i)
			}
		}
	}
	return &c, nil
}

// Count returns the number of riddles in a section.
func (c *Catalog) Count(section int) int {
	return len(c.Sections[section])
}

// Riddle returns the riddle at p.
func (c *Catalog) Riddle(p Position) (Riddle, error) {
	if !p.valid() || p.Index >= len(c.Sections[p.Section]) {
		return Riddle{}, fmt.Errorf("%w: section %d index %d", ErrInvalidPosition, p.Section, p.Index)
	}
	return c.Sections[p.Section][p.Index], nil
}

// IndexOf finds the local index of the riddle whose subject matches.
func (c *Catalog) IndexOf(section int, subject string) (int, bool) {
	for i, rd := range c.Sections[section] {
		if rd.Subject == subject {
			return i, true
		}
	}
	return -1, false
}

// Final reports whether p is the last riddle of the last section.
func (c *Catalog) Final(p Position) bool {
	return p.Section == SectionCount && p.Index == c.Count(SectionCount)-1
}
