package starhunt

import "fmt"

// SectionUnlocked reports whether section is accessible to p under cfg.
// Sections 1 and 2 are always open. Section 3 opens by admin override or
// once every section-1 and section-2 riddle is solved. Anything past the
// last section fails with ErrSectionUnavailable regardless of cfg.
func (c *Catalog) SectionUnlocked(section int, p TeamProfile, cfg GameConfig) (bool, error) {
	switch {
	case section < 1:
		return false, fmt.Errorf("%w: section %d", ErrInvalidPosition, section)
	case section > SectionCount:
		return false, fmt.Errorf("%w: section %d", ErrSectionUnavailable, section)
	case section <= 2:
		return true, nil
	}
	return cfg.Section3Unlocked || c.naturallyUnlocked(p), nil
}

func (c *Catalog) naturallyUnlocked(p TeamProfile) bool {
	return p.SolvedInSection(1) >= c.Count(1) && p.SolvedInSection(2) >= c.Count(2)
}

// SectionGates evaluates every section for display.
func (c *Catalog) SectionGates(p TeamProfile, cfg GameConfig) map[int]bool {
	gates := make(map[int]bool, SectionCount)
	for s := 1; s <= SectionCount; s++ {
		gates[s], _ = c.SectionUnlocked(s, p, cfg)
	}
	return gates
}
