package starhunt

import (
	"fmt"
	"time"
)

// PointingEligible reports whether p may still nominate a subject for
// telescope pointing verification.
func PointingEligible(p TeamProfile) bool {
	return !p.HasRequestedPointing && p.SolvedInSection(1) >= PointingThreshold
}

// RequestPointing nominates a solved section-1 subject for manual pointing
// verification. It is one-shot: the returned profile has
// HasRequestedPointing set and no later call succeeds.
func RequestPointing(p TeamProfile, c *Catalog, subject string, at time.Time) (TeamProfile, VerificationRequest, error) {
	if p.HasRequestedPointing {
		return p, VerificationRequest{}, ErrPointingRequested
	}
	if !PointingEligible(p) {
		return p, VerificationRequest{}, ErrPointingIneligible
	}
	idx, ok := c.IndexOf(1, subject)
	if !ok {
		return p, VerificationRequest{}, fmt.Errorf("%w: %q", ErrUnknownSubject, subject)
	}
	if !p.HasSolved(idx) {
		return p, VerificationRequest{}, fmt.Errorf("%w: %q is not solved", ErrPointingIneligible, subject)
	}

	next := p.Clone()
	next.HasRequestedPointing = true
	req := VerificationRequest{
		TeamName:    p.Name,
		SubjectName: c.Sections[1][idx].Name,
		Timestamp:   at,
		Status:      StatusPending,
		Kind:        KindPointing,
	}
	return next, req, nil
}
