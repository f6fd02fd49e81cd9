package starhunt

// ApplyApproval merges an approved request into the freshly fetched team
// state and returns the new totals. The caller must pass the latest
// authoritative profile, not a cached one.
//
// Section-1 submissions are resolved by subject and only count once.
// Section 2 and 3 submissions are normally auto-verified; approving one
// manually adds points and a star without touching the solved indices.
func ApplyApproval(latest TeamProfile, req VerificationRequest, c *Catalog) TeamProfile {
	next := latest.Clone()
	switch req.Kind {
	case KindPointing:
		next.Points += PointingPoints
	case KindSubmission:
		section := 1
		if req.Section != nil {
			section = *req.Section
		}
		if section == 1 {
			idx, ok := c.IndexOf(1, req.SubjectName)
			if ok && !next.HasSolved(idx) {
				next.SolvedIndices = append(next.SolvedIndices, idx)
				next.Points += sectionPoints[1]
				next.StarsFound++
			}
			return next
		}
		points, ok := sectionPoints[section]
		if !ok {
			points = sectionPoints[1]
		}
		next.Points += points
		next.StarsFound++
	}
	return next
}
