package starhunt

import "time"

type Outcome string

const (
	OutcomeLocked        Outcome = "locked"
	OutcomeAlreadySolved Outcome = "already-solved"
	OutcomeSolved        Outcome = "solved"
	OutcomeIncorrect     Outcome = "incorrect"
)

// tabletPosition is the riddle whose first solve reveals the tablet.
var tabletPosition = Position{Section: 3, Index: 2}

type Submission struct {
	Position
	Answer string
	At     time.Time
}

// Result is the outcome of one submit-answer transaction. Profile is the
// next snapshot; Request is nil for locked and already-solved outcomes.
type Result struct {
	Profile TeamProfile          `json:"profile"`
	Request *VerificationRequest `json:"request,omitempty"`
	Outcome Outcome              `json:"outcome"`

	NewTablet      bool `json:"newTablet,omitempty"`
	HuntCompleted  bool `json:"huntCompleted,omitempty"`
	PointingPrompt bool `json:"pointingPrompt,omitempty"`
}

// Submit evaluates one answer against the riddle at s.Position and returns
// the next profile. p is never modified.
func Submit(p TeamProfile, c *Catalog, s Submission) (Result, error) {
	global, err := Encode(s.Position)
	if err != nil {
		return Result{}, err
	}
	r, err := c.Riddle(s.Position)
	if err != nil {
		return Result{}, err
	}

	if s.Section != 3 && p.Attempts.Get(s.Position) >= MaxAttempts {
		return Result{Profile: p.Clone(), Outcome: OutcomeLocked}, nil
	}
	if p.HasSolved(global) {
		return Result{Profile: p.Clone(), Outcome: OutcomeAlreadySolved}, nil
	}

	correct := IsCorrect(s.Answer, r.AcceptedAnswers)
	next := p.Clone()

	status := StatusRejected
	switch {
	case s.Section == 1:
		status = StatusPending
	case correct:
		status = StatusAutoVerified
	}

	if s.Section != 3 {
		next.Attempts[s.AttemptKey()]++
	}

	res := Result{Outcome: OutcomeIncorrect}
	if correct {
		next.SolvedIndices = append(next.SolvedIndices, global)
		next.StarsFound++
		next.Points += sectionPoints[s.Section]
		res.Outcome = OutcomeSolved

		if s.Position == tabletPosition && !next.TabletDiscovered {
			next.TabletDiscovered = true
			res.NewTablet = true
		}
		res.HuntCompleted = c.Final(s.Position)
		res.PointingPrompt = s.Section == 1 &&
			next.SolvedInSection(1) == PointingThreshold &&
			!next.HasRequestedPointing
	}

	answer := s.Answer
	section := s.Section
	res.Request = &VerificationRequest{
		TeamName:        p.Name,
		SubjectName:     r.Subject,
		SubmittedAnswer: &answer,
		Timestamp:       s.At,
		Status:          status,
		Kind:            KindSubmission,
		Section:         &section,
	}
	res.Profile = next
	return res, nil
}
