// Package starhunt defines the core domain types of the puzzle hunt and the
// pure progression rules: answer validation, the submit-answer transaction,
// section gating, pointing requests and the admin approval merge.
// It has no I/O; callers persist and publish what these functions return.
package starhunt

import (
	"slices"
	"time"
)

type Role string

const (
	RolePlayer Role = "user"
	RoleAdmin  Role = "admin"
)

// Points awarded for a new solve, per section.
var sectionPoints = map[int]int{1: 100, 2: 150, 3: 200}

// PointingPoints is the flat award for an approved pointing request.
const PointingPoints = 200

// MaxAttempts is the per-riddle attempt cap for sections other than 3.
const MaxAttempts = 2

// PointingThreshold is the number of section-1 solves that makes a team
// eligible for a pointing request.
const PointingThreshold = 3

type TeamProfile struct {
	ID                   string   `json:"id,omitempty"`
	Name                 string   `json:"name"`
	Role                 Role     `json:"role"`
	Points               int      `json:"points"`
	StarsFound           int      `json:"starsFound"`
	CurrentSection       int      `json:"currentSection,omitempty"`
	SolvedIndices        []int    `json:"solvedIndices"`
	Attempts             Attempts `json:"attempts"`
	HasRequestedPointing bool     `json:"hasRequestedPointing,omitempty"`
	TabletDiscovered     bool     `json:"tabletDiscovered,omitempty"`
	ForgotPasswordIssued bool     `json:"forgetPasswordClicked,omitempty"`
	// Version is the store's row version; it only matters when
	// compare-and-swap writes are enabled.
	Version int64 `json:"version,omitempty"`
}

// NewTeamProfile returns the zeroed profile created at registration.
func NewTeamProfile(name string, role Role) TeamProfile {
	return TeamProfile{
		Name:          name,
		Role:          role,
		SolvedIndices: []int{},
		Attempts:      Attempts{},
	}
}

// Clone returns a deep copy so callers can derive a next state without
// aliasing the previous one.
func (p TeamProfile) Clone() TeamProfile {
	c := p
	c.SolvedIndices = slices.Clone(p.SolvedIndices)
	if c.SolvedIndices == nil {
		c.SolvedIndices = []int{}
	}
	c.Attempts = make(Attempts, len(p.Attempts))
	for k, v := range p.Attempts {
		c.Attempts[k] = v
	}
	return c
}

func (p TeamProfile) HasSolved(global int) bool {
	return slices.Contains(p.SolvedIndices, global)
}

// SolvedInSection counts solved global indices that fall in section's range.
func (p TeamProfile) SolvedInSection(section int) int {
	lo := (section - 1) * SectionStride
	hi := lo + SectionStride
	n := 0
	for _, g := range p.SolvedIndices {
		if g >= lo && g < hi {
			n++
		}
	}
	return n
}

type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusAutoVerified Status = "auto-verified"
	StatusRejected     Status = "rejected"
)

// Terminal reports whether no further decision can be applied.
func (s Status) Terminal() bool {
	return s != StatusPending
}

type Kind string

const (
	KindSubmission Kind = "submission"
	KindPointing   Kind = "pointing"
	KindDiscovery  Kind = "discovery"
)

type VerificationRequest struct {
	ID              string    `json:"id"`
	TeamName        string    `json:"teamName"`
	SubjectName     string    `json:"starName"`
	SubmittedAnswer *string   `json:"submittedAnswer,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Status          Status    `json:"status"`
	Kind            Kind      `json:"type"`
	Section         *int      `json:"section,omitempty"`
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Status maps a decision to the terminal status it writes.
func (d Decision) Status() (Status, error) {
	switch d {
	case DecisionApprove:
		return StatusApproved, nil
	case DecisionReject:
		return StatusRejected, nil
	}
	return "", &ValidationError{Message: "decision must be approve or reject"}
}

// GameConfig holds the global unlock switches. It is a singleton row.
type GameConfig struct {
	Sections12Unlocked bool `json:"sections_1_2_unlocked"`
	Section3Unlocked   bool `json:"section_3_unlocked"`
}
