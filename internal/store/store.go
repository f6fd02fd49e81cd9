// Package store is the authoritative record of teams, the verification
// queue, the game config and login sessions.
package store

import (
	"context"
	"errors"

	"github.com/playperu/starhunt/internal/starhunt"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrNameTaken = errors.New("team name already taken")

	// ErrConflict is returned by conditional writes whose version token no
	// longer matches the stored row.
	ErrConflict = errors.New("version conflict")
)

type Session struct {
	Token  string
	TeamID string
	Role   starhunt.Role
}

// Credentials is what login needs to verify a team.
type Credentials struct {
	Profile      starhunt.TeamProfile
	PasswordHash string
}

type Store interface {
	CreateTeam(ctx context.Context, name, passwordHash string, role starhunt.Role) (starhunt.TeamProfile, error)
	TeamByName(ctx context.Context, name string) (starhunt.TeamProfile, error)
	TeamByID(ctx context.Context, id string) (starhunt.TeamProfile, error)
	Credentials(ctx context.Context, name string) (Credentials, error)
	ListTeams(ctx context.Context) ([]starhunt.TeamProfile, error)

	// SaveProgress overwrites the team's progress columns unconditionally.
	SaveProgress(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error)
	// SaveProgressIf writes only if the stored version still equals p.Version.
	SaveProgressIf(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error)
	// MarkForgotPassword sets the one-shot flag. It reports false when the
	// flag was already set.
	MarkForgotPassword(ctx context.Context, name string) (starhunt.TeamProfile, bool, error)

	AddRequest(ctx context.Context, req starhunt.VerificationRequest) (starhunt.VerificationRequest, error)
	Request(ctx context.Context, id string) (starhunt.VerificationRequest, error)
	ListRequests(ctx context.Context, status starhunt.Status) ([]starhunt.VerificationRequest, error)
	// DecideRequest moves a pending request to status. Requests in any
	// other status yield starhunt.ErrAlreadyDecided.
	DecideRequest(ctx context.Context, id string, status starhunt.Status) (starhunt.VerificationRequest, error)
	HasPointingRequest(ctx context.Context, teamName string) (bool, error)

	Config(ctx context.Context) (starhunt.GameConfig, error)
	SetConfig(ctx context.Context, cfg starhunt.GameConfig) (starhunt.GameConfig, error)

	CreateSession(ctx context.Context, teamID string, role starhunt.Role) (string, error)
	Session(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}
