package hunt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/starhunt/internal/starhunt"
	"github.com/playperu/starhunt/internal/store"
)

// Login is an authenticated session.
type Login struct {
	Token   string               `json:"token"`
	Profile starhunt.TeamProfile `json:"profile"`
}

// Register creates a player team. It does not log in.
func (s *Service) Register(ctx context.Context, name, pin, confirmPin string) (starhunt.TeamProfile, error) {
	name, err := starhunt.ValidateRegistration(name, pin, confirmPin)
	if err != nil {
		return starhunt.TeamProfile{}, err
	}
	if strings.EqualFold(name, AdminName) {
		return starhunt.TeamProfile{}, fmt.Errorf("%w: %q", store.ErrNameTaken, name)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return starhunt.TeamProfile{}, fmt.Errorf("hashing pin: %w", err)
	}
	p, err := s.store.CreateTeam(ctx, name, string(hash), starhunt.RolePlayer)
	if err != nil {
		return starhunt.TeamProfile{}, err
	}
	s.logger.Info("team registered", "team", p.Name)
	return p, nil
}

// Login checks a team's PIN. Unknown teams and wrong PINs are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, name, pin string) (Login, error) {
	creds, err := s.store.Credentials(ctx, strings.TrimSpace(name))
	if errors.Is(err, store.ErrNotFound) {
		return Login{}, starhunt.ErrAccessDenied
	}
	if err != nil {
		return Login{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(pin)); err != nil {
		return Login{}, starhunt.ErrAccessDenied
	}

	token, err := s.store.CreateSession(ctx, creds.Profile.ID, creds.Profile.Role)
	if err != nil {
		return Login{}, fmt.Errorf("creating session: %w", err)
	}
	p, err := s.withPointingFlag(ctx, creds.Profile)
	if err != nil {
		return Login{}, err
	}
	return Login{Token: token, Profile: p}, nil
}

// AdminLogin logs in to the admin account with its PIN.
func (s *Service) AdminLogin(ctx context.Context, pin string) (Login, error) {
	l, err := s.Login(ctx, AdminName, pin)
	if err != nil {
		return Login{}, err
	}
	if l.Profile.Role != starhunt.RoleAdmin {
		s.store.DeleteSession(ctx, l.Token)
		return Login{}, starhunt.ErrAccessDenied
	}
	return l, nil
}

// EnsureAdmin creates the admin account on first start. An existing
// account keeps its PIN.
func (s *Service) EnsureAdmin(ctx context.Context, pin string) error {
	_, err := s.store.TeamByName(ctx, AdminName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if pin == "" {
		return errors.New("admin pin is required to create the admin account")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin pin: %w", err)
	}
	if _, err := s.store.CreateTeam(ctx, AdminName, string(hash), starhunt.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}
	s.logger.Info("admin account created")
	return nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a session token.
func (s *Service) Authenticate(ctx context.Context, token string) (store.Session, error) {
	if token == "" {
		return store.Session{}, starhunt.ErrAccessDenied
	}
	sess, err := s.store.Session(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, starhunt.ErrAccessDenied
	}
	return sess, err
}

// ForgotPassword issues the one-time warning for a team. Without confirm it
// only checks that the warning can still be issued.
func (s *Service) ForgotPassword(ctx context.Context, name string, confirm bool) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &starhunt.ValidationError{Message: "please enter your team name"}
	}
	p, err := s.store.TeamByName(ctx, name)
	if err != nil {
		return err
	}
	if p.ForgotPasswordIssued {
		return ErrWarningIssued
	}
	if !confirm {
		return nil
	}
	if _, changed, err := s.store.MarkForgotPassword(ctx, name); err != nil {
		return err
	} else if !changed {
		return ErrWarningIssued
	}
	s.logger.Info("forgot-password warning issued", "team", name)
	return nil
}
