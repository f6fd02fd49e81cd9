// Package session keeps the client's resumable state: the last known team
// profile and the screen the player was on. Both are written to a local
// libSQL key/value file after every change; if either key is missing on
// load the session starts over at the login screen.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/playperu/starhunt/internal/database"
	"github.com/playperu/starhunt/internal/starhunt"
)

type Screen string

const (
	ScreenLogin    Screen = "login"
	ScreenSections Screen = "sections"
	ScreenRiddles  Screen = "riddles"
	ScreenAdmin    Screen = "admin"
)

const (
	keyProfile = "profile"
	keyScreen  = "screen"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// State is the serializable session. Profile is nil when logged out.
type State struct {
	Profile *starhunt.TeamProfile
	Token   string
	Screen  Screen
}

// LoggedIn reports whether the state carries a usable login.
func (s State) LoggedIn() bool {
	return s.Profile != nil && s.Token != ""
}

func (s State) clone() State {
	if s.Profile != nil {
		p := s.Profile.Clone()
		s.Profile = &p
	}
	return s
}

// profileRecord is the value stored under the profile key. The session
// token travels with the profile it belongs to.
type profileRecord struct {
	Team  starhunt.TeamProfile `json:"team"`
	Token string               `json:"token"`
}

var loggedOut = State{Screen: ScreenLogin}

// ErrLoggedOut is returned by operations that need a login.
var ErrLoggedOut = errors.New("not logged in")

// Store serializes every mutation through Update and saves before
// returning.
type Store struct {
	mu    sync.Mutex
	db    *sql.DB
	state State
	owned bool
}

// Open opens (or creates) the session file at path and loads it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	s, err := New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New loads the session from db, creating the table if needed. The caller
// keeps ownership of db.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating session table: %w", err)
	}
	s := &Store{db: db}
	state, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.state = state
	return s, nil
}

func (s *Store) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Update applies fn to a copy of the session and saves the result. If fn
// or the save fails the session is unchanged.
func (s *Store) Update(ctx context.Context, fn func(*State) error) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&next); err != nil {
		return s.state.clone(), err
	}
	if err := s.save(ctx, next); err != nil {
		return s.state.clone(), err
	}
	s.state = next
	return next.clone(), nil
}

// Reset logs out: both keys are removed and the session returns to the
// login screen.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.Update(ctx, func(st *State) error {
		*st = loggedOut
		return nil
	})
	return err
}

func (s *Store) load(ctx context.Context) (State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM kv WHERE key IN (?, ?)`, keyProfile, keyScreen)
	if err != nil {
		return State{}, fmt.Errorf("loading session: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, 2)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return State{}, fmt.Errorf("scanning session: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return State{}, fmt.Errorf("loading session: %w", err)
	}

	rawProfile, okProfile := values[keyProfile]
	rawScreen, okScreen := values[keyScreen]
	if !okProfile || !okScreen {
		return loggedOut, nil
	}

	var rec profileRecord
	if err := json.Unmarshal([]byte(rawProfile), &rec); err != nil {
		// A corrupt snapshot is as good as a missing one.
		return loggedOut, nil
	}
	if rec.Team.Attempts == nil {
		rec.Team.Attempts = starhunt.Attempts{}
	}
	if rec.Team.SolvedIndices == nil {
		rec.Team.SolvedIndices = []int{}
	}
	return State{Profile: &rec.Team, Token: rec.Token, Screen: Screen(rawScreen)}, nil
}

func (s *Store) save(ctx context.Context, st State) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if st.Profile == nil {
		if _, err = tx.ExecContext(ctx, `DELETE FROM kv WHERE key IN (?, ?)`, keyProfile, keyScreen); err != nil {
			return fmt.Errorf("clearing session: %w", err)
		}
		return tx.Commit()
	}

	raw, err := json.Marshal(profileRecord{Team: *st.Profile, Token: st.Token})
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err = tx.ExecContext(ctx, upsert, keyProfile, string(raw)); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	if _, err = tx.ExecContext(ctx, upsert, keyScreen, string(st.Screen)); err != nil {
		return fmt.Errorf("saving screen: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}
