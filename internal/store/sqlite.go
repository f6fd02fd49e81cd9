package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/starhunt/internal/starhunt"
)

// timeLayout is fixed-width so text ordering matches time ordering. The
// driver may hand the value back with trailing zeros trimmed, so reads parse
// RFC 3339 instead.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const teamColumns = `id, name, role, points, stars_found, json(solved_indices), json(attempts),
	forget_password_clicked, tablet_discovered, version`

const requestColumns = `id, team_name, star_name, submitted_answer, timestamp, status, type, section`

// SQLiteStore implements Store on a migrated libSQL database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// sqlBool stores flags as 0/1 integers.
func sqlBool(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTeam(sc scanner) (starhunt.TeamProfile, error) {
	var (
		p        starhunt.TeamProfile
		role     string
		solved   string
		attempts string
	)
	err := sc.Scan(&p.ID, &p.Name, &role, &p.Points, &p.StarsFound, &solved, &attempts,
		&p.ForgotPasswordIssued, &p.TabletDiscovered, &p.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Role = starhunt.Role(role)
	if err := json.Unmarshal([]byte(solved), &p.SolvedIndices); err != nil {
		return p, fmt.Errorf("decoding solved indices of %q: %w", p.Name, err)
	}
	if err := json.Unmarshal([]byte(attempts), &p.Attempts); err != nil {
		return p, fmt.Errorf("decoding attempts of %q: %w", p.Name, err)
	}
	if p.SolvedIndices == nil {
		p.SolvedIndices = []int{}
	}
	if p.Attempts == nil {
		p.Attempts = starhunt.Attempts{}
	}
	return p, nil
}

func scanRequest(sc scanner) (starhunt.VerificationRequest, error) {
	var (
		r       starhunt.VerificationRequest
		answer  sql.NullString
		ts      string
		section sql.NullInt64
	)
	err := sc.Scan(&r.ID, &r.TeamName, &r.SubjectName, &answer, &ts, &r.Status, &r.Kind, &section)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if answer.Valid {
		r.SubmittedAnswer = &answer.String
	}
	if section.Valid {
		s := int(section.Int64)
		r.Section = &s
	}
	r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return r, fmt.Errorf("parsing timestamp of request %s: %w", r.ID, err)
	}
	return r, nil
}

// Teams

func (s *SQLiteStore) CreateTeam(ctx context.Context, name, passwordHash string, role starhunt.Role) (starhunt.TeamProfile, error) {
	p, err := scanTeam(s.db.QueryRowContext(ctx, `
		INSERT INTO teams (id, name, password, role)
		VALUES (?, ?, ?, ?)
		RETURNING `+teamColumns,
		uuid.NewString(), name, passwordHash, string(role),
	))
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return p, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	return p, err
}

func (s *SQLiteStore) TeamByName(ctx context.Context, name string) (starhunt.TeamProfile, error) {
	return scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE name = ?`, name,
	))
}

func (s *SQLiteStore) TeamByID(ctx context.Context, id string) (starhunt.TeamProfile, error) {
	return scanTeam(s.db.QueryRowContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE id = ?`, id,
	))
}

func (s *SQLiteStore) Credentials(ctx context.Context, name string) (Credentials, error) {
	var hash string
	row := s.db.QueryRowContext(ctx,
		`SELECT password, `+teamColumns+` FROM teams WHERE name = ?`, name,
	)
	p, err := scanTeam(prefixScanner{row: row, prefix: []any{&hash}})
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{Profile: p, PasswordHash: hash}, nil
}

// prefixScanner lets scanTeam read a row that has extra leading columns.
type prefixScanner struct {
	row    scanner
	prefix []any
}

func (p prefixScanner) Scan(dest ...any) error {
	return p.row.Scan(append(p.prefix, dest...)...)
}

// ListTeams returns player teams ordered for the leaderboard.
func (s *SQLiteStore) ListTeams(ctx context.Context) ([]starhunt.TeamProfile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+teamColumns+` FROM teams WHERE role = 'user' ORDER BY points DESC, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := []starhunt.TeamProfile{}
	for rows.Next() {
		p, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, p)
	}
	return teams, rows.Err()
}

func progressArgs(p starhunt.TeamProfile) ([]any, error) {
	solved := p.SolvedIndices
	if solved == nil {
		solved = []int{}
	}
	solvedJSON, err := json.Marshal(solved)
	if err != nil {
		return nil, err
	}
	attempts := p.Attempts
	if attempts == nil {
		attempts = starhunt.Attempts{}
	}
	attemptsJSON, err := json.Marshal(attempts)
	if err != nil {
		return nil, err
	}
	return []any{p.Points, p.StarsFound, string(solvedJSON), string(attemptsJSON), sqlBool(p.TabletDiscovered), p.ID}, nil
}

const updateProgress = `
	UPDATE teams SET
		points = ?, stars_found = ?, solved_indices = jsonb(?), attempts = jsonb(?),
		tablet_discovered = ?, version = version + 1
	WHERE id = ?`

func (s *SQLiteStore) SaveProgress(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error) {
	args, err := progressArgs(p)
	if err != nil {
		return starhunt.TeamProfile{}, err
	}
	return scanTeam(s.db.QueryRowContext(ctx,
		updateProgress+` RETURNING `+teamColumns, args...,
	))
}

func (s *SQLiteStore) SaveProgressIf(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error) {
	args, err := progressArgs(p)
	if err != nil {
		return starhunt.TeamProfile{}, err
	}
	saved, err := scanTeam(s.db.QueryRowContext(ctx,
		updateProgress+` AND version = ? RETURNING `+teamColumns, append(args, p.Version)...,
	))
	if !errors.Is(err, ErrNotFound) {
		return saved, err
	}
	if _, err := s.TeamByID(ctx, p.ID); err != nil {
		return starhunt.TeamProfile{}, err
	}
	return starhunt.TeamProfile{}, fmt.Errorf("%w: team %q at version %d", ErrConflict, p.Name, p.Version)
}

func (s *SQLiteStore) MarkForgotPassword(ctx context.Context, name string) (starhunt.TeamProfile, bool, error) {
	p, err := scanTeam(s.db.QueryRowContext(ctx, `
		UPDATE teams SET forget_password_clicked = 1, version = version + 1
		WHERE name = ? AND forget_password_clicked = 0
		RETURNING `+teamColumns, name,
	))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return p, false, err
	}
	p, err = s.TeamByName(ctx, name)
	return p, false, err
}

// Verification queue

func (s *SQLiteStore) AddRequest(ctx context.Context, req starhunt.VerificationRequest) (starhunt.VerificationRequest, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return scanRequest(s.db.QueryRowContext(ctx, `
		INSERT INTO verification_requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+requestColumns,
		req.ID, req.TeamName, req.SubjectName, req.SubmittedAnswer,
		req.Timestamp.UTC().Format(timeLayout), string(req.Status), string(req.Kind), req.Section,
	))
}

func (s *SQLiteStore) Request(ctx context.Context, id string) (starhunt.VerificationRequest, error) {
	return scanRequest(s.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM verification_requests WHERE id = ?`, id,
	))
}

// ListRequests returns requests newest first. An empty status lists all.
func (s *SQLiteStore) ListRequests(ctx context.Context, status starhunt.Status) ([]starhunt.VerificationRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM verification_requests
		WHERE ? = '' OR status = ?
		ORDER BY timestamp DESC, rowid DESC`,
		string(status), string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := []starhunt.VerificationRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

func (s *SQLiteStore) DecideRequest(ctx context.Context, id string, status starhunt.Status) (starhunt.VerificationRequest, error) {
	r, err := scanRequest(s.db.QueryRowContext(ctx, `
		UPDATE verification_requests SET status = ?
		WHERE id = ? AND status = 'pending'
		RETURNING `+requestColumns,
		string(status), id,
	))
	if !errors.Is(err, ErrNotFound) {
		return r, err
	}
	r, err = s.Request(ctx, id)
	if err != nil {
		return r, err
	}
	return r, fmt.Errorf("%w: request %s is %s", starhunt.ErrAlreadyDecided, id, r.Status)
}

func (s *SQLiteStore) HasPointingRequest(ctx context.Context, teamName string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM verification_requests WHERE team_name = ? AND type = 'pointing'
		)`, teamName,
	).Scan(&exists)
	return exists, err
}

// Game config

func (s *SQLiteStore) Config(ctx context.Context) (starhunt.GameConfig, error) {
	var cfg starhunt.GameConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT sections_1_2_unlocked, section_3_unlocked FROM game_config WHERE id = 1`,
	).Scan(&cfg.Sections12Unlocked, &cfg.Section3Unlocked)
	if errors.Is(err, sql.ErrNoRows) {
		return cfg, ErrNotFound
	}
	return cfg, err
}

func (s *SQLiteStore) SetConfig(ctx context.Context, cfg starhunt.GameConfig) (starhunt.GameConfig, error) {
	var out starhunt.GameConfig
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO game_config (id, sections_1_2_unlocked, section_3_unlocked) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sections_1_2_unlocked = excluded.sections_1_2_unlocked,
			section_3_unlocked = excluded.section_3_unlocked
		RETURNING sections_1_2_unlocked, section_3_unlocked`,
		sqlBool(cfg.Sections12Unlocked), sqlBool(cfg.Section3Unlocked),
	).Scan(&out.Sections12Unlocked, &out.Section3Unlocked)
	return out, err
}

// Sessions

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, teamID string, role starhunt.Role) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, team_id, role) VALUES (?, ?, ?)`,
		token, teamID, string(role),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *SQLiteStore) Session(ctx context.Context, token string) (Session, error) {
	sess := Session{Token: token}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT team_id, role FROM sessions WHERE token = ?`, token,
	).Scan(&sess.TeamID, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	sess.Role = starhunt.Role(role)
	return sess, err
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

var _ Store = (*SQLiteStore)(nil)
