package client_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/playperu/starhunt/internal/client"
	"github.com/playperu/starhunt/internal/database"
	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/migrations"
	"github.com/playperu/starhunt/internal/server"
	"github.com/playperu/starhunt/internal/session"
	"github.com/playperu/starhunt/internal/starhunt"
	"github.com/playperu/starhunt/internal/store"
)

const adminPin = "cosmos9"

type harness struct {
	srv    *httptest.Server
	broker *feed.Broker
	logger *slog.Logger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Memory)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	broker := feed.NewBroker()
	st := store.WithFeed(store.NewSQLiteStore(db), broker)
	svc := hunt.New(st, starhunt.DefaultCatalog(), logger, hunt.Options{})
	if err := svc.EnsureAdmin(ctx, adminPin); err != nil {
		t.Fatalf("ensure admin: %v", err)
	}

	srv := httptest.NewServer(server.NewHandler(logger, server.Deps{Hunt: svc, Broker: broker}))
	t.Cleanup(srv.Close)
	return &harness{srv: srv, broker: broker, logger: logger}
}

func (h *harness) client(t *testing.T) (*client.Client, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.db")
	sess, err := session.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return client.New(h.srv.URL, sess, h.logger, client.Options{HTTPClient: h.srv.Client(), Timeout: 5 * time.Second}), path
}

func (h *harness) player(t *testing.T, name string) *client.Client {
	t.Helper()
	ctx := context.Background()
	c, _ := h.client(t)
	if _, err := c.Register(ctx, name, "star42", "star42"); err != nil {
		t.Fatalf("register %q: %v", name, err)
	}
	if _, err := c.Login(ctx, name, "star42"); err != nil {
		t.Fatalf("login %q: %v", name, err)
	}
	return c
}

func (h *harness) admin(t *testing.T) *client.Client {
	t.Helper()
	c, _ := h.client(t)
	if _, err := c.AdminLogin(context.Background(), adminPin); err != nil {
		t.Fatalf("admin login: %v", err)
	}
	return c
}

func submit(t *testing.T, c *client.Client, section, index int, answer string) starhunt.Result {
	t.Helper()
	res, err := c.Submit(context.Background(), section, index, answer)
	if err != nil {
		t.Fatalf("submit %d-%d %q: %v", section, index, answer, err)
	}
	return res
}

func TestOrionScenario(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	c, path := h.client(t)
	if _, err := c.Register(ctx, "Orion", "star42", "star42"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if c.Session().LoggedIn() {
		t.Fatal("registration logged in")
	}
	st, err := c.Login(ctx, "Orion", "star42")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if st.Screen != session.ScreenSections {
		t.Errorf("screen = %q, want sections", st.Screen)
	}

	if _, err := c.SelectSection(ctx, 1); err != nil {
		t.Fatalf("select section: %v", err)
	}

	res := submit(t, c, 1, 0, "Aldebaran")
	if res.Outcome != starhunt.OutcomeSolved {
		t.Errorf("outcome = %q, want solved", res.Outcome)
	}
	p := c.Session().Profile
	if p.Points != 100 || p.StarsFound != 1 || !slices.Equal(p.SolvedIndices, []int{0}) {
		t.Errorf("profile = %+v", p)
	}

	for i, want := range []starhunt.Outcome{starhunt.OutcomeIncorrect, starhunt.OutcomeIncorrect, starhunt.OutcomeLocked} {
		if got := submit(t, c, 1, 1, "wrong").Outcome; got != want {
			t.Errorf("try %d: outcome = %q, want %q", i+1, got, want)
		}
	}

	p = c.Session().Profile
	if got := p.Attempts.Get(starhunt.Position{Section: 1, Index: 1}); got != 2 {
		t.Errorf("attempts[1-1] = %d, want 2", got)
	}
	if slices.Contains(p.SolvedIndices, 1) {
		t.Errorf("index 1 solved: %v", p.SolvedIndices)
	}
	if p.CurrentSection != 1 {
		t.Errorf("current section = %d, want 1", p.CurrentSection)
	}

	// The server holds the same progress.
	gs, err := c.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if gs.Profile.Points != 100 || gs.Profile.Attempts.Get(starhunt.Position{Section: 1, Index: 1}) != 2 {
		t.Errorf("server profile = %+v", gs.Profile)
	}

	// And so does the session file.
	reopened, err := session.Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if rs := reopened.State(); rs.Screen != session.ScreenRiddles || rs.Profile.Points != 100 {
		t.Errorf("reopened session = %+v", rs)
	}
}

func TestAdminTogglesSectionThree(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	player := h.player(t, "Orion")
	admin := h.admin(t)

	if ok, err := player.SectionUnlocked(3); err != nil || ok {
		t.Fatalf("section 3 before toggle = %v, %v", ok, err)
	}
	if _, err := player.SelectSection(ctx, 3); client.StatusOf(err) != http.StatusForbidden {
		t.Fatalf("select before toggle: err = %v", err)
	}

	if _, err := admin.SetConfig(ctx, starhunt.GameConfig{Sections12Unlocked: true, Section3Unlocked: true}); err != nil {
		t.Fatalf("set config: %v", err)
	}

	riddles, err := player.SelectSection(ctx, 3)
	if err != nil {
		t.Fatalf("select after toggle: %v", err)
	}
	if len(riddles) != 6 {
		t.Errorf("riddles = %d, want 6", len(riddles))
	}
	if ok, _ := player.SectionUnlocked(3); !ok {
		t.Error("local gate still closed after toggle")
	}

	res := submit(t, player, 3, 0, "sagittarius a*")
	if res.Outcome != starhunt.OutcomeSolved || res.Profile.Points != 200 {
		t.Errorf("section 3 result = %+v", res)
	}
}

func TestWriteFailureKeepsLocalProgress(t *testing.T) {
	h := newHarness(t)
	c := h.player(t, "Orion")

	h.srv.Close()

	res, err := c.Submit(context.Background(), 1, 0, "aldebaran")
	if err == nil {
		t.Fatal("submit succeeded with the server down")
	}
	if res.Outcome != starhunt.OutcomeSolved {
		t.Errorf("outcome = %q, want solved", res.Outcome)
	}
	if p := c.Session().Profile; p.Points != 100 || p.StarsFound != 1 {
		t.Errorf("optimistic profile rolled back: %+v", p)
	}
}

func TestRegisterValidatesLocally(t *testing.T) {
	h := newHarness(t)
	c, _ := h.client(t)

	_, err := c.Register(context.Background(), "Vega", "abc", "abc")
	if !starhunt.IsValidation(err) {
		t.Errorf("err = %v, want validation error", err)
	}
}

func TestLoginFailures(t *testing.T) {
	h := newHarness(t)
	h.player(t, "Orion")
	c, _ := h.client(t)

	_, err := c.Login(context.Background(), "Orion", "wrong1")
	if client.StatusOf(err) != http.StatusUnauthorized {
		t.Errorf("err = %v, want 401", err)
	}
	if c.Session().LoggedIn() {
		t.Error("failed login started a session")
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	c := h.player(t, "Orion")

	if err := c.Logout(context.Background()); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if st := c.Session(); st.LoggedIn() || st.Screen != session.ScreenLogin {
		t.Errorf("session = %+v", st)
	}
	if _, err := c.Submit(context.Background(), 1, 0, "aldebaran"); !errors.Is(err, session.ErrLoggedOut) {
		t.Errorf("submit after logout: err = %v", err)
	}
}

func TestForgotPassword(t *testing.T) {
	h := newHarness(t)
	h.player(t, "Orion")
	c, _ := h.client(t)
	ctx := context.Background()

	msg, err := c.ForgotPassword(ctx, "Orion", false)
	if err != nil || msg == "" {
		t.Fatalf("check: %q, %v", msg, err)
	}
	if _, err := c.ForgotPassword(ctx, "Orion", true); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := c.ForgotPassword(ctx, "Orion", false); client.StatusOf(err) != http.StatusConflict {
		t.Errorf("repeat: err = %v, want 409", err)
	}
}

func TestRequestPointing(t *testing.T) {
	h := newHarness(t)
	c := h.player(t, "Orion")
	ctx := context.Background()

	if _, err := c.RequestPointing(ctx, "aldebaran"); !errors.Is(err, starhunt.ErrPointingIneligible) {
		t.Errorf("ineligible: err = %v", err)
	}

	for i, answer := range []string{"aldebaran", "mirfak", "sirius"} {
		res := submit(t, c, 1, i, answer)
		if i == 2 && !res.PointingPrompt {
			t.Error("third section 1 solve did not prompt for pointing")
		}
	}

	req, err := c.RequestPointing(ctx, "mirfak")
	if err != nil {
		t.Fatalf("request pointing: %v", err)
	}
	if req.Kind != starhunt.KindPointing || req.SubjectName != "Mirfak" || req.ID == "" {
		t.Errorf("request = %+v", req)
	}
	if !c.Session().Profile.HasRequestedPointing {
		t.Error("pointing flag not set")
	}
	if _, err := c.RequestPointing(ctx, "sirius"); !errors.Is(err, starhunt.ErrPointingRequested) {
		t.Errorf("second request: err = %v", err)
	}
}

func TestWatchAppliesApproval(t *testing.T) {
	h := newHarness(t)
	player := h.player(t, "Orion")
	admin := h.admin(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan feed.Event, 16)
	done := make(chan error, 1)
	go func() { done <- player.Watch(ctx, func(ev feed.Event) { events <- ev }) }()

	topic := feed.TeamTopic("Orion")
	for h.broker.Subscribers(topic) == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("watcher never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// A wrong section 1 answer scores nothing until the admin approves it.
	if res := submit(t, player, 1, 0, "betelgeuse"); res.Profile.Points != 0 {
		t.Fatalf("points before approval = %d", res.Profile.Points)
	}

	pending, err := admin.Requests(ctx, starhunt.StatusPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	decided, err := admin.Decide(ctx, pending[0].ID, starhunt.DecisionApprove)
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if decided.Team == nil || decided.Team.Points != 100 {
		t.Fatalf("decided = %+v", decided)
	}

	for {
		select {
		case ev := <-events:
			if ev.Team != nil && ev.Team.Points == 100 {
				if p := player.Session().Profile; p.Points != 100 || !slices.Contains(p.SolvedIndices, 0) {
					t.Errorf("session after approval = %+v", p)
				}
				cancel()
				<-done
				return
			}
		case err := <-done:
			t.Fatalf("watch ended early: %v", err)
		case <-ctx.Done():
			t.Fatal("approval never reached the player")
		}
	}
}

func TestAdminLeaderboard(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	orion := h.player(t, "Orion")
	h.player(t, "Vega")
	admin := h.admin(t)

	submit(t, orion, 2, 0, "polaris")

	teams, err := admin.Teams(ctx)
	if err != nil {
		t.Fatalf("teams: %v", err)
	}
	if len(teams) != 2 || teams[0].Name != "Orion" || teams[0].Points != 150 {
		t.Errorf("leaderboard = %+v", teams)
	}

	all, err := admin.Requests(ctx, "")
	if err != nil || len(all) != 1 || all[0].Status != starhunt.StatusAutoVerified {
		t.Errorf("requests = %+v, %v", all, err)
	}
}
