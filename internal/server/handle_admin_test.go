package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/starhunt"
)

// doCookie sends a JSON request authenticated by the admin cookie only.
func (e *testEnv) doCookie(t *testing.T, method, path, cookie string, body, out any) *http.Response {
	t.Helper()

	var b []byte
	if body != nil {
		var err error
		if b, err = json.Marshal(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: cookie})

	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func TestAdminLoginSetsCookie(t *testing.T) {
	env := setup(t, Deps{})

	resp := env.do(t, http.MethodPost, "/api/admin/login", "", AdminLoginRequest{Pin: "nope1"}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong pin: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}

	var login hunt.Login
	resp = env.do(t, http.MethodPost, "/api/admin/login", "", AdminLoginRequest{Pin: testAdminPin}, &login)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == adminCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != login.Token || !cookie.HttpOnly {
		t.Fatalf("cookie = %+v", cookie)
	}

	var me AdminMeResponse
	resp = env.doCookie(t, http.MethodGet, "/api/admin/me", cookie.Value, nil, &me)
	if resp.StatusCode != http.StatusOK || me.Role != starhunt.RoleAdmin {
		t.Errorf("me: status = %d, body = %+v", resp.StatusCode, me)
	}

	resp = env.doCookie(t, http.MethodPost, "/api/admin/logout", cookie.Value, nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("logout: status = %d", resp.StatusCode)
	}
	resp = env.doCookie(t, http.MethodGet, "/api/admin/me", cookie.Value, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("after logout: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestAdminRoutesRejectPlayers(t *testing.T) {
	env := setup(t, Deps{})
	player := env.registerAndLogin(t, "Orion")

	resp := env.do(t, http.MethodGet, "/api/admin/requests", player.Token, nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("player: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
	resp = env.do(t, http.MethodGet, "/api/admin/requests", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous: status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
}

func TestAdminDecision(t *testing.T) {
	env := setup(t, Deps{})
	player := env.registerAndLogin(t, "Orion")
	admin := env.adminLogin(t)

	// A wrong section 1 answer still waits for a human.
	env.do(t, http.MethodPost, "/api/game/answer", player.Token, AnswerRequest{Section: 1, Index: 0, Answer: "betelgeuse"}, nil)
	env.do(t, http.MethodPost, "/api/game/answer", player.Token, AnswerRequest{Section: 2, Index: 0, Answer: "polaris"}, nil)

	var pending []starhunt.VerificationRequest
	resp := env.do(t, http.MethodGet, "/api/admin/requests?status=pending", admin.Token, nil, &pending)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d", resp.StatusCode)
	}
	if len(pending) != 1 || pending[0].SubjectName != "aldebaran" {
		t.Fatalf("pending = %+v", pending)
	}

	var all []starhunt.VerificationRequest
	env.do(t, http.MethodGet, "/api/admin/requests", admin.Token, nil, &all)
	if len(all) != 2 {
		t.Errorf("all requests = %d, want 2", len(all))
	}

	resp = env.do(t, http.MethodGet, "/api/admin/requests?status=bogus", admin.Token, nil, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status filter: status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	path := "/api/admin/requests/" + pending[0].ID + "/decision"
	resp = env.do(t, http.MethodPost, path, admin.Token, DecisionRequest{Decision: "maybe"}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad decision: status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	var out hunt.Decided
	resp = env.do(t, http.MethodPost, path, admin.Token, DecisionRequest{Decision: starhunt.DecisionApprove}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("approve: status = %d", resp.StatusCode)
	}
	if out.Request.Status != starhunt.StatusApproved || out.Team == nil {
		t.Fatalf("decided = %+v", out)
	}
	// 150 for the section 2 auto-verify, 100 for the approval.
	if out.Team.Points != 250 || out.Team.StarsFound != 2 {
		t.Errorf("team = %+v", out.Team)
	}

	var body ErrorResponse
	resp = env.do(t, http.MethodPost, path, admin.Token, DecisionRequest{Decision: starhunt.DecisionApprove}, &body)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second decision: status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	resp = env.do(t, http.MethodPost, "/api/admin/requests/missing/decision", admin.Token, DecisionRequest{Decision: starhunt.DecisionReject}, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing request: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	var teams []starhunt.TeamProfile
	env.do(t, http.MethodGet, "/api/admin/teams", admin.Token, nil, &teams)
	if len(teams) != 1 || teams[0].Name != "Orion" || teams[0].Points != 250 {
		t.Errorf("leaderboard = %+v", teams)
	}
}

func TestAdminTogglesSectionThree(t *testing.T) {
	env := setup(t, Deps{})
	player := env.registerAndLogin(t, "Orion")
	admin := env.adminLogin(t)

	resp := env.do(t, http.MethodPost, "/api/game/sections/3", player.Token, nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("before toggle: status = %d, want %d", resp.StatusCode, http.StatusForbidden)
	}

	var cfg starhunt.GameConfig
	resp = env.do(t, http.MethodPut, "/api/admin/config", admin.Token, starhunt.GameConfig{Sections12Unlocked: true, Section3Unlocked: true}, &cfg)
	if resp.StatusCode != http.StatusOK || !cfg.Section3Unlocked {
		t.Fatalf("set config: status = %d, cfg = %+v", resp.StatusCode, cfg)
	}

	var sec SectionResponse
	resp = env.do(t, http.MethodPost, "/api/game/sections/3", player.Token, nil, &sec)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("after toggle: status = %d", resp.StatusCode)
	}
	if len(sec.Riddles) != 6 {
		t.Errorf("section 3 riddles = %d, want 6", len(sec.Riddles))
	}

	var res starhunt.Result
	env.do(t, http.MethodPost, "/api/game/answer", player.Token, AnswerRequest{Section: 3, Index: 2, Answer: "solar system"}, &res)
	if res.Outcome != starhunt.OutcomeSolved || !res.NewTablet || !res.Profile.TabletDiscovered {
		t.Errorf("tablet result = %+v", res)
	}
}
