package starhunt

import (
	"slices"
	"testing"
	"time"
)

var testTime = time.Date(2026, 1, 31, 20, 0, 0, 0, time.UTC)

func submit(t *testing.T, p TeamProfile, section, index int, answer string) Result {
	t.Helper()
	res, err := Submit(p, DefaultCatalog(), Submission{
		Position: Position{Section: section, Index: index},
		Answer:   answer,
		At:       testTime,
	})
	if err != nil {
		t.Fatalf("submit %d-%d: %v", section, index, err)
	}
	return res
}

func TestSubmitLocksAfterTwoIncorrect(t *testing.T) {
	for _, section := range []int{1, 2} {
		p := NewTeamProfile("Orion", RolePlayer)
		for i := 0; i < 2; i++ {
			res := submit(t, p, section, 1, "wrong")
			if res.Outcome != OutcomeIncorrect {
				t.Fatalf("section %d attempt %d: outcome = %s, want incorrect", section, i+1, res.Outcome)
			}
			p = res.Profile
		}

		res := submit(t, p, section, 1, "wrong")
		if res.Outcome != OutcomeLocked {
			t.Fatalf("section %d third attempt: outcome = %s, want locked", section, res.Outcome)
		}
		if res.Request != nil {
			t.Errorf("section %d: locked submission produced a request", section)
		}
		if got := res.Profile.Attempts.Get(Position{Section: section, Index: 1}); got != 2 {
			t.Errorf("section %d: attempts = %d, want 2", section, got)
		}

		// Even the right answer is refused once locked.
		riddle, _ := DefaultCatalog().Riddle(Position{Section: section, Index: 1})
		if res := submit(t, p, section, 1, riddle.AcceptedAnswers[0]); res.Outcome != OutcomeLocked {
			t.Errorf("section %d: correct answer on locked slot = %s", section, res.Outcome)
		}
	}
}

func TestSubmitSectionThreeNeverLocks(t *testing.T) {
	p := NewTeamProfile("Orion", RolePlayer)
	for i := 0; i < 25; i++ {
		res := submit(t, p, 3, 0, "black hole")
		if res.Outcome != OutcomeIncorrect {
			t.Fatalf("attempt %d: outcome = %s, want incorrect", i+1, res.Outcome)
		}
		if res.Request == nil || res.Request.Status != StatusRejected {
			t.Fatalf("attempt %d: request = %+v, want rejected entry", i+1, res.Request)
		}
		p = res.Profile
	}
	if len(p.Attempts) != 0 {
		t.Errorf("section 3 touched attempts: %v", p.Attempts)
	}
	if res := submit(t, p, 3, 0, "Sagittarius A*"); res.Outcome != OutcomeSolved {
		t.Errorf("correct answer after 25 misses: outcome = %s", res.Outcome)
	}
}

func TestSubmitScoring(t *testing.T) {
	tests := []struct {
		section    int
		answer     string
		wantPoints int
		wantStatus Status
	}{
		{1, "Aldebaran", 100, StatusPending},
		{2, " POLARIS ", 150, StatusAutoVerified},
		{3, "sagittarius a", 200, StatusAutoVerified},
	}
	for _, tt := range tests {
		p := NewTeamProfile("Orion", RolePlayer)
		res := submit(t, p, tt.section, 0, tt.answer)

		if res.Outcome != OutcomeSolved {
			t.Errorf("section %d: outcome = %s, want solved", tt.section, res.Outcome)
		}
		if res.Profile.Points != tt.wantPoints {
			t.Errorf("section %d: points = %d, want %d", tt.section, res.Profile.Points, tt.wantPoints)
		}
		if res.Profile.StarsFound != 1 {
			t.Errorf("section %d: stars = %d, want 1", tt.section, res.Profile.StarsFound)
		}
		want := (tt.section - 1) * 100
		if !slices.Equal(res.Profile.SolvedIndices, []int{want}) {
			t.Errorf("section %d: solved = %v, want [%d]", tt.section, res.Profile.SolvedIndices, want)
		}
		if res.Request.Status != tt.wantStatus {
			t.Errorf("section %d: status = %s, want %s", tt.section, res.Request.Status, tt.wantStatus)
		}
		if res.Request.Kind != KindSubmission || *res.Request.Section != tt.section {
			t.Errorf("section %d: request = %+v", tt.section, res.Request)
		}
		if p.Points != 0 || len(p.SolvedIndices) != 0 {
			t.Errorf("section %d: input profile was mutated: %+v", tt.section, p)
		}
	}
}

func TestSubmitIncorrectAwardsNothing(t *testing.T) {
	p := NewTeamProfile("Orion", RolePlayer)
	res := submit(t, p, 1, 0, "Betelgeuse")

	if res.Outcome != OutcomeIncorrect {
		t.Fatalf("outcome = %s, want incorrect", res.Outcome)
	}
	if res.Profile.Points != 0 || res.Profile.StarsFound != 0 || len(res.Profile.SolvedIndices) != 0 {
		t.Errorf("incorrect answer changed totals: %+v", res.Profile)
	}
	// Section 1 is logged as pending even when wrong.
	if res.Request.Status != StatusPending {
		t.Errorf("status = %s, want pending", res.Request.Status)
	}
	if *res.Request.SubmittedAnswer != "Betelgeuse" {
		t.Errorf("submitted answer = %q", *res.Request.SubmittedAnswer)
	}
}

func TestSubmitAlreadySolvedIsIdempotent(t *testing.T) {
	p := submit(t, NewTeamProfile("Orion", RolePlayer), 2, 3, "alpheratz").Profile

	res := submit(t, p, 2, 3, "alpheratz")
	if res.Outcome != OutcomeAlreadySolved {
		t.Fatalf("outcome = %s, want already-solved", res.Outcome)
	}
	if res.Request != nil {
		t.Error("already-solved produced a request")
	}
	if res.Profile.Points != p.Points || res.Profile.StarsFound != p.StarsFound {
		t.Errorf("totals changed: %+v -> %+v", p, res.Profile)
	}
	if got := res.Profile.Attempts.Get(Position{Section: 2, Index: 3}); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestSubmitTabletDiscovery(t *testing.T) {
	p := NewTeamProfile("Orion", RolePlayer)

	res := submit(t, p, 3, 2, "wrong")
	if res.Profile.TabletDiscovered || res.NewTablet {
		t.Fatal("tablet discovered on an incorrect answer")
	}

	res = submit(t, res.Profile, 3, 2, "solar system")
	if !res.Profile.TabletDiscovered || !res.NewTablet {
		t.Fatal("tablet not discovered on new solve of 3-2")
	}

	other := submit(t, res.Profile, 3, 1, "binary star")
	if !other.Profile.TabletDiscovered {
		t.Error("tablet flag cleared by a later solve")
	}
	if other.NewTablet {
		t.Error("NewTablet set for a different riddle")
	}
}

func TestSubmitSignalsCompletionAndPointingPrompt(t *testing.T) {
	c := DefaultCatalog()
	last := c.Count(3) - 1
	rd, _ := c.Riddle(Position{Section: 3, Index: last})
	if res := submit(t, NewTeamProfile("Orion", RolePlayer), 3, last, rd.AcceptedAnswers[0]); !res.HuntCompleted {
		t.Error("final riddle did not complete the hunt")
	}

	p := NewTeamProfile("Orion", RolePlayer)
	answers := []string{"aldebaran", "mirfak", "sirius"}
	var res Result
	for i, a := range answers {
		res = submit(t, p, 1, i, a)
		p = res.Profile
		if i < 2 && res.PointingPrompt {
			t.Fatalf("pointing prompt after %d solves", i+1)
		}
	}
	if !res.PointingPrompt {
		t.Error("no pointing prompt after the third section-1 solve")
	}
}

func TestSubmitRejectsUnknownRiddle(t *testing.T) {
	p := NewTeamProfile("Orion", RolePlayer)
	for _, pos := range []Position{{Section: 1, Index: 42}, {Section: 4, Index: 0}} {
		if _, err := Submit(p, DefaultCatalog(), Submission{Position: pos, Answer: "x"}); err == nil {
			t.Errorf("submit %v: expected error", pos)
		}
	}
}
