package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/playperu/starhunt/internal/starhunt"
)

func TestTeamTopic(t *testing.T) {
	tests := map[string]string{
		"Orion":       "team_sync_Orion",
		"Team Vega 7": "team_sync_Team_Vega_7",
		"Neb-ula!":    "team_sync_Neb_ula_",
		"":            "team_sync_",
	}
	for name, want := range tests {
		if got := TeamTopic(name); got != want {
			t.Errorf("TeamTopic(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	ctx := context.Background()

	player := b.Subscribe(TeamTopic("Orion"), TopicConfig)
	admin := b.Subscribe(TopicAdmin, TopicConfig)

	b.Publish(ctx, ConfigEvent(starhunt.GameConfig{Section3Unlocked: true}))
	for _, ch := range []chan Event{player, admin} {
		ev := <-ch
		if ev.Config == nil || !ev.Config.Section3Unlocked {
			t.Fatalf("config event = %+v", ev)
		}
	}

	for _, ev := range TeamEvents(OpUpdate, starhunt.NewTeamProfile("Orion", starhunt.RolePlayer)) {
		b.Publish(ctx, ev)
	}
	if ev := <-player; ev.Topic != "team_sync_Orion" || ev.Kind() != "team" {
		t.Errorf("player got %+v", ev)
	}
	if ev := <-admin; ev.Topic != TopicAdmin || ev.Team.Name != "Orion" {
		t.Errorf("admin got %+v", ev)
	}

	b.Unsubscribe(player, TeamTopic("Orion"), TopicConfig)
	if n := b.Subscribers(TeamTopic("Orion")); n != 0 {
		t.Errorf("subscribers after unsubscribe = %d", n)
	}
	if n := b.Subscribers(TopicConfig); n != 1 {
		t.Errorf("config subscribers = %d, want 1", n)
	}
}

func TestBrokerDropsForSlowSubscriber(t *testing.T) {
	b := NewBroker()
	dropped := 0
	b.OnDrop = func(string) { dropped++ }

	ch := b.Subscribe(TopicConfig)
	for range subscriberBuffer + 3 {
		b.Publish(context.Background(), ConfigEvent(starhunt.GameConfig{}))
	}
	if len(ch) != subscriberBuffer {
		t.Errorf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
}

func TestRedisBridgeRelay(t *testing.T) {
	local := NewBroker()
	r := &RedisBridge{local: local, instance: "self", logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	ch := local.Subscribe(TopicConfig)

	encode := func(instance string) string {
		b, _ := json.Marshal(envelope{Instance: instance, Event: ConfigEvent(starhunt.GameConfig{Section3Unlocked: true})})
		return string(b)
	}

	r.relay(context.Background(), encode("self"))
	r.relay(context.Background(), "{not json")
	if len(ch) != 0 {
		t.Fatalf("own or malformed message was relayed")
	}

	r.relay(context.Background(), encode("other"))
	ev := <-ch
	if ev.Config == nil || !ev.Config.Section3Unlocked || ev.Origin != OriginRemote {
		t.Errorf("relayed event = %+v", ev)
	}
}

func profile() *starhunt.TeamProfile {
	p := starhunt.NewTeamProfile("Orion", starhunt.RolePlayer)
	p.CurrentSection = 2
	p.HasRequestedPointing = true
	p.Points = 100
	p.StarsFound = 1
	p.SolvedIndices = []int{0}
	return &p
}

func TestReduceRemoteTeamKeepsClientFields(t *testing.T) {
	remote := starhunt.NewTeamProfile("Orion", starhunt.RolePlayer)
	remote.Points = 450
	remote.StarsFound = 3
	remote.SolvedIndices = []int{0, 1, 100}
	remote.Attempts[starhunt.AttemptKey{Section: 1, Index: 1}] = 1
	remote.TabletDiscovered = true

	got := Reduce(Snapshot{Profile: profile()}, TeamEvents(OpUpdate, remote)[0])

	if got.Profile.Points != 450 || got.Profile.StarsFound != 3 || !got.Profile.TabletDiscovered {
		t.Errorf("carried fields not applied: %+v", got.Profile)
	}
	if !slices.Equal(got.Profile.SolvedIndices, []int{0, 1, 100}) {
		t.Errorf("solved = %v", got.Profile.SolvedIndices)
	}
	if got.Profile.CurrentSection != 2 || !got.Profile.HasRequestedPointing {
		t.Errorf("client-held fields overwritten: %+v", got.Profile)
	}
}

func TestReduceIgnoresOtherTeamsAndDeletes(t *testing.T) {
	before := profile()
	other := starhunt.NewTeamProfile("Vega", starhunt.RolePlayer)
	other.Points = 9999

	s := Reduce(Snapshot{Profile: before}, TeamEvents(OpUpdate, other)[0])
	if s.Profile.Points != 100 {
		t.Errorf("other team's update applied: %d", s.Profile.Points)
	}

	same := starhunt.NewTeamProfile("Orion", starhunt.RolePlayer)
	s = Reduce(s, TeamEvents(OpDelete, same)[0])
	if s.Profile.Points != 100 {
		t.Errorf("delete applied: %+v", s.Profile)
	}

	if s := Reduce(Snapshot{}, TeamEvents(OpUpdate, same)[0]); s.Profile != nil {
		t.Error("logged-out snapshot gained a profile")
	}
}

func TestReduceLocalReplacesProfile(t *testing.T) {
	local := *profile()
	local.Points = 250
	local.CurrentSection = 3

	s := Reduce(Snapshot{Profile: profile()}, Event{Topic: TeamTopic("Orion"), Op: OpUpdate, Origin: OriginLocal, Team: &local})
	if s.Profile.Points != 250 || s.Profile.CurrentSection != 3 {
		t.Errorf("local event not applied: %+v", s.Profile)
	}
}

func TestReduceConfig(t *testing.T) {
	s := Reduce(Snapshot{}, ConfigEvent(starhunt.GameConfig{Sections12Unlocked: true, Section3Unlocked: true}))
	if !s.Config.Section3Unlocked || !s.Config.Sections12Unlocked {
		t.Errorf("config = %+v", s.Config)
	}
}

func TestReduceDoesNotAliasEvent(t *testing.T) {
	remote := starhunt.NewTeamProfile("Orion", starhunt.RolePlayer)
	remote.SolvedIndices = []int{0}
	ev := TeamEvents(OpUpdate, remote)[0]

	s := Reduce(Snapshot{Profile: profile()}, ev)
	s.Profile.SolvedIndices[0] = 42
	if ev.Team.SolvedIndices[0] != 0 {
		t.Error("snapshot aliases the event payload")
	}
}
