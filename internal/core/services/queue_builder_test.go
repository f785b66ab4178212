package services

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jordanpartridge/conduit-dj/internal/core/domain"
)

type preferenceFunc func(domain.Track) float64

func (f preferenceFunc) Score(t domain.Track) float64 { return f(t) }

func newTestBuilder() *QueueBuilder {
	return NewQueueBuilder(NewBeatMatcher(DefaultBeatMatchConfig()), DefaultQueueConfig())
}

func TestQueueBuilder_EmptyPool(t *testing.T) {
	res := newTestBuilder().Build(nil, nil, BuildOptions{Size: 10})

	if len(res.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(res.Entries))
	}
	if res.Stop != StopNoCandidates {
		t.Fatalf("expected stop %s, got %s", StopNoCandidates, res.Stop)
	}
}

func TestQueueBuilder_PoolExhausted(t *testing.T) {
	pool := []domain.Track{
		track("a", 128, 0, domain.Major, 0.8),
		track("b", 128, 0, domain.Major, 0.8),
	}

	res := newTestBuilder().Build(pool, nil, BuildOptions{Size: 5, Mode: "party"})

	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if res.Stop != StopPoolExhausted {
		t.Fatalf("expected stop %s, got %s", StopPoolExhausted, res.Stop)
	}
	for i, e := range res.Entries {
		if e.Position != i {
			t.Fatalf("entry %d has position %d", i, e.Position)
		}
	}
}

func TestQueueBuilder_NoDuplicates(t *testing.T) {
	a := track("a", 128, 0, domain.Major, 0.8)
	b := track("b", 126, 7, domain.Major, 0.75)
	pool := []domain.Track{a, a, b, a}

	res := newTestBuilder().Build(pool, nil, BuildOptions{Size: 5})

	seen := map[string]bool{}
	for _, e := range res.Entries {
		if seen[e.Track.ID] {
			t.Fatalf("track %s queued twice", e.Track.ID)
		}
		seen[e.Track.ID] = true
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 distinct entries, got %d", len(res.Entries))
	}
}

func TestQueueBuilder_Size(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{name: "zero uses minimum", requested: 0, want: 5},
		{name: "negative uses minimum", requested: -3, want: 5},
		{name: "within bounds", requested: 8, want: 8},
		{name: "clamped to maximum", requested: 50, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestBuilder().Build(nil, nil, BuildOptions{Size: tt.requested})
			if res.Requested != tt.want {
				t.Fatalf("requested: got %d, want %d", res.Requested, tt.want)
			}
		})
	}
}

func TestQueueBuilder_ModeResolution(t *testing.T) {
	tests := []struct {
		name       string
		mode       string
		override   *float64
		wantMode   string
		wantTarget float64
	}{
		{name: "empty defaults to party", mode: "", wantMode: "party", wantTarget: 0.8},
		{name: "known mode", mode: "chill", wantMode: "chill", wantTarget: 0.3},
		{name: "unknown mode is neutral", mode: "polka", wantMode: "polka", wantTarget: 0.5},
		{name: "explicit target wins", mode: "chill", override: domain.Ptr(0.65), wantMode: "chill", wantTarget: 0.65},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestBuilder().Build(nil, nil, BuildOptions{Mode: tt.mode, TargetEnergy: tt.override})
			if res.Mode != tt.wantMode || res.TargetEnergy != tt.wantTarget {
				t.Fatalf("got mode %q target %v, want %q target %v", res.Mode, res.TargetEnergy, tt.wantMode, tt.wantTarget)
			}
		})
	}
}

func TestQueueBuilder_Deterministic(t *testing.T) {
	var pool []domain.Track
	for i := 0; i < 12; i++ {
		tr := track(fmt.Sprintf("t%02d", i), 110+float64(i*3), i%12, domain.Mode(i%2), 0.4+float64(i%5)*0.1)
		tr.Artist = fmt.Sprintf("Artist %d", i%4)
		pool = append(pool, tr)
	}
	history := domain.NewHistory(3)
	history.Add(pool[0])
	current := track("now", 124, 5, domain.Minor, 0.7)

	b := newTestBuilder()
	opts := BuildOptions{Size: 8, Mode: "workout", CurrentTrack: &current}
	first := b.Build(pool, history, opts)
	second := b.Build(pool, history, opts)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("builds differ:\n%+v\n%+v", first, second)
	}
	if pool[0].ID != "t00" || pool[11].ID != "t11" {
		t.Fatalf("pool was reordered")
	}
	if history.Len() != 1 {
		t.Fatalf("history was modified: len %d", history.Len())
	}
}

func TestQueueBuilder_PicksSmoothestTransition(t *testing.T) {
	current := track("now", 128, 0, domain.Major, 0.8)
	clash := track("clash", 90, 4, domain.Minor, 0.8)
	smooth := track("smooth", 128, 0, domain.Major, 0.8)

	res := newTestBuilder().Build([]domain.Track{clash, smooth}, nil, BuildOptions{Size: 1, CurrentTrack: &current})

	if len(res.Entries) != 1 || res.Entries[0].Track.ID != "smooth" {
		t.Fatalf("expected smooth first, got %+v", res.Entries)
	}
	if !strings.HasPrefix(res.Entries[0].Reason, "beatmatch from") {
		t.Fatalf("unexpected reason %q", res.Entries[0].Reason)
	}
}

func TestQueueBuilder_OpenerReason(t *testing.T) {
	res := newTestBuilder().Build([]domain.Track{track("a", 128, 0, domain.Major, 0.8)}, nil, BuildOptions{Size: 1})

	if len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(res.Entries))
	}
	if !strings.HasPrefix(res.Entries[0].Reason, "opener:") {
		t.Fatalf("unexpected reason %q", res.Entries[0].Reason)
	}
	if res.Stop != StopFilled {
		t.Fatalf("expected stop %s, got %s", StopFilled, res.Stop)
	}
}

func TestQueueBuilder_PrefersFreshArtists(t *testing.T) {
	history := domain.NewHistory(3)
	for i := 0; i < 3; i++ {
		played := track(fmt.Sprintf("played-%d", i), 128, 0, domain.Major, 0.8)
		played.Artist = "Repeat"
		history.Add(played)
	}

	repeat := track("r1", 128, 0, domain.Major, 0.8)
	repeat.Artist = "Repeat"
	fresh := track("f1", 128, 0, domain.Major, 0.8)
	fresh.Artist = "Fresh"

	res := newTestBuilder().Build([]domain.Track{repeat, fresh}, history, BuildOptions{Size: 1})

	if len(res.Entries) != 1 || res.Entries[0].Track.ID != "f1" {
		t.Fatalf("expected the fresh artist first, got %+v", res.Entries)
	}
}

func TestQueueBuilder_StopsBelowFloor(t *testing.T) {
	flat := analyzerFunc(func(from, to domain.Track) domain.CompatibilityResult {
		return domain.CompatibilityResult{}
	})
	b := NewQueueBuilder(flat, DefaultQueueConfig())
	pool := []domain.Track{
		track("a", 128, 0, domain.Major, 1.0),
		track("b", 128, 0, domain.Major, 1.0),
		track("c", 128, 0, domain.Major, 1.0),
	}

	res := b.Build(pool, nil, BuildOptions{
		Size:       3,
		Mode:       "chill",
		Preference: preferenceFunc(func(domain.Track) float64 { return 0 }),
	})

	if len(res.Entries) != 1 {
		t.Fatalf("expected only the opener, got %d entries", len(res.Entries))
	}
	if res.Stop != StopBelowFloor {
		t.Fatalf("expected stop %s, got %s", StopBelowFloor, res.Stop)
	}
}

func TestQueueBuilder_TiesKeepPoolOrder(t *testing.T) {
	pool := []domain.Track{
		track("first", 128, 0, domain.Major, 0.8),
		track("second", 128, 0, domain.Major, 0.8),
	}
	pool[1].Artist = pool[0].Artist

	res := newTestBuilder().Build(pool, nil, BuildOptions{Size: 1})
	if res.Entries[0].Track.ID != "first" {
		t.Fatalf("expected first pool entry on a tie, got %s", res.Entries[0].Track.ID)
	}
}

func TestIdealEnergy(t *testing.T) {
	tests := []struct {
		name     string
		curve    domain.EnergyCurve
		target   float64
		position int
		total    int
		want     float64
	}{
		{name: "steady", curve: domain.CurveSteady, target: 0.6, position: 3, total: 5, want: 0.6},
		{name: "ascending start", curve: domain.CurveAscending, target: 0.8, position: 0, total: 5, want: 0.56},
		{name: "ascending end", curve: domain.CurveAscending, target: 0.8, position: 4, total: 5, want: 0.88},
		{name: "ascending single slot", curve: domain.CurveAscending, target: 0.8, position: 0, total: 1, want: 0.56},
		{name: "wave start", curve: domain.CurveWave, target: 0.5, position: 0, total: 4, want: 0.5},
		{name: "wave crest", curve: domain.CurveWave, target: 0.5, position: 1, total: 4, want: 0.6},
		{name: "wave trough", curve: domain.CurveWave, target: 0.5, position: 3, total: 4, want: 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdealEnergy(tt.curve, tt.target, tt.position, tt.total); !approx(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnergyFitScore(t *testing.T) {
	profile := domain.ModeProfile{TargetEnergy: 0.5, EnergyVariance: 0.1, EnergyCurve: domain.CurveSteady}

	if got := EnergyFitScore(0.55, profile, 0.5, 0, 5); got != 100 {
		t.Fatalf("inside variance: got %v, want 100", got)
	}
	if got := EnergyFitScore(0.7, profile, 0.8, 0, 5); got != 100 {
		t.Fatalf("variance edge: got %v, want 100", got)
	}
	if got := EnergyFitScore(0.8, profile, 0.5, 0, 5); !approx(got, 40) {
		t.Fatalf("outside variance: got %v, want 40", got)
	}
	if got := EnergyFitScore(0.0, domain.ModeProfile{EnergyCurve: domain.CurveSteady}, 0.9, 0, 5); got != 0 {
		t.Fatalf("far outside: got %v, want 0", got)
	}
}
