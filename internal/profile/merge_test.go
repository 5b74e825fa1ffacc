package profile

import (
	"errors"
	"testing"

	"github.com/illarion/envvault/internal/cipher"
	"github.com/illarion/envvault/internal/env"
)

func mergeFixture(t *testing.T) *Profile {
	t.Helper()
	s := newTestStore(t)
	p, err := s.Create("merge", nil, env.NewMap(env.New("A", "1"), env.New("B", "2")), cipher.NewNone())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestParseStrategy(t *testing.T) {
	for name, want := range map[string]MergeStrategy{
		"replace": StrategyReplace,
		"KEEP":    StrategyKeep,
		"ask":     StrategyAsk,
		"abort":   StrategyAbort,
	} {
		got, err := ParseStrategy(name)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseStrategy("merge"); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestMergeStrategies(t *testing.T) {
	incoming := env.NewMap(env.New("A", "1"), env.New("B", "changed"), env.New("C", "3"))

	tests := []struct {
		strategy MergeStrategy
		wantB    string
		replaced int
		kept     int
	}{
		{StrategyReplace, "changed", 1, 0},
		{StrategyKeep, "2", 0, 1},
	}

	for _, tt := range tests {
		p := mergeFixture(t)
		res, err := p.Merge(incoming, tt.strategy, nil)
		if err != nil {
			t.Fatalf("Merge(%v) failed: %v", tt.strategy, err)
		}
		if got, _ := p.Envs.Get("B"); got.Value != tt.wantB {
			t.Errorf("strategy %v: B = %q, want %q", tt.strategy, got.Value, tt.wantB)
		}
		if len(res.Added) != 1 || res.Added[0] != "C" {
			t.Errorf("strategy %v: added = %v", tt.strategy, res.Added)
		}
		if len(res.Unchanged) != 1 || res.Unchanged[0] != "A" {
			t.Errorf("strategy %v: unchanged = %v", tt.strategy, res.Unchanged)
		}
		if len(res.Replaced) != tt.replaced || len(res.Kept) != tt.kept {
			t.Errorf("strategy %v: result = %+v", tt.strategy, res)
		}
		if !res.Changed() {
			t.Errorf("strategy %v: C was added, expected a change", tt.strategy)
		}
	}
}

func TestMergeAbortLeavesProfileUnchanged(t *testing.T) {
	p := mergeFixture(t)
	incoming := env.NewMap(env.New("C", "3"), env.New("B", "changed"))

	_, err := p.Merge(incoming, StrategyAbort, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if p.Envs.Has("C") || p.Envs.Len() != 2 {
		t.Errorf("profile changed by aborted merge: %v", p.Envs.Keys())
	}
}

func TestMergeAsk(t *testing.T) {
	p := mergeFixture(t)
	incoming := env.NewMap(env.New("A", "new-a"), env.New("B", "new-b"))

	var asked []string
	resolve := func(current, in env.Env) (Resolution, error) {
		asked = append(asked, current.Name)
		if in.Name == "A" {
			return ResolutionReplace, nil
		}
		return ResolutionKeep, nil
	}

	res, err := p.Merge(incoming, StrategyAsk, resolve)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(asked) != 2 {
		t.Errorf("resolver called for %v", asked)
	}
	if a, _ := p.Envs.Get("A"); a.Value != "new-a" {
		t.Errorf("A = %q", a.Value)
	}
	if b, _ := p.Envs.Get("B"); b.Value != "2" {
		t.Errorf("B = %q", b.Value)
	}
	if len(res.Replaced) != 1 || len(res.Kept) != 1 {
		t.Errorf("result = %+v", res)
	}

	// Resolver errors abort the whole merge.
	stop := errors.New("stop")
	_, err = p.Merge(env.NewMap(env.New("B", "x"), env.New("Z", "z")), StrategyAsk,
		func(env.Env, env.Env) (Resolution, error) { return ResolutionKeep, stop })
	if !errors.Is(err, stop) || p.Envs.Has("Z") {
		t.Errorf("resolver error not propagated cleanly: %v", err)
	}

	if _, err := p.Merge(env.NewMap(env.New("B", "y")), StrategyAsk, nil); !errors.Is(err, ErrConflict) {
		t.Errorf("ask without resolver should conflict, got %v", err)
	}
}

func TestMergeComparesComments(t *testing.T) {
	p := mergeFixture(t)
	res, err := p.Merge(env.NewMap(env.New("A", "1").WithComment("note")), StrategyKeep, nil)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if len(res.Kept) != 1 || res.Changed() {
		t.Errorf("differing comment should be a conflict: %+v", res)
	}
}
