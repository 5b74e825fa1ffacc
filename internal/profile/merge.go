package profile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/illarion/envvault/internal/env"
	"go.uber.org/zap"
)

// MergeStrategy defines how to handle records that already exist with a
// different value
type MergeStrategy int

const (
	StrategyReplace MergeStrategy = iota // Always take the incoming record
	StrategyKeep                         // Always keep the profile's record
	StrategyAsk                          // Ask the resolver for each conflict
	StrategyAbort                        // Fail on any conflict
)

var strategyNames = map[string]MergeStrategy{
	"replace": StrategyReplace,
	"keep":    StrategyKeep,
	"ask":     StrategyAsk,
	"abort":   StrategyAbort,
}

// ErrConflict is returned by Merge under StrategyAbort
var ErrConflict = errors.New("conflicting record")

// ParseStrategy parses a strategy name: replace, keep, ask or abort
func ParseStrategy(s string) (MergeStrategy, error) {
	st, ok := strategyNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("unknown merge strategy %q (want replace, keep, ask or abort)", s)
	}
	return st, nil
}

// Resolution is the choice made for one conflict
type Resolution int

const (
	ResolutionReplace Resolution = iota
	ResolutionKeep
)

// Resolver decides a single conflict for StrategyAsk
type Resolver func(current, incoming env.Env) (Resolution, error)

// MergeResult lists record names by outcome
type MergeResult struct {
	Added     []string
	Replaced  []string
	Kept      []string
	Unchanged []string
}

// Changed reports whether the merge modified the profile
func (r *MergeResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Replaced) > 0
}

// Merge inserts the incoming records. Records that exist with different
// content are conflicts, settled by strategy. Every conflict is decided
// before anything is written, so an error leaves the profile unchanged.
func (p *Profile) Merge(incoming *env.Map, strategy MergeStrategy, resolve Resolver) (*MergeResult, error) {
	result := &MergeResult{}
	var apply []env.Env

	for _, in := range incoming.Envs() {
		if err := in.Validate(); err != nil {
			return nil, err
		}

		current, exists := p.Envs.Get(in.Name)
		switch {
		case !exists:
			result.Added = append(result.Added, in.Name)
			apply = append(apply, in)
			continue
		case current.Equal(in):
			result.Unchanged = append(result.Unchanged, in.Name)
			continue
		}

		res, err := p.resolveConflict(current, in, strategy, resolve)
		if err != nil {
			return nil, err
		}
		if res == ResolutionKeep {
			result.Kept = append(result.Kept, in.Name)
			continue
		}
		result.Replaced = append(result.Replaced, in.Name)
		apply = append(apply, in)
	}

	for _, e := range apply {
		p.Envs.Insert(e)
	}

	p.log.Debug("merged records",
		zap.Int("added", len(result.Added)),
		zap.Int("replaced", len(result.Replaced)),
		zap.Int("kept", len(result.Kept)))
	return result, nil
}

func (p *Profile) resolveConflict(current, incoming env.Env, strategy MergeStrategy, resolve Resolver) (Resolution, error) {
	switch strategy {
	case StrategyReplace:
		return ResolutionReplace, nil
	case StrategyKeep:
		return ResolutionKeep, nil
	case StrategyAsk:
		if resolve == nil {
			return ResolutionKeep, fmt.Errorf("%w: %s (no resolver)", ErrConflict, incoming.Name)
		}
		return resolve(current, incoming)
	default:
		return ResolutionKeep, fmt.Errorf("%w: %s", ErrConflict, incoming.Name)
	}
}
