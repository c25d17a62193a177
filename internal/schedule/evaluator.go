// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package schedule also hosts the Evaluator: the pure, deterministic
// currentPlaylist/nextMoment pair that the Scheduler Loop drives. Both
// functions are grounded on the reference schedule store's current_playlist
// and next_schedule algorithms: rules are consulted in priority (sequence)
// order, and a rule always terminates the scan either by firing or by the
// implicit fallback rule appended at construction.
package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/logging"
	"github.com/stagrim/castad/internal/models"
)

type ruleKind int

const (
	kindRule ruleKind = iota
	kindFallback
)

type compiledRule struct {
	kind     ruleKind
	start    *Expression
	end      *Expression
	playlist uuid.UUID
}

// Evaluator is a Schedule compiled into parsed cron expressions, with its
// fallback appended as an always-matching final rule. The zero value is not
// usable; construct with NewEvaluator.
type Evaluator struct {
	name  string
	rules []compiledRule
}

// NewEvaluator parses every rule's start/end cron expressions and appends
// the Schedule's fallback playlist as a final, unconditional rule. An
// invalid cron expression anywhere in the Schedule fails the whole
// construction, matching the spec's "invalid expressions are rejected at
// Schedule creation/update" requirement.
func NewEvaluator(s models.Schedule) (*Evaluator, error) {
	rules := make([]compiledRule, 0, len(s.Rules)+1)
	for i, r := range s.Rules {
		start, err := ParseExpression(r.Start)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: rule %d start: %w", s.Name, i, err)
		}
		var end *Expression
		if r.End != "" {
			end, err = ParseExpression(r.End)
			if err != nil {
				return nil, fmt.Errorf("schedule %q: rule %d end: %w", s.Name, i, err)
			}
		}
		rules = append(rules, compiledRule{kind: kindRule, start: start, end: end, playlist: r.Playlist})
	}
	rules = append(rules, compiledRule{kind: kindFallback, playlist: s.Fallback})

	return &Evaluator{name: s.Name, rules: rules}, nil
}

// CurrentPlaylist returns the playlist that should be showing at t. It
// always returns a result: the trailing fallback rule matches
// unconditionally.
func (e *Evaluator) CurrentPlaylist(t time.Time) uuid.UUID {
	for _, r := range e.rules {
		if r.kind == kindFallback {
			return r.playlist
		}

		lastStart, hasStart := r.start.PreviousAtOrBefore(t)
		if !hasStart {
			continue
		}

		if r.end == nil {
			return r.playlist
		}

		lastEnd, hasEnd := r.end.PreviousAtOrBefore(t)
		if !hasEnd {
			return r.playlist
		}

		switch {
		case lastStart.After(lastEnd):
			return r.playlist
		case lastStart.Before(lastEnd):
			continue
		default:
			logging.WithComponent("schedule").Warn().
				Str("schedule", e.name).
				Str("playlist", r.playlist.String()).
				Time("time", lastStart).
				Msg("schedule rule start and end fired at the same instant, treating as inactive")
			continue
		}
	}
	return uuid.Nil
}

// NextMoment finds the earliest instant strictly after from at which
// CurrentPlaylist's result changes. It mirrors the reference implementation's
// per-rule forward-iterator state machine: a rule that is already the active
// playlist at from can only be dethroned by its own end firing, so only its
// end cron is stepped; every other rule steps whichever of its start/end
// fires first. A rule whose start and end fire at the exact same instant is
// logged and dropped from consideration, since the tie cannot be resolved.
func (e *Evaluator) NextMoment(from time.Time) (models.Moment, bool) {
	current := e.CurrentPlaylist(from)

	type ruleState struct {
		rule      compiledRule
		cursor    time.Time
		exhausted bool
		hasMoment bool
		moment    models.Moment
	}

	states := make([]*ruleState, 0, len(e.rules))
	for _, r := range e.rules {
		if r.kind == kindFallback {
			continue
		}
		states = append(states, &ruleState{rule: r, cursor: from})
	}
	if len(states) == 0 {
		return models.Moment{}, false
	}

	for {
		bestIdx := -1
		var bestTime time.Time
		for i, st := range states {
			if !st.hasMoment {
				continue
			}
			if bestIdx == -1 || st.moment.Time.Before(bestTime) {
				bestIdx, bestTime = i, st.moment.Time
			}
		}

		progressed := false
		for _, st := range states {
			if st.exhausted || st.hasMoment {
				continue
			}
			if bestIdx != -1 && !st.cursor.Before(bestTime) {
				continue
			}
			progressed = true

			candidate, ok := e.stepRule(st.rule, st.cursor, current)
			if !ok {
				st.exhausted = true
				continue
			}
			st.cursor = candidate

			if candidateCurrent := e.CurrentPlaylist(candidate); candidateCurrent != current {
				st.hasMoment = true
				st.moment = models.Moment{Time: candidate, Playlist: candidateCurrent}
			}
		}

		if !progressed {
			break
		}
	}

	bestIdx := -1
	var bestTime time.Time
	for i, st := range states {
		if !st.hasMoment {
			continue
		}
		if bestIdx == -1 || st.moment.Time.Before(bestTime) {
			bestIdx, bestTime = i, st.moment.Time
		}
	}
	if bestIdx == -1 {
		return models.Moment{}, false
	}
	return states[bestIdx].moment, true
}

// stepRule advances a single rule past cursor to its next candidate firing.
// current is the playlist active at the original from instant the whole
// NextMoment search started from: if this rule's own playlist is already
// current, only its end cron can produce a meaningful transition.
func (e *Evaluator) stepRule(rule compiledRule, cursor time.Time, current uuid.UUID) (time.Time, bool) {
	if rule.playlist == current {
		if rule.end == nil {
			return time.Time{}, false
		}
		return rule.end.NextAfter(cursor)
	}

	ns, oks := rule.start.NextAfter(cursor)
	if rule.end == nil {
		return ns, oks
	}

	ne, oke := rule.end.NextAfter(cursor)
	switch {
	case oks && oke:
		if ns.Equal(ne) {
			logging.WithComponent("schedule").Error().
				Str("playlist", rule.playlist.String()).
				Time("time", ns).
				Msg("schedule rule has a start and end time at the same timestamp, ignoring rule")
			return time.Time{}, false
		}
		if ns.Before(ne) {
			return ns, true
		}
		return ne, true
	case oks:
		return ns, true
	case oke:
		return ne, true
	default:
		return time.Time{}, false
	}
}

// HasScheduledPlaylists reports whether the schedule has any rule beyond its
// implicit fallback.
func (e *Evaluator) HasScheduledPlaylists() bool {
	for _, r := range e.rules {
		if r.kind == kindRule {
			return true
		}
	}
	return false
}

// AllPlaylists returns every playlist UUID this schedule can ever resolve
// to, including the fallback, for referential-integrity checks.
func (e *Evaluator) AllPlaylists() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.playlist)
	}
	return out
}
