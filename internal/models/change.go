// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "github.com/google/uuid"

// ChangeKind discriminates the Change variants published on the bus.
type ChangeKind string

const (
	// ChangeDisplay means one or more Displays were created, updated or
	// deleted.
	ChangeDisplay ChangeKind = "display"
	// ChangePlaylist means one or more Playlists were created, updated or
	// deleted.
	ChangePlaylist ChangeKind = "playlist"
	// ChangeScheduleInput means the admin changed a Schedule's rules; the
	// active playlist has not yet been re-resolved by the scheduler.
	ChangeScheduleInput ChangeKind = "schedule_input"
	// ChangeSchedule means the scheduler has finished resolving the
	// active playlist for one or more Schedules.
	ChangeSchedule ChangeKind = "schedule"
)

// Change is a typed notification that some catalog subset has mutated.
// UUIDs names the affected entities of the given Kind.
type Change struct {
	Kind  ChangeKind
	UUIDs map[uuid.UUID]struct{}
}

// NewChange builds a Change from a kind and a list of affected UUIDs.
func NewChange(kind ChangeKind, ids ...uuid.UUID) Change {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Change{Kind: kind, UUIDs: set}
}

// Contains reports whether id is one of the affected UUIDs.
func (c Change) Contains(id uuid.UUID) bool {
	_, ok := c.UUIDs[id]
	return ok
}

// Any reports whether any of the given predicate-matching UUIDs is present.
func (c Change) Any(ids ...uuid.UUID) bool {
	for _, id := range ids {
		if c.Contains(id) {
			return true
		}
	}
	return false
}
