// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/models"
)

var (
	validatorOnce sync.Once
	validate      *validator.Validate
)

// validatorInstance returns the process-wide validator, built once on
// first use per the go-playground/validator singleton pattern (struct
// metadata is cached internally and is not safe to rebuild per-request).
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// DisplayRequest is the admin-supplied body for creating or replacing a
// Display.
type DisplayRequest struct {
	Name     string    `json:"name" validate:"required"`
	Schedule uuid.UUID `json:"schedule" validate:"required"`
}

func (r DisplayRequest) toModel() models.Display {
	return models.Display{Name: r.Name, Schedule: r.Schedule}
}

// PlaylistItemRequest is one entry of a PlaylistRequest's items.
type PlaylistItemRequest struct {
	Kind     models.PlaylistItemKind `json:"type" validate:"required,oneof=WEBSITE TEXT IMAGE BACKGROUND_AUDIO"`
	Name     string                  `json:"name"`
	Settings models.ItemSettings     `json:"settings"`
}

// PlaylistRequest is the admin-supplied body for creating or replacing a
// Playlist.
type PlaylistRequest struct {
	Name  string                `json:"name" validate:"required"`
	Items []PlaylistItemRequest `json:"items" validate:"dive"`
}

func (r PlaylistRequest) toModel() models.Playlist {
	items := make([]models.PlaylistItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = models.PlaylistItem{Kind: it.Kind, Name: it.Name, Settings: it.Settings}
	}
	return models.Playlist{Name: r.Name, Items: items}
}

// ScheduledRuleRequest is one entry of a ScheduleRequest's rules.
type ScheduledRuleRequest struct {
	Start    string    `json:"start" validate:"required"`
	End      string    `json:"end" validate:"required"`
	Playlist uuid.UUID `json:"playlist" validate:"required"`
}

// ScheduleRequest is the admin-supplied body for creating or replacing a
// Schedule. ActivePlaylist is never accepted from the client: it is
// resolved exclusively by the Scheduler Loop.
type ScheduleRequest struct {
	Name             string                 `json:"name" validate:"required"`
	FallbackPlaylist uuid.UUID              `json:"fallback_playlist" validate:"required"`
	Rules            []ScheduledRuleRequest `json:"rules" validate:"dive"`
}

func (r ScheduleRequest) toModel() models.Schedule {
	rules := make([]models.ScheduledRule, len(r.Rules))
	for i, rule := range r.Rules {
		rules[i] = models.ScheduledRule{Start: rule.Start, End: rule.End, Playlist: rule.Playlist}
	}
	return models.Schedule{Name: r.Name, Fallback: r.FallbackPlaylist, Rules: rules}
}

// duplicatePlaylistInRules reports whether r's rules name the same
// Playlist UUID more than once, which would make priority resolution
// ambiguous between two simultaneously-active rules for the same content.
func duplicatePlaylistInRules(r ScheduleRequest) bool {
	seen := make(map[uuid.UUID]struct{}, len(r.Rules))
	for _, rule := range r.Rules {
		if _, ok := seen[rule.Playlist]; ok {
			return true
		}
		seen[rule.Playlist] = struct{}{}
	}
	return false
}
