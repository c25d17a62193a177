// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the catalog entities shared by the catalog store,
// the schedule evaluator, the viewer transport, and the admin REST surface:
// Display, Playlist, PlaylistItem, Schedule, ScheduledRule, Moment and
// Change.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Display is a physical viewer endpoint. Name is unique within the catalog;
// Schedule points at the Schedule governing what the viewer renders.
type Display struct {
	Name     string    `json:"name"`
	Schedule uuid.UUID `json:"schedule"`
}

// legacyDisplay is the pre-name schema: a Display held only a schedule
// reference. Deserialization of Content falls back to this shape so catalogs
// persisted by older controllers still load.
type legacyDisplay struct {
	Schedule uuid.UUID `json:"schedule"`
}

// Playlist is an ordered, finite sequence of media items with durations.
type Playlist struct {
	Name  string         `json:"name"`
	Items []PlaylistItem `json:"items"`
}

// PlaylistItemKind discriminates the variants of PlaylistItem.
type PlaylistItemKind string

const (
	KindWebsite        PlaylistItemKind = "WEBSITE"
	KindText           PlaylistItemKind = "TEXT"
	KindImage          PlaylistItemKind = "IMAGE"
	KindBackgroundAudio PlaylistItemKind = "BACKGROUND_AUDIO"
)

// PlaylistItem is one entry in a Playlist. Settings carries exactly one of
// Website, Text, Image or BackgroundAudio depending on Kind; the others are
// left zero-valued. This mirrors the tagged-union shape of the wire format
// (a single "type" discriminant plus a "settings" object) without needing a
// custom JSON marshaler for every variant.
type PlaylistItem struct {
	Kind  PlaylistItemKind `json:"type"`
	Name  string           `json:"name"`
	Settings ItemSettings  `json:"settings"`
}

// ItemSettings holds the union of per-kind fields. Duration returns whichever
// field applies to the item's Kind.
type ItemSettings struct {
	Website        *WebsiteData        `json:"website,omitempty"`
	Text           *TextData           `json:"text,omitempty"`
	Image          *ImageData          `json:"image,omitempty"`
	BackgroundAudio *BackgroundAudioData `json:"background_audio,omitempty"`
}

type WebsiteData struct {
	URL      string `json:"url"`
	Duration uint64 `json:"duration"`
}

type TextData struct {
	Text     string `json:"text"`
	Duration uint64 `json:"duration"`
}

type ImageData struct {
	Src      string `json:"src"`
	Duration uint64 `json:"duration"`
}

// BackgroundAudioData is declared per the wire protocol but its dispatch
// path is unimplemented; see internal/viewer.
type BackgroundAudioData struct {
	Src      string `json:"src"`
	Duration uint64 `json:"duration"`
}

// Duration returns the configured duration in seconds for whichever
// variant is populated, or 0 if none is (malformed item).
func (i PlaylistItem) Duration() uint64 {
	switch i.Kind {
	case KindWebsite:
		if i.Settings.Website != nil {
			return i.Settings.Website.Duration
		}
	case KindText:
		if i.Settings.Text != nil {
			return i.Settings.Text.Duration
		}
	case KindImage:
		if i.Settings.Image != nil {
			return i.Settings.Image.Duration
		}
	case KindBackgroundAudio:
		if i.Settings.BackgroundAudio != nil {
			return i.Settings.BackgroundAudio.Duration
		}
	}
	return 0
}

// PendingTextItem is the implicit placeholder substituted for an empty
// Playlist when resolved for a Display.
func PendingTextItem() PlaylistItem {
	return PlaylistItem{
		Kind: KindText,
		Name: "pending",
		Settings: ItemSettings{
			Text: &TextData{Text: "No Playlist added", Duration: 0},
		},
	}
}

// ScheduledRule is one (start-cron, end-cron, playlist) triple within a
// Schedule, in priority-by-position order.
type ScheduledRule struct {
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Playlist uuid.UUID `json:"playlist"`
}

// Schedule is a rule set mapping time ranges to Playlists, with a fallback.
// ActivePlaylist is derived and written only by the scheduler loop.
type Schedule struct {
	Name           string          `json:"name"`
	Fallback       uuid.UUID       `json:"fallback_playlist"`
	Rules          []ScheduledRule `json:"rules"`
	ActivePlaylist uuid.UUID       `json:"active_playlist"`
}

// Moment is a computed (time, new-playlist) pair denoting a scheduled
// transition. It is never persisted.
type Moment struct {
	Time     time.Time `json:"time"`
	Playlist uuid.UUID `json:"playlist"`
}

// Content is the full persisted catalog document: the shape written under
// the KV store's well-known key.
type Content struct {
	Displays  map[uuid.UUID]Display  `json:"displays"`
	Playlists map[uuid.UUID]Playlist `json:"playlists"`
	Schedules map[uuid.UUID]Schedule `json:"schedules"`
}

// NewContent returns an empty catalog document, used on first startup when
// the KV store has no prior state.
func NewContent() Content {
	return Content{
		Displays:  make(map[uuid.UUID]Display),
		Playlists: make(map[uuid.UUID]Playlist),
		Schedules: make(map[uuid.UUID]Schedule),
	}
}
