// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestDisplayRoundTrip(t *testing.T) {
	t.Parallel()

	d := Display{Name: "lobby-east", Schedule: uuid.New()}
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Display
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != d {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, d)
	}
}

func TestDisplayLegacySchema(t *testing.T) {
	t.Parallel()

	sched := uuid.New()
	legacy := []byte(`{"schedule":"` + sched.String() + `"}`)

	var decoded Display
	if err := json.Unmarshal(legacy, &decoded); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if decoded.Name != "" {
		t.Errorf("expected empty name for legacy schema, got %q", decoded.Name)
	}
	if decoded.Schedule != sched {
		t.Errorf("expected schedule %v, got %v", sched, decoded.Schedule)
	}

	// The legacy form must round trip to the canonical encoding once
	// re-marshaled (it carries a name field now, even if empty).
	reencoded, err := json.Marshal(decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}
	var reDecoded Display
	if err := json.Unmarshal(reencoded, &reDecoded); err != nil {
		t.Fatalf("unmarshal re-encoded: %v", err)
	}
	if reDecoded != decoded {
		t.Errorf("canonical round trip mismatch: got %+v, want %+v", reDecoded, decoded)
	}
}

func TestPlaylistItemRoundTrip(t *testing.T) {
	t.Parallel()

	items := []PlaylistItem{
		{Kind: KindWebsite, Name: "homepage", Settings: ItemSettings{Website: &WebsiteData{URL: "https://example.com", Duration: 30}}},
		{Kind: KindText, Name: "notice", Settings: ItemSettings{Text: &TextData{Text: "closed for maintenance", Duration: 10}}},
		{Kind: KindImage, Name: "poster", Settings: ItemSettings{Image: &ImageData{Src: "/media/abc.png", Duration: 15}}},
		{Kind: KindBackgroundAudio, Name: "bgm", Settings: ItemSettings{BackgroundAudio: &BackgroundAudioData{Src: "/media/loop.mp3", Duration: 0}}},
	}

	for _, item := range items {
		item := item
		t.Run(string(item.Kind), func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(item)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded PlaylistItem
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if decoded.Duration() != item.Duration() {
				t.Errorf("duration mismatch: got %d, want %d", decoded.Duration(), item.Duration())
			}
			if decoded.Kind != item.Kind || decoded.Name != item.Name {
				t.Errorf("kind/name mismatch: got %+v, want %+v", decoded, item)
			}
		})
	}
}

func TestPendingTextItemIsIndefinite(t *testing.T) {
	t.Parallel()

	item := PendingTextItem()
	if item.Kind != KindText {
		t.Errorf("expected KindText, got %s", item.Kind)
	}
	if item.Duration() != 0 {
		t.Errorf("expected indefinite (0) duration, got %d", item.Duration())
	}
}

func TestContentRoundTrip(t *testing.T) {
	t.Parallel()

	schedUUID := uuid.New()
	playlistUUID := uuid.New()
	displayUUID := uuid.New()

	c := Content{
		Displays:  map[uuid.UUID]Display{displayUUID: {Name: "lobby", Schedule: schedUUID}},
		Playlists: map[uuid.UUID]Playlist{playlistUUID: {Name: "default", Items: []PlaylistItem{PendingTextItem()}}},
		Schedules: map[uuid.UUID]Schedule{
			schedUUID: {
				Name:           "business-hours",
				Fallback:       playlistUUID,
				Rules:          []ScheduledRule{{Start: "0 0 9 * * * *", End: "0 0 17 * * * *", Playlist: playlistUUID}},
				ActivePlaylist: playlistUUID,
			},
		},
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Content
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(decoded.Displays) != 1 || len(decoded.Playlists) != 1 || len(decoded.Schedules) != 1 {
		t.Fatalf("expected one entity of each type, got %+v", decoded)
	}
	if decoded.Displays[displayUUID].Name != "lobby" {
		t.Errorf("display not preserved: %+v", decoded.Displays[displayUUID])
	}
}

func TestChangeContains(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	c := NewChange(ChangeDisplay, a)

	if !c.Contains(a) {
		t.Error("expected Contains(a) to be true")
	}
	if c.Contains(b) {
		t.Error("expected Contains(b) to be false")
	}
	if !c.Any(b, a) {
		t.Error("expected Any(b, a) to be true since a is present")
	}
	if c.Any(b) {
		t.Error("expected Any(b) to be false")
	}
}
