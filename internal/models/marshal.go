// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// UnmarshalJSON accepts both the current Display schema
// ({"name":..., "schedule":...}) and the earlier schema where a Display held
// only a schedule reference ({"schedule":...}), giving the legacy encoding an
// empty name.
func (d *Display) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("models: display is not a JSON object: %w", err)
	}

	if _, hasName := probe["name"]; !hasName {
		var legacy legacyDisplay
		if err := json.Unmarshal(data, &legacy); err != nil {
			return fmt.Errorf("models: legacy display schema: %w", err)
		}
		*d = Display{Schedule: legacy.Schedule}
		return nil
	}

	type alias Display
	var full alias
	if err := json.Unmarshal(data, &full); err != nil {
		return fmt.Errorf("models: display schema: %w", err)
	}
	*d = Display(full)
	return nil
}

// wireItem is the flattened wire representation of a PlaylistItem:
// {"type": "WEBSITE", "name": ..., "settings": {...}}.
type wireItem struct {
	Type     PlaylistItemKind `json:"type"`
	Name     string           `json:"name"`
	Settings json.RawMessage  `json:"settings"`
}

// MarshalJSON flattens ItemSettings to whichever payload matches Kind,
// matching the serde internally-tagged enum the viewer protocol expects.
func (i PlaylistItem) MarshalJSON() ([]byte, error) {
	var settings any
	switch i.Kind {
	case KindWebsite:
		settings = i.Settings.Website
	case KindText:
		settings = i.Settings.Text
	case KindImage:
		settings = i.Settings.Image
	case KindBackgroundAudio:
		settings = i.Settings.BackgroundAudio
	default:
		return nil, fmt.Errorf("models: unknown playlist item kind %q", i.Kind)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireItem{Type: i.Kind, Name: i.Name, Settings: raw})
}

// UnmarshalJSON reverses MarshalJSON, routing Settings into the field that
// matches Type.
func (i *PlaylistItem) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	i.Kind = w.Type
	i.Name = w.Name
	i.Settings = ItemSettings{}
	switch w.Type {
	case KindWebsite:
		i.Settings.Website = &WebsiteData{}
		return json.Unmarshal(w.Settings, i.Settings.Website)
	case KindText:
		i.Settings.Text = &TextData{}
		return json.Unmarshal(w.Settings, i.Settings.Text)
	case KindImage:
		i.Settings.Image = &ImageData{}
		return json.Unmarshal(w.Settings, i.Settings.Image)
	case KindBackgroundAudio:
		i.Settings.BackgroundAudio = &BackgroundAudioData{}
		return json.Unmarshal(w.Settings, i.Settings.BackgroundAudio)
	default:
		return fmt.Errorf("models: unknown playlist item kind %q", w.Type)
	}
}
