// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package protocol defines the viewer wire envelopes: the tagged
// `{"type":...,"data":...}` JSON shapes exchanged over the viewer
// WebSocket, grounded on the original Hello/Display/Welcome/Pending enum
// definitions. Marshaling uses goccy/go-json, matching the rest of the
// admin-facing JSON surface.
package protocol

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/stagrim/castad/internal/models"
)

// Hello is the first frame a viewer must send after connecting.
type Hello struct {
	UUID uuid.UUID `json:"uuid"`
	HTMX bool      `json:"htmx"`
}

// envelope is the common tagged-union shape for every frame in both
// directions: {"type": "...", "data": ...}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseHello decodes the first client frame. Any malformed or non-Hello
// frame is reported as an error; the caller logs and continues reading per
// the viewer error-handling policy.
func ParseHello(frame []byte) (Hello, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Hello{}, fmt.Errorf("protocol: malformed frame: %w", err)
	}
	if env.Type != "Hello" {
		return Hello{}, fmt.Errorf("protocol: expected a Hello frame, got %q", env.Type)
	}
	var hello Hello
	if err := json.Unmarshal(env.Data, &hello); err != nil {
		return Hello{}, fmt.Errorf("protocol: malformed Hello payload: %w", err)
	}
	return hello, nil
}

// displayPayload is the {"type": "Website"|"Text"|"Image", "data": {...}}
// shape nested inside a Display response frame.
type displayPayload struct {
	Type string      `json:"type"`
	Data contentData `json:"data"`
}

// contentData is the single-field payload shared by every Display variant.
type contentData struct {
	Content string `json:"content"`
}

// EncodeDisplay renders item as a Display response frame. BackgroundAudio
// items have no wire representation (dispatch is unimplemented) and return
// an error; the caller is expected to have already filtered these out or to
// log and skip.
func EncodeDisplay(item models.PlaylistItem) ([]byte, error) {
	payload, err := displayPayloadFor(item)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal display payload: %w", err)
	}
	return wrap("Display", data)
}

func displayPayloadFor(item models.PlaylistItem) (displayPayload, error) {
	switch item.Kind {
	case models.KindWebsite:
		if item.Settings.Website == nil {
			return displayPayload{}, fmt.Errorf("protocol: website item %q missing website settings", item.Name)
		}
		return displayPayload{Type: "Website", Data: contentData{Content: item.Settings.Website.URL}}, nil
	case models.KindText:
		if item.Settings.Text == nil {
			return displayPayload{}, fmt.Errorf("protocol: text item %q missing text settings", item.Name)
		}
		return displayPayload{Type: "Text", Data: contentData{Content: item.Settings.Text.Text}}, nil
	case models.KindImage:
		if item.Settings.Image == nil {
			return displayPayload{}, fmt.Errorf("protocol: image item %q missing image settings", item.Name)
		}
		return displayPayload{Type: "Image", Data: contentData{Content: item.Settings.Image.Src}}, nil
	case models.KindBackgroundAudio:
		return displayPayload{}, fmt.Errorf("protocol: background audio dispatch is not supported")
	default:
		return displayPayload{}, fmt.Errorf("protocol: unknown playlist item kind %q", item.Kind)
	}
}

// welcomePayload is the Welcome response frame's data object.
type welcomePayload struct {
	Name     string  `json:"name"`
	HTMXHash *string `json:"htmx_hash,omitempty"`
}

// EncodeWelcome renders the handshake's successful-naming response. htmxHash
// is non-nil only in htmx mode, where the viewer needs a cache-busting asset
// hash for its companion page.
func EncodeWelcome(name string, htmxHash *string) ([]byte, error) {
	data, err := json.Marshal(welcomePayload{Name: name, HTMXHash: htmxHash})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal welcome payload: %w", err)
	}
	return wrap("Welcome", data)
}

// EncodePending renders the Pending response frame, sent while a Display's
// schedule-ref or effective Playlist cannot yet be resolved.
func EncodePending(pending bool) ([]byte, error) {
	data, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal pending payload: %w", err)
	}
	return wrap("Pending", data)
}

func wrap(typ string, data json.RawMessage) ([]byte, error) {
	out, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal envelope: %w", err)
	}
	return out, nil
}
