// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

package protocol

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/stagrim/castad/internal/models"
)

// fragmentTemplates renders each Display variant as an out-of-band htmx
// swap targeting #content, matching the viewer page's companion markup.
var fragmentTemplates = template.Must(template.New("fragments").Parse(`
{{define "Website"}}<iframe id="content" hx-swap-oob="true" src="{{.}}"></iframe>{{end}}
{{define "Text"}}<div id="content" hx-swap-oob="true">{{.}}</div>{{end}}
{{define "Image"}}<img id="content" hx-swap-oob="true" src="{{.}}">{{end}}
`))

// EncodeDisplayHTMX renders item as the HTML fragment an htmx-mode viewer
// swaps into #content, in place of EncodeDisplay's JSON envelope.
func EncodeDisplayHTMX(item models.PlaylistItem) ([]byte, error) {
	name, content, err := htmxContentFor(item)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := fragmentTemplates.ExecuteTemplate(&buf, name, content); err != nil {
		return nil, fmt.Errorf("protocol: render htmx fragment: %w", err)
	}
	return buf.Bytes(), nil
}

func htmxContentFor(item models.PlaylistItem) (name, content string, err error) {
	switch item.Kind {
	case models.KindWebsite:
		if item.Settings.Website == nil {
			return "", "", fmt.Errorf("protocol: website item %q missing website settings", item.Name)
		}
		return "Website", item.Settings.Website.URL, nil
	case models.KindText:
		if item.Settings.Text == nil {
			return "", "", fmt.Errorf("protocol: text item %q missing text settings", item.Name)
		}
		return "Text", item.Settings.Text.Text, nil
	case models.KindImage:
		if item.Settings.Image == nil {
			return "", "", fmt.Errorf("protocol: image item %q missing image settings", item.Name)
		}
		return "Image", item.Settings.Image.Src, nil
	case models.KindBackgroundAudio:
		return "", "", fmt.Errorf("protocol: background audio dispatch is not supported")
	default:
		return "", "", fmt.Errorf("protocol: unknown playlist item kind %q", item.Kind)
	}
}

// PendingHTMX renders the htmx-mode placeholder shown while a Display's
// effective Playlist cannot be resolved.
func PendingHTMX() []byte {
	return []byte(`<div id="content" hx-swap-oob="true">Pending configuration&hellip;</div>`)
}
