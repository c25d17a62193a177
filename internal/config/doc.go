// Casta - Digital Signage Control Plane
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config defines the controller's Config struct and its layered
// loader (struct defaults -> optional YAML file -> environment variables).
//
//	cfg, err := config.Load()
package config
