// Package ui runs the system tray presence: a status readout and a quit
// control for the otherwise headless agent.
package ui

import _ "embed"

//go:embed icon.png
var iconBytes []byte
