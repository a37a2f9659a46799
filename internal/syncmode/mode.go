// Package syncmode arbitrates which panel drives the other.
package syncmode

import (
	"fmt"
	"strings"
)

// Mode is the user-selected sync direction policy.
type Mode uint8

const (
	// Auto lets the editor drive the preview until the user scrolls the
	// preview, which engages the manual-position lock.
	Auto Mode = iota
	// TwoWay lets either side drive; last mover wins.
	TwoWay
	// LockedToEditor ignores preview scrolling for sync purposes.
	LockedToEditor
	// LockedToPDF never moves the preview from the editor.
	LockedToPDF
)

var modeNames = [...]string{
	Auto:           "auto",
	TwoWay:         "two-way",
	LockedToEditor: "locked-to-editor",
	LockedToPDF:    "locked-to-pdf",
}

// String returns the mode name.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return int(m) < len(modeNames)
}

// Cycle returns the next mode in toolbar order.
func (m Mode) Cycle() Mode {
	if !m.Valid() {
		return Auto
	}
	return Mode((int(m) + 1) % len(modeNames))
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid sync mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode parses a mode name. Underscores and case are ignored, and
// "locked-to-preview" is accepted for LockedToPDF.
func ParseMode(s string) (Mode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	switch norm {
	case "auto", "":
		return Auto, nil
	case "two-way", "twoway":
		return TwoWay, nil
	case "locked-to-editor":
		return LockedToEditor, nil
	case "locked-to-pdf", "locked-to-preview":
		return LockedToPDF, nil
	}
	return Auto, fmt.Errorf("unknown sync mode %q", s)
}
