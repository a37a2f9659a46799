package syncmode

// Machine holds the mode and the manual-position lock layered on Auto.
// It is not safe for concurrent use.
type Machine struct {
	mode   Mode
	locked bool
}

// NewMachine creates a machine in mode.
func NewMachine(mode Mode) *Machine {
	if !mode.Valid() {
		mode = Auto
	}
	return &Machine{mode: mode}
}

// Mode returns the current mode.
func (m *Machine) Mode() Mode {
	return m.mode
}

// Locked reports whether the manual-position lock is engaged.
func (m *Machine) Locked() bool {
	return m.locked
}

// Set is an explicit user toggle. It always clears the lock and reports
// whether the mode changed.
func (m *Machine) Set(mode Mode) bool {
	if !mode.Valid() {
		return false
	}
	changed := m.mode != mode
	m.mode = mode
	m.locked = false
	return changed
}

// Release clears the lock without changing mode. It reports whether a lock
// was held.
func (m *Machine) Release() bool {
	was := m.locked
	m.locked = false
	return was
}

// UserScrolledPreview records a user-initiated preview scroll. In Auto it
// engages the lock and reports true.
func (m *Machine) UserScrolledPreview() bool {
	if m.mode != Auto || m.locked {
		return false
	}
	m.locked = true
	return true
}

// UserScrolledEditor records a user-initiated editor scroll. In Auto it
// clears the lock and reports whether one was held.
func (m *Machine) UserScrolledEditor() bool {
	if m.mode != Auto {
		return false
	}
	return m.Release()
}

// CompileSucceeded resets per-document transient state. Mode is kept.
func (m *Machine) CompileSucceeded() {
	m.locked = false
}

// EditorDrivesPreview reports whether editor movement may move the preview.
func (m *Machine) EditorDrivesPreview() bool {
	switch m.mode {
	case Auto:
		return !m.locked
	case TwoWay, LockedToEditor:
		return true
	default:
		return false
	}
}

// PreviewDrivesEditor reports whether preview scrolling may move the editor.
// Clicks are handled separately and always move the editor.
func (m *Machine) PreviewDrivesEditor() bool {
	return m.mode == TwoWay || m.mode == LockedToPDF
}

// PreviewTracked reports whether preview scrolling updates the active
// anchor at all.
func (m *Machine) PreviewTracked() bool {
	return m.mode != LockedToEditor
}
