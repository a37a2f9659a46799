package syncmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"auto", Auto, false},
		{"", Auto, false},
		{"Two-Way", TwoWay, false},
		{"two_way", TwoWay, false},
		{"locked-to-editor", LockedToEditor, false},
		{"LOCKED_TO_PDF", LockedToPDF, false},
		{"locked-to-preview", LockedToPDF, false},
		{"sideways", Auto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeTextRoundTrip(t *testing.T) {
	for m := Auto; m.Valid(); m++ {
		text, err := m.MarshalText()
		require.NoError(t, err)
		var back Mode
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, m, back)
	}
	_, err := Mode(9).MarshalText()
	assert.Error(t, err)
	assert.Equal(t, "Mode(9)", Mode(9).String())
}

func TestCycle(t *testing.T) {
	assert.Equal(t, TwoWay, Auto.Cycle())
	assert.Equal(t, LockedToEditor, TwoWay.Cycle())
	assert.Equal(t, LockedToPDF, LockedToEditor.Cycle())
	assert.Equal(t, Auto, LockedToPDF.Cycle())
	assert.Equal(t, Auto, Mode(200).Cycle())
}

func TestAutoLock(t *testing.T) {
	m := NewMachine(Auto)
	assert.True(t, m.EditorDrivesPreview())

	assert.True(t, m.UserScrolledPreview())
	assert.False(t, m.UserScrolledPreview(), "already locked")
	assert.True(t, m.Locked())
	assert.False(t, m.EditorDrivesPreview())

	assert.True(t, m.UserScrolledEditor())
	assert.False(t, m.Locked())
	assert.Equal(t, Auto, m.Mode())
	assert.True(t, m.EditorDrivesPreview())
}

func TestLockOnlyInAuto(t *testing.T) {
	for _, mode := range []Mode{TwoWay, LockedToEditor, LockedToPDF} {
		m := NewMachine(mode)
		assert.False(t, m.UserScrolledPreview(), mode.String())
		assert.False(t, m.Locked(), mode.String())
	}
}

func TestSetClearsLock(t *testing.T) {
	m := NewMachine(Auto)
	m.UserScrolledPreview()

	assert.False(t, m.Set(Auto))
	assert.False(t, m.Locked(), "toggle to the same mode still clears the lock")

	m.UserScrolledPreview()
	assert.True(t, m.Set(TwoWay))
	assert.False(t, m.Locked())
	assert.False(t, m.Set(Mode(77)))
	assert.Equal(t, TwoWay, m.Mode())
}

func TestCompileSucceededKeepsMode(t *testing.T) {
	m := NewMachine(Auto)
	m.UserScrolledPreview()
	m.CompileSucceeded()
	assert.False(t, m.Locked())
	assert.Equal(t, Auto, m.Mode())

	m.Set(LockedToPDF)
	m.CompileSucceeded()
	assert.Equal(t, LockedToPDF, m.Mode())
}

func TestDirectionTable(t *testing.T) {
	tests := []struct {
		mode           Mode
		editorDrives   bool
		previewDrives  bool
		previewTracked bool
	}{
		{Auto, true, false, true},
		{TwoWay, true, true, true},
		{LockedToEditor, true, false, false},
		{LockedToPDF, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			m := NewMachine(tt.mode)
			assert.Equal(t, tt.editorDrives, m.EditorDrivesPreview())
			assert.Equal(t, tt.previewDrives, m.PreviewDrivesEditor())
			assert.Equal(t, tt.previewTracked, m.PreviewTracked())
		})
	}
}

func TestReleaseInEveryMode(t *testing.T) {
	m := NewMachine(Auto)
	assert.False(t, m.Release())
	m.UserScrolledPreview()
	assert.True(t, m.Release())
	assert.True(t, m.EditorDrivesPreview())
}

func TestNewMachineInvalidMode(t *testing.T) {
	assert.Equal(t, Auto, NewMachine(Mode(12)).Mode())
}
