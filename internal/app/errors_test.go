package app

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationError(t *testing.T) {
	base := errors.New("exit status 1")

	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{"op only", NewOperationError("render", "", nil), "render"},
		{"with target", NewOperationError("render", "/doc.md", base), "render /doc.md: exit status 1"},
		{"with context", NewOperationError("save", "/doc.md", base).WithContext("redis"), "save /doc.md (redis): exit status 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestOperationErrorMatching(t *testing.T) {
	base := errors.New("boom")
	err := NewOperationError("render", "/doc.md", base)

	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, err)
	assert.NotErrorIs(t, err, NewOperationError("render", "/doc.md", base))
	assert.Equal(t, base, errors.Unwrap(err))

	var nilErr *OperationError
	assert.Equal(t, "", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
	assert.Nil(t, nilErr.WithContext("x"))
	assert.False(t, nilErr.Is(base))
}
