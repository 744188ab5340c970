package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	e1 := New("cause1")
	e2 := New("cause2").Wrap(e1)
	e := New("dummy").Wrap(e2)
	e3 := e.Unwrap()
	assert.True(t, Is(e, e1))
	assert.True(t, Is(e, e2))
	assert.True(t, e3 == e2)
}

func TestSentinelKinds(t *testing.T) {
	err := Newf("unknown host id: %s", "gpu42").Wrap(ErrConfig)
	assert.True(t, Is(err, ErrConfig))
	assert.False(t, Is(err, ErrConnectivity))
	assert.Contains(t, err.Error(), "gpu42")
	assert.Contains(t, err.Error(), "configuration error")
}

func TestWrapLeavesSentinelsUntouched(t *testing.T) {
	cause := New("rsync exited with status 23")
	err := ErrExternalTool.Wrap(cause)

	assert.Nil(t, ErrExternalTool.Unwrap(), "wrapping must not mutate the sentinel")
	assert.True(t, Is(err, ErrExternalTool), "a wrapped copy still matches its kind")
	assert.True(t, Is(err, cause))
}
