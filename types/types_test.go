package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusNext.Valid())
	assert.True(t, StatusComplete.Valid())
	assert.True(t, StatusError.Valid())
	assert.False(t, Status(0).Valid())
	assert.False(t, Status(4).Valid())
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "NEXT", StatusNext.String())
	assert.Equal(t, "COMPLETE", StatusComplete.String())
	assert.Equal(t, "ERROR", StatusError.String())
	assert.Equal(t, "UNKNOWN", Status(99).String())
}

func TestDecodeError(t *testing.T) {
	cause := errors.New("unexpected field count 3")
	err := &DecodeError{Cause: cause}

	assert.Contains(t, err.Error(), "record decode failed")
	assert.Contains(t, err.Error(), "unexpected field count")
	assert.True(t, errors.Is(err, cause))

	var decodeErr *DecodeError
	require.True(t, errors.As(error(err), &decodeErr))
}

func TestRecordedError(t *testing.T) {
	err := &RecordedError{Message: "upstream connection reset"}

	assert.Contains(t, err.Error(), "recorded stream error")
	assert.Contains(t, err.Error(), "upstream connection reset")

	// RecordedError and DecodeError must stay distinguishable for consumers.
	var recorded *RecordedError
	var decode *DecodeError
	assert.True(t, errors.As(error(err), &recorded))
	assert.False(t, errors.As(error(err), &decode))
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Op: "append", Cause: cause}

	assert.Contains(t, err.Error(), "store append failed")
	assert.Contains(t, err.Error(), "disk full")
	assert.True(t, errors.Is(err, cause))
}
