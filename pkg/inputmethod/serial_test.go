package inputmethod

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialTrackerNext(t *testing.T) {
	tr := NewSerialTracker(0)
	for i := uint32(0); i < 100; i++ {
		assert.Equal(t, i, tr.Next())
	}
	assert.Equal(t, uint32(100), tr.Current())
}

func TestSerialTrackerWraps(t *testing.T) {
	tr := NewSerialTracker(math.MaxUint32)
	assert.Equal(t, uint32(math.MaxUint32), tr.Next())
	assert.Equal(t, uint32(0), tr.Next())
	assert.Equal(t, uint32(1), tr.Current())
}

func TestSerialTrackerDoAdvancesOnlyOnSuccess(t *testing.T) {
	tr := NewSerialTracker(7)

	var got []uint32
	send := func(s uint32) error {
		got = append(got, s)
		return nil
	}
	require.NoError(t, tr.Do(send))
	require.NoError(t, tr.Do(send))

	fail := errors.New("boom")
	err := tr.Do(func(s uint32) error {
		got = append(got, s)
		return fail
	})
	require.ErrorIs(t, err, fail)
	require.NoError(t, tr.Do(send))

	assert.Equal(t, []uint32{7, 8, 9, 9}, got)
	assert.Equal(t, uint32(10), tr.Current())
}
