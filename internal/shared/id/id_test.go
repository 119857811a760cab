package id

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunIDFormat(t *testing.T) {
	id := NewRunID()
	assert.True(t, strings.HasPrefix(id.String(), "run_"))
	assert.Len(t, id.String(), len("run_")+26)
}

func TestRunIDsAreUnique(t *testing.T) {
	seen := map[RunID]bool{}
	for i := 0; i < 1000; i++ {
		id := NewRunID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewRunID()
	after := time.Now().Add(time.Second)

	ts, err := Timestamp(id)
	require.NoError(t, err)
	assert.True(t, ts.After(before))
	assert.True(t, ts.Before(after))
}

func TestTimestampRejectsGarbage(t *testing.T) {
	_, err := Timestamp(RunID("run_not-a-ulid"))
	assert.Error(t, err)
}
