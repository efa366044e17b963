package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnknownUserIsInactive(t *testing.T) {
	assert := assert.New(t)

	tracker := NewTracker(2 * time.Hour)
	assert.False(tracker.IsActive("never-seen"))
}

func TestTrackMakesActive(t *testing.T) {
	assert := assert.New(t)

	tracker := NewTracker(2 * time.Hour)
	tracker.Track("u1", "message")
	assert.True(tracker.IsActive("u1"))
}

func TestActivityDecaysAfterTimeout(t *testing.T) {
	assert := assert.New(t)

	tracker := NewTracker(2 * time.Hour)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.Track("u1", "command")
	assert.True(tracker.IsActive("u1"))

	current = current.Add(3 * time.Hour)
	assert.False(tracker.IsActive("u1"))
}

func TestTrackIsLastWriteWins(t *testing.T) {
	assert := assert.New(t)

	tracker := NewTracker(2 * time.Hour)
	current := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	tracker.Track("u1", "message")
	current = current.Add(90 * time.Minute)
	tracker.Track("u1", "reaction")

	last, ok := tracker.LastActivity("u1")
	assert.True(ok)
	assert.Equal(current, last)

	current = current.Add(90 * time.Minute)
	assert.True(tracker.IsActive("u1"))
}
