package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
		{"unknown", StatusPending, false},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusCancelled))
	assert.True(t, IsTerminalStatus(StatusCompleted))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusConfirmed))
}

func TestActiveStatusesHoldSlots(t *testing.T) {
	active := ActiveStatuses()
	assert.Contains(t, active, StatusPending)
	assert.Contains(t, active, StatusConfirmed)
	assert.Contains(t, active, StatusCompleted)
	assert.NotContains(t, active, StatusCancelled)
}
