package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/worktrack/timesheet-backend/internal/timesheet/service"
)

func TestIsOverdue(t *testing.T) {
	reference := time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		due     *time.Time
		overdue bool
	}{
		{
			name:    "nil due date is never overdue",
			due:     nil,
			overdue: false,
		},
		{
			name:    "zero due date is never overdue",
			due:     &time.Time{},
			overdue: false,
		},
		{
			name:    "day before reference is overdue",
			due:     timePtr(time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local)),
			overdue: true,
		},
		{
			name:    "same day is not overdue regardless of time",
			due:     timePtr(time.Date(2026, 3, 10, 0, 0, 1, 0, time.Local)),
			overdue: false,
		},
		{
			name:    "day after reference is not overdue",
			due:     timePtr(time.Date(2026, 3, 11, 0, 0, 0, 0, time.Local)),
			overdue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.overdue, service.IsOverdue(tt.due, reference))
		})
	}
}

func TestDueDateMatches(t *testing.T) {
	target := time.Date(2026, 3, 10, 9, 30, 0, 0, time.Local)

	tests := []struct {
		name    string
		due     *time.Time
		matches bool
	}{
		{
			name:    "nil due date never matches",
			due:     nil,
			matches: false,
		},
		{
			name:    "same calendar day matches across times of day",
			due:     timePtr(time.Date(2026, 3, 10, 23, 0, 0, 0, time.Local)),
			matches: true,
		},
		{
			name:    "previous day does not match even though overdue",
			due:     timePtr(time.Date(2026, 3, 9, 9, 30, 0, 0, time.Local)),
			matches: false,
		},
		{
			name:    "next day does not match",
			due:     timePtr(time.Date(2026, 3, 11, 9, 30, 0, 0, time.Local)),
			matches: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, service.DueDateMatches(tt.due, target))
		})
	}
}

func TestDateKeyRoundTrip(t *testing.T) {
	parsed, err := service.ParseDateKey("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", service.DateKey(parsed))

	_, err = service.ParseDateKey("10.03.2026")
	assert.Error(t, err)
}

func timePtr(t time.Time) *time.Time { return &t }
