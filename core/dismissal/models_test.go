package dismissal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/dismissal/core"
)

func TestElapsedSeconds(t *testing.T) {
	tests := []struct {
		name     string
		from, to int64
		want     int64
	}{
		{name: "same instant", from: 1700000000000, to: 1700000000000, want: 0},
		{name: "whole seconds", from: 1700000000000, to: 1700000120000, want: 120},
		{name: "floors partial second", from: 1700000000000, to: 1700000001999, want: 1},
		{name: "floors towards minus infinity", from: 1700000000000, to: 1699999999500, want: -1},
		{name: "inverted by one second", from: 1700000000000, to: 1699999999000, want: -1},
		{name: "remainders cross a second", from: 999, to: 1001, want: 0},
		{name: "negative timestamps", from: -1500, to: 0, want: 1},
		{name: "full int64 range", from: math.MinInt64, to: math.MaxInt64, want: 18446744073709551},
		{name: "full int64 range inverted", from: math.MaxInt64, to: math.MinInt64, want: -18446744073709552},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, elapsedSeconds(tt.from, tt.to))
		})
	}
}

func TestExtremeTimestamps(t *testing.T) {
	th := core.DefaultQualityThresholds()
	e := newEvent("far", 0, 60)
	e.QueuedAt = math.MinInt64
	e.CompletedAt = math.MaxInt64

	assert.Equal(t, int64(18446744073709551), e.CalculatedWaitSeconds())

	kinds := make([]string, 0)
	for _, iss := range ValidateFieldIntegrity([]Event{e}, th).Issues {
		kinds = append(kinds, iss.Issue)
	}
	assert.Contains(t, kinds, IssueCalculationMismatch)
	assert.NotContains(t, kinds, IssueCompletedBeforeQueued)

	group := DayCampusGroup{Events: []Event{e}}
	assert.Equal(t, int64(18446744073709551), group.SessionSeconds())
}
