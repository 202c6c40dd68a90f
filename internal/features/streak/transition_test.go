package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(day, hour int) time.Time {
	return time.Date(2026, 10, day, hour, 0, 0, 0, time.UTC)
}

func stateAt(current, longest int, last time.Time) *State {
	return &State{UserID: 1, CurrentStreak: current, LongestStreak: longest, LastActivityAt: &last, Version: 4}
}

func TestAdvanceTable(t *testing.T) {
	cases := []struct {
		name       string
		prev       *State
		now        time.Time
		offset     int
		transition Transition
		current    int
		longest    int
	}{
		{"first activity", nil, at(19, 10), 0, TransitionStart, 1, 1},
		{"never active row", &State{UserID: 1, LongestStreak: 5}, at(19, 10), 0, TransitionStart, 1, 5},
		{"same day", stateAt(3, 3, at(19, 1)), at(19, 23), 0, TransitionSameDay, 3, 3},
		{"next day", stateAt(3, 3, at(19, 23)), at(20, 0), 0, TransitionContinue, 4, 4},
		{"gap", stateAt(3, 7, at(19, 10)), at(21, 10), 0, TransitionReset, 1, 7},
		{"backdated", stateAt(3, 3, at(19, 10)), at(18, 10), 0, TransitionBackdated, 1, 3},
		{"backdated keeps longest", stateAt(4, 9, at(5, 10)), at(3, 10), 0, TransitionBackdated, 1, 9},
		{"offset moves now to next day", stateAt(2, 2, at(19, 12)), at(19, 22), 180, TransitionContinue, 3, 3},
		{"offset keeps both on same day", stateAt(2, 2, at(19, 20)), at(20, 2), -300, TransitionSameDay, 2, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, transition := Advance(tc.prev, 1, tc.offset, tc.now)

			assert.Equal(t, tc.transition, transition)
			assert.Equal(t, tc.current, next.CurrentStreak)
			assert.Equal(t, tc.longest, next.LongestStreak)
			assert.GreaterOrEqual(t, next.LongestStreak, next.CurrentStreak)
			if transition.Changes() {
				if assert.NotNil(t, next.LastActivityAt) {
					assert.Equal(t, tc.now, *next.LastActivityAt)
				}
				assert.Equal(t, tc.now, *next.LastStreakUpdateAt)
			}
		})
	}
}

func TestAdvanceDoesNotMutatePrev(t *testing.T) {
	prev := stateAt(3, 3, at(19, 10))

	next, _ := Advance(prev, 1, 0, at(20, 10))

	assert.Equal(t, 4, next.CurrentStreak)
	assert.Equal(t, 3, prev.CurrentStreak)
	assert.Equal(t, at(19, 10), *prev.LastActivityAt)
}
