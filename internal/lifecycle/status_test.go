package lifecycle

import (
	"testing"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{
	StatusPending, StatusAssigned, StatusInProgress,
	StatusCompleted, StatusCancelled, StatusRejected,
}

func TestTransitionFollowsOnlyDeclaredEdges(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusAssigned}:     true,
		{StatusPending, StatusCancelled}:    true,
		{StatusPending, StatusRejected}:     true,
		{StatusAssigned, StatusInProgress}:  true,
		{StatusAssigned, StatusCancelled}:   true,
		{StatusAssigned, StatusRejected}:    true,
		{StatusInProgress, StatusCompleted}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			err := Transition("booking", Fleet, from, to)
			if allowed[[2]Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from.Label(Fleet), to.Label(Fleet))
				continue
			}
			assert.True(t, apperrors.IsInvalidTransition(err), "%s -> %s", from.Label(Fleet), to.Label(Fleet))
		}
	}
}

func TestTerminalStatesHaveNoExit(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusRejected} {
		assert.True(t, s.IsTerminal())
		assert.False(t, s.IsOpen())
		for _, to := range allStatuses {
			assert.False(t, CanTransition(s, to))
		}
	}
}

func TestTransitionErrorUsesDomainLabels(t *testing.T) {
	err := Transition("borrow request", Rental, StatusCompleted, StatusCancelled)
	require.Error(t, err)
	assert.Equal(t, "borrow request cannot move from returned to cancelled: returned is final", err.Error())
}

func TestLabelsRoundTrip(t *testing.T) {
	for _, d := range []Domain{Fleet, Rental} {
		for _, s := range allStatuses {
			got, ok := ParseStatus(d, s.Label(d))
			require.True(t, ok)
			assert.Equal(t, s, got)
		}
	}
	s, ok := ParseStatus(Rental, "in_progress")
	assert.True(t, ok)
	assert.Equal(t, StatusInProgress, s)

	_, ok = ParseStatus(Fleet, "lost")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Status(42).Label(Fleet))
}

func TestIsOverdue(t *testing.T) {
	end := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	assert.True(t, IsOverdue(StatusInProgress, end, end.Add(time.Minute)))
	assert.False(t, IsOverdue(StatusInProgress, end, end))
	assert.False(t, IsOverdue(StatusAssigned, end, end.Add(48*time.Hour)))
	assert.False(t, IsOverdue(StatusCompleted, end, end.Add(48*time.Hour)))
}
