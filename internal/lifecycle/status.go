// Package lifecycle holds the booking / borrow-request state machine and the
// arithmetic that goes with it: estimates, late fines, overlap and ratings.
package lifecycle

import (
	"strings"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
)

// Status is persisted as a smallint.
type Status int16

const (
	StatusPending Status = iota + 1
	StatusAssigned
	StatusInProgress
	StatusCompleted
	StatusCancelled
	StatusRejected
)

// Domain selects the vocabulary used when a status is shown to clients.
type Domain int

const (
	Fleet Domain = iota
	Rental
)

var labels = map[Domain]map[Status]string{
	Fleet: {
		StatusPending:    "pending",
		StatusAssigned:   "assigned",
		StatusInProgress: "in_progress",
		StatusCompleted:  "completed",
		StatusCancelled:  "cancelled",
		StatusRejected:   "rejected",
	},
	Rental: {
		StatusPending:    "pending",
		StatusAssigned:   "approved",
		StatusInProgress: "active",
		StatusCompleted:  "returned",
		StatusCancelled:  "cancelled",
		StatusRejected:   "rejected",
	},
}

var edges = map[Status][]Status{
	StatusPending:    {StatusAssigned, StatusCancelled, StatusRejected},
	StatusAssigned:   {StatusInProgress, StatusCancelled, StatusRejected},
	StatusInProgress: {StatusCompleted},
}

// OpenStatuses are the statuses that still hold a resource for their window.
var OpenStatuses = []Status{StatusPending, StatusAssigned, StatusInProgress}

func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusRejected
}

// Label returns the client-facing name of s in domain d.
func (s Status) Label(d Domain) string {
	if l, ok := labels[d][s]; ok {
		return l
	}
	return "unknown"
}

// ParseStatus maps a label (or the fleet label in the rental domain) back to
// its code.
func ParseStatus(d Domain, label string) (Status, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for s, l := range labels[d] {
		if l == label {
			return s, true
		}
	}
	for s, l := range labels[Fleet] {
		if l == label {
			return s, true
		}
	}
	return 0, false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// IsOpen reports whether s still holds a resource.
func (s Status) IsOpen() bool {
	return s.Valid() && !s.IsTerminal()
}

func CanTransition(from, to Status) bool {
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates the edge from → to for the named resource.
func Transition(resource string, d Domain, from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	reason := ""
	if from.IsTerminal() {
		reason = from.Label(d) + " is final"
	}
	return apperrors.InvalidTransitionError{
		Resource: resource,
		From:     from.Label(d),
		To:       to.Label(d),
		Reason:   reason,
	}
}

// IsOverdue is derived, never stored: an in-progress transaction whose
// expected end has passed.
func IsOverdue(s Status, expectedEnd, now time.Time) bool {
	return s == StatusInProgress && now.After(expectedEnd)
}
