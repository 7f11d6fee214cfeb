package lifecycle

import (
	"testing"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	cases := []struct {
		name         string
		aStart, aEnd int
		bStart, bEnd int
		want         bool
	}{
		{"disjoint before", 10, 12, 0, 9, false},
		{"disjoint after", 10, 12, 13, 20, false},
		{"touching start", 10, 12, 8, 10, true},
		{"touching end", 10, 12, 12, 14, true},
		{"contained", 10, 20, 12, 14, true},
		{"containing", 12, 14, 10, 20, true},
		{"partial", 10, 14, 12, 18, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(at(tc.aStart), at(tc.aEnd), at(tc.bStart), at(tc.bEnd)))
			assert.Equal(t, tc.want, Overlaps(at(tc.bStart), at(tc.bEnd), at(tc.aStart), at(tc.aEnd)))
		})
	}
}

func TestCheckWindow(t *testing.T) {
	start := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)

	var v apperrors.ValidationError
	CheckWindow(&v, "startDate", "endDate", start, start.Add(-time.Hour))
	assert.Equal(t, []apperrors.FieldError{{Field: "endDate", Message: "must not be before startDate"}}, v.Fields)

	v = apperrors.ValidationError{}
	CheckWindow(&v, "startDate", "endDate", time.Time{}, time.Time{})
	assert.Len(t, v.Fields, 2)

	v = apperrors.ValidationError{}
	CheckWindow(&v, "startDate", "endDate", start, start)
	assert.NoError(t, v.Err())
}
