package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAverageRating(t *testing.T) {
	assert.Equal(t, 4.0, AverageRating([]int{5, 3, 4}))
	assert.Equal(t, 0.0, AverageRating(nil))
	assert.Equal(t, 4.67, AverageRating([]int{5, 5, 4}))
	assert.Equal(t, 1.0, AverageRating([]int{1}))
}

func TestValidRating(t *testing.T) {
	for r := 1; r <= 5; r++ {
		assert.True(t, ValidRating(r))
	}
	assert.False(t, ValidRating(0))
	assert.False(t, ValidRating(6))
	assert.False(t, ValidRating(-1))
}
