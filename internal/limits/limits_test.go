package limits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHistoryLimits(t *testing.T) {
	limits := DefaultHistoryLimits()

	assert.Equal(t, 20, limits.MaxItems, "Default MaxItems should be 20")
}

func TestNewHistoryLimiter(t *testing.T) {
	limiter := NewHistoryLimiter(nil)
	require.NotNil(t, limiter, "Limiter should not be nil")
	require.NotNil(t, limiter.limits, "Limits should not be nil")

	limiter = NewHistoryLimiter(&HistoryLimits{MaxItems: 5})
	require.NotNil(t, limiter)
	assert.Equal(t, 5, limiter.limits.MaxItems)
}

func TestHistoryLimiter_ValidateLimits(t *testing.T) {
	limiter := NewHistoryLimiter(nil)
	assert.NoError(t, limiter.ValidateLimits(), "Default limits should be valid")

	limiter.limits = &HistoryLimits{MaxItems: 2000}
	err := limiter.ValidateLimits()
	assert.Error(t, err, "Too large limits should return error")
	assert.Contains(t, err.Error(), "MaxItems too large")
}

func TestTruncate_KeepsNewest(t *testing.T) {
	limiter := NewHistoryLimiter(nil)

	items := make([]int, 25)
	for i := range items {
		items[i] = i // 0 is newest
	}

	kept := Truncate(limiter, items)
	require.Len(t, kept, 20)
	assert.Equal(t, 0, kept[0])
	assert.Equal(t, 19, kept[19])
}

func TestTruncate_ShortSliceUnchanged(t *testing.T) {
	limiter := NewHistoryLimiter(nil)

	items := []string{"b", "a"}
	assert.Equal(t, items, Truncate(limiter, items))
	assert.Empty(t, Truncate(limiter, []string(nil)))
}
