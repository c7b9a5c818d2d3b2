package limits

import (
	"fmt"
)

// MaxHistoryItems is how many completed operations the history keeps
const MaxHistoryItems = 20

// HistoryLimits определяет лимиты для хранения истории
type HistoryLimits struct {
	MaxItems int `json:"max_items"`
}

// DefaultHistoryLimits возвращает лимиты по умолчанию
func DefaultHistoryLimits() *HistoryLimits {
	return &HistoryLimits{
		MaxItems: MaxHistoryItems,
	}
}

// HistoryLimiter applies the history cap to newest-first slices
type HistoryLimiter struct {
	// fixed after construction, read without locking
	limits *HistoryLimits
}

// NewHistoryLimiter создает новый лимитер истории
func NewHistoryLimiter(limits *HistoryLimits) *HistoryLimiter {
	if limits == nil {
		limits = DefaultHistoryLimits()
	}
	return &HistoryLimiter{
		limits: limits,
	}
}

// ValidateLimits проверяет валидность лимитов
func (hl *HistoryLimiter) ValidateLimits() error {
	if hl.limits.MaxItems <= 0 {
		return fmt.Errorf("MaxItems must be positive")
	}
	if hl.limits.MaxItems > 1000 {
		return fmt.Errorf("MaxItems too large (> 1000)")
	}
	return nil
}

// Truncate keeps the first MaxItems entries of a newest-first slice.
// Entries past the cap are the oldest and get dropped.
func Truncate[T any](hl *HistoryLimiter, items []T) []T {
	if len(items) <= hl.limits.MaxItems {
		return items
	}
	return items[:hl.limits.MaxItems]
}
