package library

import "time"

// FineRatePerDay is charged for every whole day a borrow is kept past its deadline.
const FineRatePerDay = 5

// CalculateFine returns the fine owed at `now` for a borrow due at `deadline`.
// Partial days do not count: the amount is floor(overdue, whole days) * rate,
// so it is 0 until a full 24h past the deadline. Pure function; callers persist
// the result only at return time.
func CalculateFine(deadline, now time.Time) int {
	if !now.After(deadline) {
		return 0
	}
	overdueDays := int(now.Sub(deadline) / (24 * time.Hour))
	return overdueDays * FineRatePerDay
}
