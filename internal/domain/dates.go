package domain

import "time"

// RangesOverlap uses half-open semantics: [a1,a2) and [b1,b2) overlap iff
// a1 < b2 and b1 < a2. A checkout on day X and a check-in on day X do not
// overlap.
func RangesOverlap(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && b1.Before(a2)
}

// NightsBetween returns whole nights between two dates; partial days are
// truncated.
func NightsBetween(checkIn, checkOut time.Time) int {
	if !checkIn.Before(checkOut) {
		return 0
	}
	return int(checkOut.Sub(checkIn).Hours() / 24)
}
