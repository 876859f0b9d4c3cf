package infra

import "time"

const (
	backoffBase = 1 * time.Second
	backoffMax  = 60 * time.Second
)

// CalculateBackoff returns base*2^retry capped at backoffMax.
func CalculateBackoff(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}
	if retry > 6 { // 2^6s already exceeds the cap
		return backoffMax
	}
	d := backoffBase << uint(retry)
	if d > backoffMax {
		return backoffMax
	}
	return d
}
