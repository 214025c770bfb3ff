package sched

import "time"

// Backoff вычисляет задержку перед retry после указанной попытки:
// delay = min(base * 2^(attempt-1), cap).
//
// Удвоение в цикле с ранним выходом — чтобы не переполниться на
// больших attempt.
func Backoff(attempt int, base, cap time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	if cap <= 0 {
		cap = 30 * time.Second
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cap {
			return cap
		}
	}
	if delay > cap {
		return cap
	}
	return delay
}
