package reliability

import "time"

// IsRetryableHTTPStatus classifies settlement-service responses that are
// worth retrying on a later tick.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// NextBackoff doubles the current backoff, capped.
func NextBackoff(current, cap time.Duration) time.Duration {
	next := current * 2
	if next > cap {
		return cap
	}
	return next
}
