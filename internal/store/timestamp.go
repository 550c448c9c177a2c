package store

// millisThreshold is 2001-09-09 as milliseconds. Anything below it cannot be
// a modern milliseconds timestamp; anything above it divided by 1000 would be
// far in the future as seconds.
const millisThreshold = 1_000_000_000_000

// EnsureMillis normalizes a timestamp to milliseconds since epoch. Values in
// the seconds range are multiplied by 1000; everything else passes through
// unchanged, so the function is idempotent. Every timestamp accepted from
// the backend or read back from persisted history goes through here exactly
// once before comparison or storage.
func EnsureMillis(t int64) int64 {
	if t >= millisThreshold/1000 && t < millisThreshold {
		return t * 1000
	}
	return t
}
