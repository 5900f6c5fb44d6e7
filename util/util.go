package util

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Coalesce returns the first non-zero value.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// MaskSecret keeps the first visible characters of s for logs.
func MaskSecret(s string, visible int) string {
	if s == "" {
		return ""
	}
	if len(s) <= visible {
		return "***"
	}
	return s[:visible] + "***"
}
