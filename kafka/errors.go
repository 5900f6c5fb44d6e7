package kafka

import (
	"errors"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
)

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"no route to host",
	"network is unreachable",
	"dial tcp",
	"request timed out",
}

// IsRetryable reports whether a write or read error is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var kerr kafkago.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
