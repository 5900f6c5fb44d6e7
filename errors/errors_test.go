package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	if New(ErrCodeNotFound, "x", http.StatusNotFound).Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("node", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected 404, got %d", err.HTTPStatus)
	}
}

func TestNotReady_AggregatesReasons(t *testing.T) {
	err := NotReady("n1", []string{"node is completed", "node has validation errors: segments: requires at least 2 items, got 1"})
	if err.Code != ErrCodeNotReady {
		t.Fatalf("expected NOT_READY, got %s", err.Code)
	}
	if !strings.HasPrefix(err.Message, "Node is not ready to execute: ") {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !strings.Contains(err.Message, "node is completed; node has validation errors") {
		t.Errorf("expected reasons joined by '; ', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", err.HTTPStatus)
	}
}

func TestExecutionConstructors_Table(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   ErrorCode
		status int
	}{
		{"no executor", NoExecutor("asset"), ErrCodeNoExecutor, http.StatusUnprocessableEntity},
		{"stale", StaleCallback("n1", "no process_uuid"), ErrCodeStaleCallback, http.StatusConflict},
		{"no output", NoOutput("n1"), ErrCodeNoOutput, http.StatusNotFound},
		{"submission", SubmissionFailed("merge", fmt.Errorf("503")), ErrCodeSubmissionFailed, http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, tc.err.Code)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("expected %d, got %d", tc.status, tc.err.HTTPStatus)
			}
			if tc.err.Retryable {
				t.Errorf("%s should not be retryable", tc.code)
			}
		})
	}
}

func TestNoExecutor_NamesType(t *testing.T) {
	err := NoExecutor("compose-video")
	if !strings.Contains(err.Message, "compose-video") {
		t.Errorf("expected message to name the type, got %q", err.Message)
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := Validation("bad").WithDetails(map[string]any{"a": 1})
	err.WithDetails(map[string]any{"b": 2}).WithDetail("c", 3)
	if len(err.Details) != 3 {
		t.Fatalf("expected 3 details, got %v", err.Details)
	}
}

func TestAppError_Unwrap_Success(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := DatabaseError(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "cause: connection reset") {
		t.Errorf("unexpected Error() %q", err.Error())
	}
}

func TestIsCode(t *testing.T) {
	wrapped := fmt.Errorf("callback: %w", StaleCallback("n1", "status is completed"))
	if !IsCode(wrapped, ErrCodeStaleCallback) {
		t.Error("expected IsCode to see through wrapping")
	}
	if IsCode(wrapped, ErrCodeNotReady) {
		t.Error("expected IsCode to reject a different code")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeStaleCallback) {
		t.Error("expected IsCode false for plain errors")
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	resp := NoOutput("n1").ToResponse()
	if resp.Error.Code != ErrCodeNoOutput {
		t.Errorf("expected NO_OUTPUT, got %s", resp.Error.Code)
	}
	if resp.Error.Details["node_id"] != "n1" {
		t.Errorf("expected node_id detail, got %v", resp.Error.Details)
	}
}

func TestFormatFieldErrors_SortedKeys(t *testing.T) {
	got := FormatFieldErrors(map[string]string{
		"segments": "requires at least 2 items, got 1",
		"provider": "is required for merge-videos nodes",
	})
	want := "provider: is required for merge-videos nodes; segments: requires at least 2 items, got 1"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
