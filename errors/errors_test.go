package errors

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

type testNetError struct{}

func (e *testNetError) Error() string   { return "NetError" }
func (e *testNetError) Timeout() bool   { return false }
func (e *testNetError) Temporary() bool { return false }

func TestIsChainConnectionError(t *testing.T) {
	t.Run("error cases", func(t *testing.T) {
		var netErr error = &testNetError{}

		valid_errors := []error{
			netErr,
			fmt.Errorf("wrapped: %w", netErr),
			context.DeadlineExceeded,
			&ProviderUnavailable{Op: "receipt", Err: fmt.Errorf("dial tcp 127.0.0.1:8545: connect: connection refused")},
			fmt.Errorf("429 Too Many Requests: rate limited"),
		}

		invalid_errors := []error{
			nil,
			fmt.Errorf("not a connection error"),
			fmt.Errorf("execution reverted"),
		}

		for _, err := range valid_errors {
			if !IsChainConnectionError(err) {
				t.Fatalf("expected error to be a connection error, got \"%s\"", err)
			}
		}

		for _, err := range invalid_errors {
			if IsChainConnectionError(err) {
				t.Fatalf("expected error not to be a connection error, got \"%s\"", err)
			}
		}
	})

	t.Run("non existent node", func(t *testing.T) {
		_, err := net.DialTimeout("tcp", "non-existent-address.invalid:8545", time.Second)
		if err == nil {
			t.Fatal("expected an error")
		} else if !IsChainConnectionError(err) {
			t.Fatal("expected error to be a connection error")
		}
	})
}

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&RequestError{StatusCode: http.StatusConflict, Err: fmt.Errorf("conflict")}, http.StatusConflict},
		{NewValidationError("amount", "must be greater than 0"), http.StatusBadRequest},
		{fmt.Errorf("add: %w", NewValidationError("label", "empty")), http.StatusBadRequest},
		{&IndexError{Index: 3, Length: 1}, http.StatusNotFound},
		{&ProviderUnavailable{Op: "block height", Err: fmt.Errorf("timeout")}, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		if got := StatusCode(c.err); got != c.status {
			t.Errorf("expected %d for %q, got %d", c.status, c.err, got)
		}
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewValidationError("recipient", "%q is not an address", "0x12")
	if got, want := err.Error(), `invalid recipient: "0x12" is not an address`; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	err = &ValidationError{Reason: "no account connected"}
	if got, want := err.Error(), "no account connected"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
