package handlers

import (
	"fmt"
	"net/http"

	"github.com/flow-hydraulics/token-wallet-ledger/errors"
)

// Ready answers 200 when every check passes and 503 otherwise.
func Ready(checks ...func() error) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(); err != nil {
				handleError(rw, r, &errors.RequestError{
					StatusCode: http.StatusServiceUnavailable,
					Err:        fmt.Errorf("not ready: %w", err),
				})
				return
			}
		}
		rw.WriteHeader(http.StatusOK)
	})
}

func Liveness(getLiveness func() (interface{}, error)) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		liveness, err := getLiveness()
		if err != nil {
			handleError(rw, r, err)
			return
		}
		handleJsonResponse(rw, http.StatusOK, liveness)
	})
}
