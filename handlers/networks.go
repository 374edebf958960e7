package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/gorilla/mux"
)

// Networks is a HTTP server for the known network configurations.
type Networks struct {
	networks *chain.Networks
}

func NewNetworks(networks *chain.Networks) *Networks {
	return &Networks{networks}
}

func (s *Networks) List() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		handleJsonResponse(rw, http.StatusOK, s.networks.List())
	})
}

func (s *Networks) Details() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		chainID, err := strconv.ParseUint(mux.Vars(r)["chainId"], 10, 64)
		if err != nil {
			handleError(rw, r, errors.NewValidationError("chainId", "must be a positive integer"))
			return
		}

		network, ok := s.networks.Lookup(chainID)
		if !ok {
			handleError(rw, r, &errors.RequestError{
				StatusCode: http.StatusNotFound,
				Err:        fmt.Errorf("unknown network %d", chainID),
			})
			return
		}

		handleJsonResponse(rw, http.StatusOK, network)
	})
}
