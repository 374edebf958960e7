package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/ledger"
	"github.com/flow-hydraulics/token-wallet-ledger/transfers"
	"github.com/gorilla/mux"
)

// Transactions is a HTTP server for the transaction history of the connected
// account.
type Transactions struct {
	ledger   *ledger.Store
	service  *transfers.Service
	symbol   string
	location *time.Location
}

func NewTransactions(l *ledger.Store, service *transfers.Service, symbol string, location *time.Location) *Transactions {
	return &Transactions{l, service, symbol, location}
}

type RecordResponse struct {
	Transaction ledger.JSONResponse `json:"transaction"`
	Label       string              `json:"label,omitempty"`
	Warnings    []string            `json:"warnings,omitempty"`
}

// List serves the filtered, paged history. See ledger.Store.Filter for the
// filter tags.
func (s *Transactions) List() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		records := s.ledger.Filter(r.FormValue("filter"))

		start, end := parseListOptions(r).Bounds(len(records))

		handleJsonResponse(rw, http.StatusOK, ledger.ToJSONResponses(records[start:end], s.symbol, s.location))
	})
}

func (s *Transactions) Details() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hash := mux.Vars(r)["hash"]

		record, ok := s.ledger.Find(hash)
		if !ok {
			handleError(rw, r, &errors.RequestError{
				StatusCode: http.StatusNotFound,
				Err:        fmt.Errorf("transaction not found"),
			})
			return
		}

		handleJsonResponse(rw, http.StatusOK, record.ToJSONResponse(s.symbol, s.location))
	})
}

// Create records a transfer the wallet has submitted.
func (s *Transactions) Create() http.Handler {
	return UseJson(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req transfers.Request
		if err := decodeBody(r, &req); err != nil {
			handleError(rw, r, err)
			return
		}

		res, err := s.service.Record(r.Context(), req)
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusCreated, RecordResponse{
			Transaction: res.Record.ToJSONResponse(s.symbol, s.location),
			Label:       res.Label,
			Warnings:    res.Warnings,
		})
	}))
}

func (s *Transactions) Balance() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		res, err := s.service.Balance(r.Context())
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, res)
	})
}
