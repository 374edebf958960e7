package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/flow-hydraulics/token-wallet-ledger/addressbook"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// AddressBook is a HTTP server for the address book.
type AddressBook struct {
	book *addressbook.Store
}

type AddressBookRequest struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

func NewAddressBook(book *addressbook.Store) *AddressBook {
	return &AddressBook{book}
}

func toJSONResponses(ee []addressbook.Entry) []addressbook.JSONResponse {
	res := make([]addressbook.JSONResponse, len(ee))
	for i, e := range ee {
		res[i] = e.ToJSONResponse()
	}
	return res
}

func (s *AddressBook) List() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		handleJsonResponse(rw, http.StatusOK, toJSONResponses(s.book.List()))
	})
}

func (s *AddressBook) Add() http.Handler {
	return UseJson(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req AddressBookRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(rw, r, err)
			return
		}

		e, err := s.book.Add(r.Context(), req.Label, req.Address)
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusCreated, e.ToJSONResponse())
	}))
}

// Remove deletes an entry by its position in the list, or by its id.
func (s *AddressBook) Remove() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		ref := mux.Vars(r)["ref"]

		var (
			e   addressbook.Entry
			err error
		)

		if index, convErr := strconv.Atoi(ref); convErr == nil {
			e, err = s.book.Remove(r.Context(), index)
		} else if id, parseErr := uuid.Parse(ref); parseErr == nil {
			e, err = s.book.RemoveByID(r.Context(), id)
		} else {
			err = &errors.RequestError{
				StatusCode: http.StatusBadRequest,
				Err:        fmt.Errorf("not a valid index or id"),
			}
		}

		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, e.ToJSONResponse())
	})
}

func (s *AddressBook) Lookup() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		e, ok := s.book.FindByAddress(mux.Vars(r)["address"])
		if !ok {
			handleError(rw, r, &errors.RequestError{
				StatusCode: http.StatusNotFound,
				Err:        fmt.Errorf("address not in address book"),
			})
			return
		}

		handleJsonResponse(rw, http.StatusOK, e.ToJSONResponse())
	})
}
