// Package handlers provides HTTP handlers for the services of the ledger.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/flow-hydraulics/token-wallet-ledger/datastore"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	log "github.com/sirupsen/logrus"
)

var (
	EmptyBodyError   = &errors.RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("empty body")}
	InvalidBodyError = &errors.RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid body")}
)

// handleError is a helper function for unified HTTP error handling.
func handleError(rw http.ResponseWriter, r *http.Request, err error) {
	status := errors.StatusCode(err)

	fields := log.Fields{"error": err, "status": status}
	if r != nil {
		fields["method"] = r.Method
		fields["path"] = r.URL.Path
	}

	if status >= http.StatusInternalServerError {
		log.WithFields(fields).Error("Request failed")
	} else {
		log.WithFields(fields).Debug("Request rejected")
	}

	if status == http.StatusInternalServerError {
		// Do not send data regarding the error
		http.Error(rw, "Error", status)
		return
	}

	http.Error(rw, err.Error(), status)
}

// handleJsonResponse is a helper function for unified JSON response handling.
func handleJsonResponse(rw http.ResponseWriter, status int, res interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(res); err != nil {
		log.WithFields(log.Fields{"error": err}).Warn("Failed to encode response")
	}
}

func checkNonEmptyBody(r *http.Request) error {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return EmptyBodyError
	}
	return nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := checkNonEmptyBody(r); err != nil {
		return err
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return InvalidBodyError
	}
	return nil
}

func parseListOptions(r *http.Request) datastore.ListOptions {
	limit, err := strconv.Atoi(r.FormValue("limit"))
	if err != nil {
		limit = 0
	}

	offset, err := strconv.Atoi(r.FormValue("offset"))
	if err != nil {
		offset = 0
	}

	return datastore.ParseListOptions(limit, offset)
}

func servePlainText(rw http.ResponseWriter, s string) {
	rw.Header().Set("Content-Type", "text/plain")
	rw.Header().Set("Content-Length", strconv.Itoa(len(s)))
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte(s)) // nolint
}
