package handlers

import (
	"net/http"

	"github.com/flow-hydraulics/token-wallet-ledger/session"
)

// Session is a HTTP server for the wallet connection state.
type Session struct {
	session *session.Session
}

type ConnectRequest struct {
	Account string `json:"account"`
	ChainID uint64 `json:"chainId"`
}

type AccountRequest struct {
	Account string `json:"account"`
}

type NetworkRequest struct {
	ChainID uint64 `json:"chainId"`
}

func NewSession(s *session.Session) *Session {
	return &Session{s}
}

func (s *Session) Details() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		handleJsonResponse(rw, http.StatusOK, s.session.State())
	})
}

// Connect connects an account, or switches to it when another one is
// connected.
func (s *Session) Connect() http.Handler {
	return UseJson(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req ConnectRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(rw, r, err)
			return
		}

		state, err := s.session.Connect(r.Context(), req.Account, req.ChainID)
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, state)
	}))
}

// SwitchAccount changes the account of a connected session, keeping the
// network.
func (s *Session) SwitchAccount() http.Handler {
	return UseJson(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req AccountRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(rw, r, err)
			return
		}

		state, err := s.session.SwitchAccount(r.Context(), req.Account)
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, state)
	}))
}

func (s *Session) SwitchNetwork() http.Handler {
	return UseJson(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		var req NetworkRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(rw, r, err)
			return
		}

		state, err := s.session.SwitchNetwork(req.ChainID)
		if err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, state)
	}))
}

func (s *Session) Disconnect() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if err := s.session.Disconnect(r.Context()); err != nil {
			handleError(rw, r, err)
			return
		}

		handleJsonResponse(rw, http.StatusOK, s.session.State())
	})
}
