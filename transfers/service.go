// Package transfers records token transfers that were signed and submitted
// by the user's wallet, and reports the token balance of the active account.
package transfers

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/addressbook"
	"github.com/flow-hydraulics/token-wallet-ledger/chain"
	"github.com/flow-hydraulics/token-wallet-ledger/errors"
	"github.com/flow-hydraulics/token-wallet-ledger/ledger"
	"github.com/flow-hydraulics/token-wallet-ledger/session"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const WarningUnknownRecipient = "recipient not in address book"

type Ledger interface {
	Append(ctx context.Context, r ledger.TransactionRecord) error
	Find(hash string) (ledger.TransactionRecord, bool)
}

type AddressBook interface {
	FindByAddress(address string) (addressbook.Entry, bool)
}

type Session interface {
	State() session.State
}

type BalanceProvider interface {
	TokenBalance(ctx context.Context, token, owner string) (*big.Int, error)
	TokenDecimals(ctx context.Context, token string) (uint8, error)
}

// Request describes a transfer the wallet submitted.
type Request struct {
	Direction string `json:"direction,omitempty"`
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Hash      string `json:"hash,omitempty"`
	GasPrice  string `json:"gasPrice,omitempty"`
}

type Result struct {
	Record   ledger.TransactionRecord `json:"record"`
	Label    string                   `json:"label,omitempty"`
	Warnings []string                 `json:"warnings,omitempty"`
}

type Balance struct {
	Account   string `json:"account"`
	Token     string `json:"token"`
	Symbol    string `json:"symbol"`
	Raw       string `json:"raw"`
	Formatted string `json:"formatted"`
}

type Service struct {
	ledger   Ledger
	book     AddressBook
	session  Session
	balances BalanceProvider
	token    string
	symbol   string
}

type Option func(*Service)

// WithToken enables balance queries against the ERC-20 contract address.
func WithToken(address, symbol string, balances BalanceProvider) Option {
	return func(svc *Service) {
		svc.token = address
		svc.symbol = symbol
		svc.balances = balances
	}
}

func NewService(l Ledger, book AddressBook, s Session, opts ...Option) *Service {
	svc := &Service{ledger: l, book: book, session: s}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// Record validates req and appends it to the ledger of the connected account
// as a pending transaction.
func (svc *Service) Record(ctx context.Context, req Request) (Result, error) {
	state := svc.session.State()
	if !state.Connected {
		return Result{}, &errors.ValidationError{Reason: "connect a wallet first"}
	}

	direction := ledger.Sent
	if req.Direction != "" {
		direction = ledger.Direction(strings.ToLower(req.Direction))
		if !direction.Valid() {
			return Result{}, errors.NewValidationError("direction", "must be %q or %q", ledger.Sent, ledger.Received)
		}
	}

	recipient := strings.TrimSpace(req.Recipient)
	if !chain.IsAddress(recipient) {
		return Result{}, errors.NewValidationError("recipient", "%q is not an address", recipient)
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		return Result{}, errors.NewValidationError("amount", "must be a number greater than 0")
	}

	hash := strings.TrimSpace(req.Hash)
	if hash != "" {
		if !chain.IsHash(hash) {
			return Result{}, errors.NewValidationError("hash", "%q is not a transaction hash", hash)
		}
		if _, exists := svc.ledger.Find(hash); exists {
			return Result{}, errors.NewValidationError("hash", "transaction %s is already recorded", hash)
		}
	}

	res := Result{}
	if e, ok := svc.book.FindByAddress(recipient); ok {
		res.Label = e.Label
	} else {
		res.Warnings = append(res.Warnings, WarningUnknownRecipient)
	}

	res.Record = ledger.TransactionRecord{
		Hash:         hash,
		Direction:    direction,
		Counterparty: recipient,
		Amount:       amount.String(),
		Status:       ledger.Pending,
		Network:      state.Network,
		GasPrice:     strings.TrimSpace(req.GasPrice),
		Timestamp:    time.Now(),
	}

	if err := svc.ledger.Append(ctx, res.Record); err != nil {
		return Result{}, err
	}

	log.
		WithFields(log.Fields{"hash": hash, "direction": direction, "amount": res.Record.Amount}).
		Info("Transfer recorded")

	return res, nil
}

// Balance returns the token balance of the connected account.
func (svc *Service) Balance(ctx context.Context) (Balance, error) {
	state := svc.session.State()
	if !state.Connected {
		return Balance{}, &errors.ValidationError{Reason: "connect a wallet first"}
	}

	if svc.balances == nil || svc.token == "" {
		return Balance{}, &errors.RequestError{
			StatusCode: http.StatusNotImplemented,
			Err:        fmt.Errorf("no token contract configured"),
		}
	}

	raw, err := svc.balances.TokenBalance(ctx, svc.token, state.Account)
	if err != nil {
		return Balance{}, err
	}

	decimals, err := svc.balances.TokenDecimals(ctx, svc.token)
	if err != nil {
		return Balance{}, err
	}

	return Balance{
		Account:   state.Account,
		Token:     svc.token,
		Symbol:    svc.symbol,
		Raw:       raw.String(),
		Formatted: chain.FormatTokenAmount(raw, decimals),
	}, nil
}
