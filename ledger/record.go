package ledger

import (
	"fmt"
	"strings"
	"time"
)

type Direction string

const (
	Sent     Direction = "sent"
	Received Direction = "received"
)

func (d Direction) Valid() bool {
	return d == Sent || d == Received
}

type Status int

const (
	Unknown Status = iota
	Pending
	Confirmed
	Failed
)

var statusNames = [...]string{"unknown", "pending", "confirmed", "failed"}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// IsTerminal reports whether a record in status s is no longer reconciled.
func (s Status) IsTerminal() bool {
	return s == Confirmed || s == Failed
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = StatusFromText(string(text))
	return nil
}

func StatusFromText(text string) Status {
	for i, name := range statusNames {
		if strings.EqualFold(name, text) {
			return Status(i)
		}
	}
	return Unknown
}

// TransactionRecord is a locally observed transaction of the active account.
type TransactionRecord struct {
	Hash          string    `json:"hash,omitempty"`
	Direction     Direction `json:"direction"`
	Counterparty  string    `json:"counterparty"`
	Amount        string    `json:"amount"`
	Status        Status    `json:"status"`
	Confirmations *uint64   `json:"confirmations,omitempty"`
	Network       string    `json:"network,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	GasPrice      string    `json:"gasPrice,omitempty"`
}

// Outcome is the resolved status of a pending transaction.
type Outcome struct {
	Status        Status
	Confirmations uint64
}
