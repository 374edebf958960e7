package ledger

import (
	"fmt"
	"time"

	"github.com/flow-hydraulics/token-wallet-ledger/chain"
)

const DateLayout = "2006-01-02 15:04:05 MST"

// JSONResponse is the renderable row of a record.
type JSONResponse struct {
	Hash              string    `json:"hash,omitempty"`
	Type              string    `json:"type"`
	Counterparty      string    `json:"counterparty"`
	ShortCounterparty string    `json:"shortCounterparty"`
	Amount            string    `json:"amount"`
	Status            string    `json:"status"`
	Confirmations     *uint64   `json:"confirmations,omitempty"`
	Network           string    `json:"network,omitempty"`
	GasPrice          string    `json:"gasPrice,omitempty"`
	Date              string    `json:"date"`
	Timestamp         time.Time `json:"timestamp"`
}

// ToJSONResponse projects r for display. Sent amounts are prefixed with "-"
// and received ones with "+".
func (r TransactionRecord) ToJSONResponse(symbol string, loc *time.Location) JSONResponse {
	if loc == nil {
		loc = time.UTC
	}

	label, sign := "Received", "+"
	if r.Direction == Sent {
		label, sign = "Sent", "-"
	}

	amount := fmt.Sprintf("%s %s", sign, r.Amount)
	if symbol != "" {
		amount += " " + symbol
	}

	r = copyRecord(r)

	return JSONResponse{
		Hash:              r.Hash,
		Type:              label,
		Counterparty:      r.Counterparty,
		ShortCounterparty: chain.ShortenAddress(r.Counterparty),
		Amount:            amount,
		Status:            r.Status.String(),
		Confirmations:     r.Confirmations,
		Network:           r.Network,
		GasPrice:          r.GasPrice,
		Date:              r.Timestamp.In(loc).Format(DateLayout),
		Timestamp:         r.Timestamp,
	}
}

func ToJSONResponses(rr []TransactionRecord, symbol string, loc *time.Location) []JSONResponse {
	res := make([]JSONResponse, len(rr))
	for i, r := range rr {
		res[i] = r.ToJSONResponse(symbol, loc)
	}
	return res
}
