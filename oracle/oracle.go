package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AddressResult is the answer to "has this address received a payment of at
// least the expected amount within the lookback window?".
type AddressResult struct {
	Found         bool
	TransactionID string
	Amount        decimal.Decimal
	Confirmations int
}

// TransactionResult is the answer to "is this transaction valid, confirmed,
// and for what amount?". Valid=false means the identifier does not resolve to
// a usable transaction; it is informational, not an error.
type TransactionResult struct {
	Valid         bool
	Confirmed     bool
	Amount        decimal.Decimal
	Confirmations int
}

// Client answers payment verification queries against an external ledger.
// Both calls are read-only. A returned error means "no new information" —
// callers must not treat it as a negative result. Retry cadence is owned by
// the caller, never by the client.
type Client interface {
	QueryAddress(ctx context.Context, address, currency string, minAmount decimal.Decimal, lookback time.Duration) (AddressResult, error)
	QueryTransaction(ctx context.Context, txID, currency string, expectedAmount decimal.Decimal) (TransactionResult, error)
}
