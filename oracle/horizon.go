package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/protocols/horizon/operations"
)

// Asset maps a storefront currency code to the on-ledger asset it settles in.
type Asset struct {
	Native bool
	Code   string
	Issuer string
}

// DefaultAssets covers the currencies the checkout offers. Issuers are left
// open so testnet and pubnet deployments can both resolve them.
var DefaultAssets = map[string]Asset{
	"XLM":  {Native: true},
	"USDC": {Code: "USDC"},
	"USDT": {Code: "USDT"},
	"BTC":  {Code: "BTC"},
	"ETH":  {Code: "ETH"},
}

// HorizonOracle verifies payments by querying a Stellar Horizon server.
type HorizonOracle struct {
	client horizonclient.ClientInterface
	assets map[string]Asset
}

func NewHorizonOracle(horizonURL string) *HorizonOracle {
	return &HorizonOracle{
		client: &horizonclient.Client{HorizonURL: horizonURL},
		assets: DefaultAssets,
	}
}

// NewHorizonOracleWithClient is used by tests and by deployments that need a
// preconfigured Horizon client or asset registry.
func NewHorizonOracleWithClient(client horizonclient.ClientInterface, assets map[string]Asset) *HorizonOracle {
	if assets == nil {
		assets = DefaultAssets
	}
	return &HorizonOracle{client: client, assets: assets}
}

func (o *HorizonOracle) QueryAddress(ctx context.Context, address, currency string, minAmount decimal.Decimal, lookback time.Duration) (AddressResult, error) {
	if err := ctx.Err(); err != nil {
		return AddressResult{}, err
	}

	asset, ok := o.assets[currency]
	if !ok {
		return AddressResult{}, fmt.Errorf("unsupported currency: %s", currency)
	}

	page, err := o.client.Payments(horizonclient.OperationRequest{
		ForAccount: address,
		Order:      horizonclient.OrderDesc,
		Limit:      50,
	})
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			// Account not yet funded: nothing received, not a fault.
			return AddressResult{Found: false}, nil
		}
		return AddressResult{}, fmt.Errorf("failed to list payments for %s: %w", address, err)
	}

	cutoff := time.Now().Add(-lookback)
	for _, record := range page.Embedded.Records {
		payment, ok := record.(operations.Payment)
		if !ok {
			continue
		}
		if payment.To != address || !payment.Base.TransactionSuccessful {
			continue
		}
		if payment.Base.LedgerCloseTime.Before(cutoff) {
			continue
		}
		if !o.assetMatches(asset, payment.Asset.Type, payment.Asset.Code, payment.Asset.Issuer) {
			continue
		}

		amount, err := decimal.NewFromString(payment.Amount)
		if err != nil {
			continue
		}
		if amount.LessThan(minAmount) {
			continue
		}

		// Horizon only surfaces ledger-included operations, so an observed
		// payment already has at least one confirmation.
		return AddressResult{
			Found:         true,
			TransactionID: payment.Base.TransactionHash,
			Amount:        amount,
			Confirmations: 1,
		}, nil
	}

	return AddressResult{Found: false}, nil
}

func (o *HorizonOracle) QueryTransaction(ctx context.Context, txID, currency string, expectedAmount decimal.Decimal) (TransactionResult, error) {
	if err := ctx.Err(); err != nil {
		return TransactionResult{}, err
	}

	asset, ok := o.assets[currency]
	if !ok {
		return TransactionResult{}, fmt.Errorf("unsupported currency: %s", currency)
	}

	tx, err := o.client.TransactionDetail(txID)
	if err != nil {
		if horizonclient.IsNotFoundError(err) {
			return TransactionResult{Valid: false}, nil
		}
		return TransactionResult{}, fmt.Errorf("failed to fetch transaction %s: %w", txID, err)
	}

	if !tx.Successful {
		return TransactionResult{Valid: false}, nil
	}

	page, err := o.client.Operations(horizonclient.OperationRequest{
		ForTransaction: txID,
		Limit:          20,
	})
	if err != nil {
		return TransactionResult{}, fmt.Errorf("failed to list operations for %s: %w", txID, err)
	}

	for _, record := range page.Embedded.Records {
		payment, ok := record.(operations.Payment)
		if !ok {
			continue
		}
		if !o.assetMatches(asset, payment.Asset.Type, payment.Asset.Code, payment.Asset.Issuer) {
			continue
		}

		amount, err := decimal.NewFromString(payment.Amount)
		if err != nil {
			continue
		}

		return TransactionResult{
			Valid:         true,
			Confirmed:     true,
			Amount:        amount,
			Confirmations: 1,
		}, nil
	}

	// The transaction exists but carries no payment in the expected asset.
	return TransactionResult{Valid: false}, nil
}

func (o *HorizonOracle) assetMatches(want Asset, assetType, code, issuer string) bool {
	if want.Native {
		return assetType == "native"
	}
	if assetType == "native" || code != want.Code {
		return false
	}
	if want.Issuer != "" && issuer != want.Issuer {
		return false
	}
	return true
}
