package oracle

import (
	"encoding/json"

	"RiskEngine/internal/errs"
)

// Key identifies an oracle account. Markets reference oracles by key; the
// same key may back several markets (the quote oracle in particular).
type Key string

// QuoteAssetKey is the sentinel key of the quote-asset oracle. Lookups for
// it never touch registered accounts: the quote asset prices at exactly 1.
const QuoteAssetKey Key = "oracle:quote-asset"

// Source tags the wire encoding of a registered oracle account.
type Source int32

const (
	SourceQuoteAsset Source = iota
	SourceJSON
)

func (s Source) String() string {
	switch s {
	case SourceQuoteAsset:
		return "QuoteAsset"
	case SourceJSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// PriceData is one decoded oracle sample.
type PriceData struct {
	// Price in price precision. Non-positive prices classify as invalid.
	Price int64 `json:"price"`

	// Confidence interval half-width, in price precision.
	Confidence uint64 `json:"confidence"`

	// Delay in slots between the sample's publish slot and the engine slot.
	Delay int64 `json:"delay"`

	// HasSufficientDataPoints is false when the upstream aggregate was
	// built from too few publishers.
	HasSufficientDataPoints bool `json:"has_sufficient_data_points"`
}

// jsonOracleAccount is the registered-account layout for SourceJSON.
type jsonOracleAccount struct {
	Price       int64  `json:"price"`
	Confidence  uint64 `json:"confidence"`
	PublishSlot uint64 `json:"publish_slot"`
	NumPoints   uint32 `json:"num_points"`
}

const minOracleDataPoints = 3

// DecodePriceData decodes registered account bytes into a PriceData.
// Pure on its inputs: identical bytes and slot produce identical samples.
func DecodePriceData(source Source, data []byte, slot uint64) (PriceData, error) {
	switch source {
	case SourceQuoteAsset:
		return QuoteAssetPriceData(), nil
	case SourceJSON:
		var acct jsonOracleAccount
		if err := json.Unmarshal(data, &acct); err != nil {
			return PriceData{}, errs.New(errs.CodeInvalidOracle, "decode oracle account: %v", err)
		}
		delay := int64(0)
		if slot > acct.PublishSlot {
			delay = int64(slot - acct.PublishSlot)
		}
		return PriceData{
			Price:                   acct.Price,
			Confidence:              acct.Confidence,
			Delay:                   delay,
			HasSufficientDataPoints: acct.NumPoints >= minOracleDataPoints,
		}, nil
	default:
		return PriceData{}, errs.New(errs.CodeInvalidOracle, "unknown oracle source %d", source)
	}
}

// QuoteAssetPriceData is the fixed sample of the numeraire: price 1.0,
// zero confidence, zero delay.
func QuoteAssetPriceData() PriceData {
	return PriceData{
		Price:                   1_000_000,
		Confidence:              0,
		Delay:                   0,
		HasSufficientDataPoints: true,
	}
}
