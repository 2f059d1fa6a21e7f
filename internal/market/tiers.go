package market

// AssetTier ranks how a spot asset may be used as collateral or borrowed.
type AssetTier int32

const (
	AssetTierCollateral AssetTier = iota
	AssetTierProtected
	AssetTierCross
	AssetTierIsolated
	AssetTierUnlisted
)

func (t AssetTier) String() string {
	switch t {
	case AssetTierCollateral:
		return "Collateral"
	case AssetTierProtected:
		return "Protected"
	case AssetTierCross:
		return "Cross"
	case AssetTierIsolated:
		return "Isolated"
	case AssetTierUnlisted:
		return "Unlisted"
	default:
		return "Unknown"
	}
}

// ContractTier ranks a perp market's risk class.
type ContractTier int32

const (
	ContractTierA ContractTier = iota
	ContractTierB
	ContractTierC
	ContractTierSpeculative
	ContractTierHighlySpeculative
	ContractTierIsolated
)

func (t ContractTier) String() string {
	switch t {
	case ContractTierA:
		return "A"
	case ContractTierB:
		return "B"
	case ContractTierC:
		return "C"
	case ContractTierSpeculative:
		return "Speculative"
	case ContractTierHighlySpeculative:
		return "HighlySpeculative"
	case ContractTierIsolated:
		return "Isolated"
	default:
		return "Unknown"
	}
}

// ContractType distinguishes perpetual, dated future, and prediction
// contracts. Prediction contracts settle at 0 or 1 and bound valuation.
type ContractType int32

const (
	ContractTypePerpetual ContractType = iota
	ContractTypeFuture
	ContractTypePrediction
)

func (t ContractType) String() string {
	switch t {
	case ContractTypePerpetual:
		return "Perpetual"
	case ContractTypeFuture:
		return "Future"
	case ContractTypePrediction:
		return "Prediction"
	default:
		return "Unknown"
	}
}

// WeightCategory selects which weight table a valuation reads. The fill
// regime shares the initial table.
type WeightCategory int32

const (
	WeightInitial WeightCategory = iota
	WeightMaintenance
)
