package market

import (
	"math/big"

	fpmath "RiskEngine/internal/math"
)

// Size-sensitive weight scaling. The imf factor penalizes concentration:
// larger positions carry a higher effective liability weight and a lower
// effective asset weight. The sqrt term keeps the premium sublinear.

// SizePremiumLiabilityWeight returns max(weight, premium-adjusted weight)
// for a liability of the given size (token or base precision 1e9).
func SizePremiumLiabilityWeight(size *big.Int, imfFactor uint32, liabilityWeight, precision *big.Int) (*big.Int, error) {
	if imfFactor == 0 {
		return liabilityWeight, nil
	}

	// 1e9-scaled size -> sqrt in 1e5 scale.
	sizeSqrt, err := fpmath.Sqrt(fpmath.Add(fpmath.Mul(fpmath.Abs(size), fpmath.BN(10)), fpmath.One))
	if err != nil {
		return nil, err
	}

	numerator := fpmath.Sub(liabilityWeight, new(big.Int).Div(liabilityWeight, fpmath.BN(5)))

	denom, err := fpmath.Div(
		fpmath.Mul(fpmath.BN(100_000), fpmath.SpotImfPrecisionBig),
		precision,
	)
	if err != nil {
		return nil, err
	}

	premium, err := fpmath.Div(fpmath.Mul(sizeSqrt, fpmath.BN(int64(imfFactor))), denom)
	if err != nil {
		return nil, err
	}

	return fpmath.Clone(fpmath.Max(liabilityWeight, fpmath.Add(numerator, premium))), nil
}

// SizeDiscountAssetWeight returns min(weight, discount-adjusted weight)
// for an asset of the given size.
func SizeDiscountAssetWeight(size *big.Int, imfFactor uint32, assetWeight *big.Int) (*big.Int, error) {
	if imfFactor == 0 {
		return assetWeight, nil
	}

	sizeSqrt, err := fpmath.Sqrt(fpmath.Add(fpmath.Mul(fpmath.Abs(size), fpmath.BN(10)), fpmath.One))
	if err != nil {
		return nil, err
	}

	imfNumerator := fpmath.Add(
		fpmath.SpotImfPrecisionBig,
		new(big.Int).Div(fpmath.SpotImfPrecisionBig, fpmath.BN(10)),
	)

	scaledPenalty, err := fpmath.Div(fpmath.Mul(sizeSqrt, fpmath.BN(int64(imfFactor))), fpmath.BN(100_000))
	if err != nil {
		return nil, err
	}

	discounted, err := fpmath.Div(
		fpmath.Mul(imfNumerator, fpmath.SpotWeightPrecisionBig),
		fpmath.Add(fpmath.SpotImfPrecisionBig, scaledPenalty),
	)
	if err != nil {
		return nil, err
	}

	return fpmath.Clone(fpmath.Min(assetWeight, discounted)), nil
}
