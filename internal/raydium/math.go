package raydium

import (
	"errors"
	"fmt"
	"math/big"
)

// Liquidity rejection reasons. Any of these short-circuits the slice before
// an instruction is built.
var (
	ErrZeroReserve   = errors.New("pool has a zero reserve")
	ErrDrainedPool   = errors.New("destination reserve too shallow for expected output")
	ErrBelowOutFloor = errors.New("expected output below absolute floor")
)

// ExpectedOutput computes the constant-product output:
// out = (reserveOut * amountIn) / (reserveIn + amountIn).
// big.Int keeps the intermediate product from overflowing uint64.
func ExpectedOutput(amountIn, reserveIn, reserveOut uint64) (uint64, error) {
	if amountIn == 0 {
		return 0, fmt.Errorf("amountIn must be > 0")
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrZeroReserve
	}

	in := new(big.Int).SetUint64(amountIn)
	rIn := new(big.Int).SetUint64(reserveIn)
	rOut := new(big.Int).SetUint64(reserveOut)

	numerator := new(big.Int).Mul(rOut, in)
	denominator := new(big.Int).Add(rIn, in)

	out := new(big.Int).Div(numerator, denominator)
	if !out.IsUint64() {
		return 0, fmt.Errorf("output amount overflow")
	}
	return out.Uint64(), nil
}

// ApplySlippage calculates minimum output with slippage tolerance.
// slippageBps: basis points (e.g., 100 = 1%, 50 = 0.5%)
func ApplySlippage(amountOut uint64, slippageBps uint16) uint64 {
	if slippageBps >= 10000 {
		return 0
	}

	factor := new(big.Int).SetUint64(10000 - uint64(slippageBps))
	result := new(big.Int).Mul(new(big.Int).SetUint64(amountOut), factor)
	result.Div(result, big.NewInt(10000))

	return result.Uint64()
}

// VerifyLiquidity rejects swaps that an almost-drained or empty pool could
// not honor. The 2x margin guards against a pool that technically covers the
// output but would be left near zero.
func VerifyLiquidity(reserveIn, reserveOut, expectedOut, outFloor uint64) error {
	if reserveIn == 0 || reserveOut == 0 {
		return ErrZeroReserve
	}
	if expectedOut < outFloor {
		return fmt.Errorf("%w: expected %d < floor %d", ErrBelowOutFloor, expectedOut, outFloor)
	}
	if reserveOut < 2*expectedOut {
		return fmt.Errorf("%w: reserve %d < 2x expected %d", ErrDrainedPool, reserveOut, expectedOut)
	}
	return nil
}

// Rate returns the spot price of one raw input unit in output units,
// used by the threshold gate for raw-to-SOL conversion. Zero reserves
// yield a zero rate, which the gate treats as "rate unavailable".
func Rate(reserveIn, reserveOut uint64) float64 {
	if reserveIn == 0 || reserveOut == 0 {
		return 0
	}
	return float64(reserveOut) / float64(reserveIn)
}
