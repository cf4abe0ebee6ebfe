// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package math

import "github.com/holiman/uint256"

// MulDiv returns floor(a*b/c) computed with a 256-bit intermediate. It errors
// if c is zero or the quotient does not fit in a uint64.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivideByZero
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	quotient := product.Div(product, uint256.NewInt(c))
	if !quotient.IsUint64() {
		return 0, ErrOverflow
	}
	return quotient.Uint64(), nil
}

// MulDivRoundUp returns ceil(a*b/c).
func MulDivRoundUp(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, ErrDivideByZero
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	quotient, remainder := new(uint256.Int), new(uint256.Int)
	quotient.DivMod(product, uint256.NewInt(c), remainder)
	if !remainder.IsZero() {
		quotient.AddUint64(quotient, 1)
	}
	if !quotient.IsUint64() {
		return 0, ErrOverflow
	}
	return quotient.Uint64(), nil
}

// SqrtProduct returns floor(sqrt(a*b)). The result always fits in a uint64
// because a*b < 2^128.
func SqrtProduct(a, b uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return product.Sqrt(product).Uint64()
}

// CompareProducts returns -1, 0 or 1 as a*b is less than, equal to or greater
// than c*d.
func CompareProducts(a, b, c, d uint64) int {
	left := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	right := new(uint256.Int).Mul(uint256.NewInt(c), uint256.NewInt(d))
	return left.Cmp(right)
}
