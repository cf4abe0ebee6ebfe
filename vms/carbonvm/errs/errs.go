// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package errs defines the kinds every rejected operation is classified into.
//
// Packages declare their own sentinels by wrapping one of the kinds:
//
//	var ErrOrderNotOpen = fmt.Errorf("%w: order is not open", errs.ErrState)
//
// so callers can test either the precise failure or its kind with errors.Is.
package errs

import "errors"

var (
	// ErrAuthorization means the signer is not the principal the operation
	// requires.
	ErrAuthorization = errors.New("authorization error")
	// ErrState means the operation is invalid for the current lifecycle state
	// of a record.
	ErrState = errors.New("state error")
	// ErrValidation means the parameters are malformed or violate a numeric
	// constraint.
	ErrValidation = errors.New("validation error")
	// ErrResource means funds, shares or liquidity are insufficient.
	ErrResource = errors.New("resource error")
	// ErrDuplicateInitialization means a singleton record already exists.
	ErrDuplicateInitialization = errors.New("duplicate initialization")
)

// Kind labels used in metrics and API errors.
const (
	KindAuthorization           = "authorization"
	KindState                   = "state"
	KindValidation              = "validation"
	KindResource                = "resource"
	KindDuplicateInitialization = "duplicate_initialization"
	KindInternal                = "internal"
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrAuthorization, KindAuthorization},
	{ErrState, KindState},
	{ErrValidation, KindValidation},
	{ErrResource, KindResource},
	{ErrDuplicateInitialization, KindDuplicateInitialization},
}

// Kind returns the label of the first kind err wraps, or KindInternal for
// errors outside the taxonomy such as storage failures.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return KindInternal
}

// IsRejection reports whether err is a classified rejection rather than an
// internal failure.
func IsRejection(err error) bool {
	return err != nil && Kind(err) != KindInternal
}
