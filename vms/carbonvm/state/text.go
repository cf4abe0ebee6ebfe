// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"fmt"
	"strings"
)

func (k TokenKind) MarshalText() ([]byte, error) {
	if err := k.Verify(); err != nil {
		return nil, err
	}
	return []byte(k.String()), nil
}

func (k *TokenKind) UnmarshalText(text []byte) error {
	switch strings.ToUpper(string(text)) {
	case "CST":
		*k = Settlement
	case "VCU":
		*k = CarbonUnit
	default:
		return fmt.Errorf("%w: %q", errUnknownTokenKind, text)
	}
	return nil
}

func (s Side) MarshalText() ([]byte, error) {
	if err := s.Verify(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "buy":
		*s = Buy
	case "sell":
		*s = Sell
	default:
		return fmt.Errorf("%w: %q", errUnknownSide, text)
	}
	return nil
}

func (s OrderStatus) MarshalText() ([]byte, error) {
	if err := s.Verify(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

func (s *OrderStatus) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "open":
		*s = Open
	case "filled":
		*s = Filled
	case "cancelled":
		*s = Cancelled
	default:
		return fmt.Errorf("%w: %q", errUnknownOrderStatus, text)
	}
	return nil
}
