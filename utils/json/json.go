// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides numeric types that marshal as JSON strings so that
// 64-bit ledger amounts survive JavaScript clients.
package json

import "strconv"

const Null = "null"

// Uint16 is a uint16 that can be JSON marshaled as a string.
type Uint16 uint16

func (u Uint16) MarshalJSON() ([]byte, error) {
	return quote(uint64(u)), nil
}

func (u *Uint16) UnmarshalJSON(b []byte) error {
	str := unquote(b)
	if str == Null {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 16)
	*u = Uint16(val)
	return err
}

// Uint64 is a uint64 that can be JSON marshaled as a string.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return quote(uint64(u)), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	str := unquote(b)
	if str == Null {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 64)
	*u = Uint64(val)
	return err
}

func quote(v uint64) []byte {
	return []byte(`"` + strconv.FormatUint(v, 10) + `"`)
}

func unquote(b []byte) string {
	str := string(b)
	if len(str) >= 2 {
		if lastIndex := len(str) - 1; str[0] == '"' && str[lastIndex] == '"' {
			str = str[1:lastIndex]
		}
	}
	return str
}
