// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txs defines the operations of the carbon VM as a closed set of
// transaction types.
package txs

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/crypto/secp256k1"
	"github.com/luxfi/ids"

	"github.com/luxfi/carbon/vms/carbonvm/errs"
)


var (
	ErrNilTx          = fmt.Errorf("%w: tx is nil", errs.ErrValidation)
	ErrMissingSigner  = fmt.Errorf("%w: tx has no signer", errs.ErrAuthorization)
	ErrBadSignature   = fmt.Errorf("%w: invalid signature", errs.ErrAuthorization)
	ErrSignerMismatch = fmt.Errorf("%w: signature was not made by the signer", errs.ErrAuthorization)
	ErrUnknownTxType  = fmt.Errorf("%w: unknown tx type", errs.ErrValidation)
	ErrZeroAmount     = fmt.Errorf("%w: amount must be positive", errs.ErrValidation)
	ErrMissingID      = fmt.Errorf("%w: required id is empty", errs.ErrValidation)
	ErrSameToken      = fmt.Errorf("%w: tokens must differ", errs.ErrValidation)
	ErrEmptyUpdate    = fmt.Errorf("%w: update changes nothing", errs.ErrValidation)
	ErrInvalidEnum    = fmt.Errorf("%w: invalid enum value", errs.ErrValidation)
	errNotInitialized = errors.New("tx bytes not initialized")
)

// TxType tags the concrete type of an UnsignedTx.
type TxType uint8

const (
	InitializeToken TxType = iota
	Mint
	Burn
	Retire
	Transfer
	VerifyProject
	UpdateMetadata
	FreezeAccount
	InitializeMarket
	CreateOrder
	CancelOrder
	MatchOrders
	SettleTrade
	ArchiveOrder
	AddLiquidity
	RemoveLiquidity
	Swap
)

var txTypeNames = [...]string{
	InitializeToken:  "initialize_token",
	Mint:             "mint",
	Burn:             "burn",
	Retire:           "retire",
	Transfer:         "transfer",
	VerifyProject:    "verify_project",
	UpdateMetadata:   "update_metadata",
	FreezeAccount:    "freeze_account",
	InitializeMarket: "initialize_market",
	CreateOrder:      "create_order",
	CancelOrder:      "cancel_order",
	MatchOrders:      "match_orders",
	SettleTrade:      "settle_trade",
	ArchiveOrder:     "archive_order",
	AddLiquidity:     "add_liquidity",
	RemoveLiquidity:  "remove_liquidity",
	Swap:             "swap",
}

func (t TxType) String() string {
	if int(t) < len(txTypeNames) {
		return txTypeNames[t]
	}
	return "unknown"
}

// ParseTxType is the inverse of TxType.String.
func ParseTxType(name string) (TxType, error) {
	for t, n := range txTypeNames {
		if n == name {
			return TxType(t), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTxType, name)
}

// UnsignedTx is the body of a transaction.
type UnsignedTx interface {
	Type() TxType

	// SyntacticVerify checks the tx without reading any state.
	SyntacticVerify() error

	// Visit calls [visitor] with this transaction's concrete type
	Visit(visitor Visitor) error
}

// Tx is an UnsignedTx together with the principal that authorized it.
//
// A signed Tx carries a recoverable secp256k1 signature over its signing hash
// and Signer must be the address that signature recovers to. An unsigned Tx
// is trusted as authorized by whoever hands it to the VM, which only happens
// for genesis and in-process callers.
type Tx struct {
	Unsigned  UnsignedTx                   `serialize:"true"`
	Signer    ids.ShortID                  `serialize:"true"`
	Nonce     uint64                       `serialize:"true"`
	Signature [secp256k1.SignatureLen]byte `serialize:"true"`

	id    ids.ID
	bytes []byte
}

// signedPayload is the part of a Tx covered by its signature.
type signedPayload struct {
	Unsigned UnsignedTx  `serialize:"true"`
	Signer   ids.ShortID `serialize:"true"`
	Nonce    uint64      `serialize:"true"`
}

// NewTx returns an initialized, unsigned Tx.
func NewTx(unsigned UnsignedTx, signer ids.ShortID) (*Tx, error) {
	tx := &Tx{
		Unsigned: unsigned,
		Signer:   signer,
	}
	return tx, tx.Initialize()
}

// NewSignedTx returns an initialized Tx signed by key. The nonce lets the
// same operation be issued more than once by the same key.
func NewSignedTx(unsigned UnsignedTx, nonce uint64, key *secp256k1.PrivateKey) (*Tx, error) {
	tx := &Tx{
		Unsigned: unsigned,
		Nonce:    nonce,
	}
	return tx, tx.Sign(key)
}

// Initialize computes the canonical bytes and ID of the tx.
func (tx *Tx) Initialize() error {
	if tx.Unsigned == nil {
		return ErrNilTx
	}
	bytes, err := Codec.Marshal(CodecVersion, tx)
	if err != nil {
		return fmt.Errorf("couldn't marshal tx: %w", err)
	}
	tx.bytes = bytes
	tx.id = sha256.Sum256(bytes)
	return nil
}

// SigningHash returns the hash a signer signs. It commits to the body, the
// signer and the nonce but not to the signature, so it also identifies the
// tx for replay protection.
func (tx *Tx) SigningHash() (ids.ID, error) {
	if tx.Unsigned == nil {
		return ids.Empty, ErrNilTx
	}
	bytes, err := Codec.Marshal(CodecVersion, &signedPayload{
		Unsigned: tx.Unsigned,
		Signer:   tx.Signer,
		Nonce:    tx.Nonce,
	})
	if err != nil {
		return ids.Empty, fmt.Errorf("couldn't marshal signed payload: %w", err)
	}
	return hash.ComputeHash256Array(bytes), nil
}

// Sign sets the signer to the address of key, signs the tx and initializes it.
func (tx *Tx) Sign(key *secp256k1.PrivateKey) error {
	tx.Signer = key.Address()
	signingHash, err := tx.SigningHash()
	if err != nil {
		return err
	}
	tx.Signature, err = key.SignHashArray(signingHash[:])
	if err != nil {
		return fmt.Errorf("couldn't sign tx: %w", err)
	}
	return tx.Initialize()
}

// IsSigned reports whether the tx carries a signature.
func (tx *Tx) IsSigned() bool {
	return tx.Signature != [secp256k1.SignatureLen]byte{}
}

// verifySignature checks that the signature recovers to Signer.
func (tx *Tx) verifySignature() error {
	signingHash, err := tx.SigningHash()
	if err != nil {
		return err
	}
	publicKey, err := secp256k1.RecoverPublicKeyFromHash(signingHash[:], tx.Signature[:])
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if signer := publicKey.Address(); signer != tx.Signer {
		return fmt.Errorf("%w: recovered %s, claimed %s", ErrSignerMismatch, signer, tx.Signer)
	}
	return nil
}

func (tx *Tx) ID() ids.ID {
	return tx.id
}

func (tx *Tx) Bytes() []byte {
	return tx.bytes
}

// SyntacticVerify checks the tx is well formed.
func (tx *Tx) SyntacticVerify() error {
	switch {
	case tx == nil || tx.Unsigned == nil:
		return ErrNilTx
	case tx.Signer == ids.ShortEmpty:
		return ErrMissingSigner
	case tx.bytes == nil:
		return errNotInitialized
	}
	if tx.IsSigned() {
		if err := tx.verifySignature(); err != nil {
			return err
		}
	}
	return tx.Unsigned.SyntacticVerify()
}

// Parse decodes canonical tx bytes.
func Parse(bytes []byte) (*Tx, error) {
	tx := &Tx{}
	if _, err := Codec.Unmarshal(bytes, tx); err != nil {
		return nil, fmt.Errorf("%w: couldn't unmarshal tx: %w", errs.ErrValidation, err)
	}
	tx.bytes = bytes
	tx.id = sha256.Sum256(bytes)
	return tx, nil
}

func nonEmpty(values ...ids.ID) error {
	for _, v := range values {
		if v == ids.Empty {
			return ErrMissingID
		}
	}
	return nil
}

func positive(values ...uint64) error {
	for _, v := range values {
		if v == 0 {
			return ErrZeroAmount
		}
	}
	return nil
}
