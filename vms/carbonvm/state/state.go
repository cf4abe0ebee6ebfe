// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists the carbon ledger, markets, pools and retirement log
// in a key-value database.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"

	"github.com/luxfi/cache/lru"
	"github.com/luxfi/database"
	"github.com/luxfi/ids"
)

const DefaultRetirementCacheSize = 4096

var (
	_ Chain = (*State)(nil)
	_ Chain = (*Diff)(nil)

	ErrCorrupted = errors.New("state corrupted")
)

// ReadOnlyChain is the read half of the persisted state.
//
// Record getters return database.ErrNotFound when the record does not exist.
// Balance, escrow and share getters return zero instead.
type ReadOnlyChain interface {
	GetMint(tokenID ids.ID) (*MintRecord, error)
	GetBalance(tokenID ids.ID, holder ids.ShortID) (uint64, error)
	GetEscrow(tokenID, accountID ids.ID) (uint64, error)
	IsFrozen(tokenID ids.ID, holder ids.ShortID) (bool, error)
	GetMarket(marketID ids.ID) (*Market, error)
	GetOrder(orderID ids.ID) (*Order, error)
	GetMatch(matchID ids.ID) (*Match, error)
	GetPool(poolID ids.ID) (*Pool, error)
	GetShares(poolID ids.ID, holder ids.ShortID) (uint64, error)
	RetirementCount(projectID string) (uint64, error)
	// HasAcceptedTx reports whether a signed tx with this signing hash was
	// already accepted.
	HasAcceptedTx(signingHash ids.ID) (bool, error)

	// RestingOrders yields the IDs of the open orders of one side of a
	// market, best price first and then by sequence.
	RestingOrders(marketID ids.ID, side Side) iter.Seq2[ids.ID, error]
	// Retirements yields a project's retirement records ordered by
	// timestamp. Each range over the sequence starts from the beginning.
	Retirements(projectID string) iter.Seq2[*RetirementRecord, error]
	// Holdings yields every non-zero free balance of a token.
	Holdings(tokenID ids.ID) iter.Seq2[Holding, error]
	// Escrows yields every non-zero escrow sub-balance of a token.
	Escrows(tokenID ids.ID) iter.Seq2[Escrow, error]
	// Shareholders yields every non-zero LP share balance of a pool.
	Shareholders(poolID ids.ID) iter.Seq2[Holding, error]
}

// Chain is the persisted state operations read and write.
type Chain interface {
	ReadOnlyChain

	PutMint(record *MintRecord) error
	SetBalance(tokenID ids.ID, holder ids.ShortID, amount uint64) error
	SetEscrow(tokenID, accountID ids.ID, amount uint64) error
	SetFrozen(tokenID ids.ID, holder ids.ShortID, frozen bool) error
	PutMarket(market *Market) error
	PutOrder(order *Order) error
	DeleteOrder(orderID ids.ID) error
	AddRestingOrder(order *Order) error
	RemoveRestingOrder(order *Order) error
	PutMatch(match *Match) error
	DeleteMatch(matchID ids.ID) error
	PutPool(pool *Pool) error
	DeletePool(poolID ids.ID) error
	SetShares(poolID ids.ID, holder ids.ShortID, amount uint64) error
	MarkAcceptedTx(signingHash ids.ID) error

	// AppendRetirement assigns the record its per-project index and ID and
	// persists it. Records are never updated or deleted.
	AppendRetirement(record *RetirementRecord) error
}

// State is the committed state.
type State struct {
	db database.Database

	// Retirement records are immutable, so decoded records are cached by ID.
	// Only the committed state caches; staged diffs may be aborted.
	retirements *lru.Cache[ids.ID, *RetirementRecord]
}

// New returns the state stored in db.
func New(db database.Database, retirementCacheSize int) *State {
	if retirementCacheSize <= 0 {
		retirementCacheSize = DefaultRetirementCacheSize
	}
	return &State{
		db:          db,
		retirements: lru.NewCache[ids.ID, *RetirementRecord](retirementCacheSize),
	}
}

func (s *State) HasAcceptedTx(signingHash ids.ID) (bool, error) {
	return s.db.Has(acceptedKey(signingHash))
}

func (s *State) MarkAcceptedTx(signingHash ids.ID) error {
	return s.db.Put(acceptedKey(signingHash), []byte{1})
}

func (s *State) GetMint(tokenID ids.ID) (*MintRecord, error) {
	record := &MintRecord{}
	return record, s.getRecord(mintKey(tokenID), record)
}

func (s *State) PutMint(record *MintRecord) error {
	return s.putRecord(mintKey(record.TokenID), record)
}

func (s *State) GetBalance(tokenID ids.ID, holder ids.ShortID) (uint64, error) {
	return s.getAmount(balanceKey(tokenID, holder))
}

func (s *State) SetBalance(tokenID ids.ID, holder ids.ShortID, amount uint64) error {
	return s.setAmount(balanceKey(tokenID, holder), amount)
}

func (s *State) GetEscrow(tokenID, accountID ids.ID) (uint64, error) {
	return s.getAmount(escrowKey(tokenID, accountID))
}

func (s *State) SetEscrow(tokenID, accountID ids.ID, amount uint64) error {
	return s.setAmount(escrowKey(tokenID, accountID), amount)
}

func (s *State) IsFrozen(tokenID ids.ID, holder ids.ShortID) (bool, error) {
	return s.db.Has(frozenKey(tokenID, holder))
}

func (s *State) SetFrozen(tokenID ids.ID, holder ids.ShortID, frozen bool) error {
	key := frozenKey(tokenID, holder)
	if !frozen {
		return s.db.Delete(key)
	}
	return s.db.Put(key, []byte{1})
}

func (s *State) GetMarket(marketID ids.ID) (*Market, error) {
	market := &Market{}
	return market, s.getRecord(marketKey(marketID), market)
}

func (s *State) PutMarket(market *Market) error {
	return s.putRecord(marketKey(market.ID), market)
}

func (s *State) GetOrder(orderID ids.ID) (*Order, error) {
	order := &Order{}
	return order, s.getRecord(orderKey(orderID), order)
}

func (s *State) PutOrder(order *Order) error {
	return s.putRecord(orderKey(order.ID), order)
}

func (s *State) DeleteOrder(orderID ids.ID) error {
	return s.db.Delete(orderKey(orderID))
}

func (s *State) AddRestingOrder(order *Order) error {
	return s.db.Put(bookKey(order), order.ID[:])
}

func (s *State) RemoveRestingOrder(order *Order) error {
	return s.db.Delete(bookKey(order))
}

func (s *State) GetMatch(matchID ids.ID) (*Match, error) {
	match := &Match{}
	return match, s.getRecord(matchKey(matchID), match)
}

func (s *State) PutMatch(match *Match) error {
	return s.putRecord(matchKey(match.ID), match)
}

func (s *State) DeleteMatch(matchID ids.ID) error {
	return s.db.Delete(matchKey(matchID))
}

func (s *State) GetPool(poolID ids.ID) (*Pool, error) {
	pool := &Pool{}
	return pool, s.getRecord(poolKey(poolID), pool)
}

func (s *State) PutPool(pool *Pool) error {
	return s.putRecord(poolKey(pool.ID), pool)
}

func (s *State) DeletePool(poolID ids.ID) error {
	return s.db.Delete(poolKey(poolID))
}

func (s *State) GetShares(poolID ids.ID, holder ids.ShortID) (uint64, error) {
	return s.getAmount(sharesKey(poolID, holder))
}

func (s *State) SetShares(poolID ids.ID, holder ids.ShortID, amount uint64) error {
	return s.setAmount(sharesKey(poolID, holder), amount)
}

func (s *State) RetirementCount(projectID string) (uint64, error) {
	return s.getAmount(retirementCountKey(projectID))
}

func (s *State) AppendRetirement(record *RetirementRecord) error {
	index, err := s.RetirementCount(record.ProjectID)
	if err != nil {
		return err
	}
	record.Index = index
	record.ID = RetirementID(record.ProjectID, index)

	key := retirementKey(record)
	if has, err := s.db.Has(key); err != nil {
		return err
	} else if has {
		return fmt.Errorf("%w: retirement %s already stored", ErrCorrupted, record.ID)
	}
	if err := s.putRecord(key, record); err != nil {
		return err
	}
	return database.PutUInt64(s.db, retirementCountKey(record.ProjectID), index+1)
}

func (s *State) RestingOrders(marketID ids.ID, side Side) iter.Seq2[ids.ID, error] {
	prefix := bookPrefix(marketID, side)
	return func(yield func(ids.ID, error) bool) {
		it := s.db.NewIteratorWithPrefix(prefix)
		defer it.Release()

		for it.Next() {
			orderID, err := ids.ToID(it.Value())
			if err != nil {
				yield(ids.Empty, fmt.Errorf("%w: book entry: %w", ErrCorrupted, err))
				return
			}
			if !yield(orderID, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(ids.Empty, err)
		}
	}
}

func (s *State) Retirements(projectID string) iter.Seq2[*RetirementRecord, error] {
	prefix := retirementPrefix(projectID)
	return func(yield func(*RetirementRecord, error) bool) {
		it := s.db.NewIteratorWithPrefix(prefix)
		defer it.Release()

		for it.Next() {
			record, err := s.parseRetirement(projectID, it.Key(), it.Value())
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(record, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *State) parseRetirement(projectID string, key, value []byte) (*RetirementRecord, error) {
	if len(key) < database.Uint64Size {
		return nil, fmt.Errorf("%w: short retirement key", ErrCorrupted)
	}
	index := binary.BigEndian.Uint64(key[len(key)-database.Uint64Size:])
	recordID := RetirementID(projectID, index)
	if s.retirements != nil {
		if record, ok := s.retirements.Get(recordID); ok {
			return record, nil
		}
	}

	record := &RetirementRecord{}
	if _, err := Codec.Unmarshal(value, record); err != nil {
		return nil, fmt.Errorf("%w: retirement %s: %w", ErrCorrupted, recordID, err)
	}
	if s.retirements != nil {
		s.retirements.Put(recordID, record)
	}
	return record, nil
}

func (s *State) Holdings(tokenID ids.ID) iter.Seq2[Holding, error] {
	return s.shortIDAmounts(balancePrefix(tokenID))
}

func (s *State) Shareholders(poolID ids.ID) iter.Seq2[Holding, error] {
	return s.shortIDAmounts(sharesPrefix(poolID))
}

func (s *State) Escrows(tokenID ids.ID) iter.Seq2[Escrow, error] {
	prefix := escrowPrefix(tokenID)
	return func(yield func(Escrow, error) bool) {
		it := s.db.NewIteratorWithPrefix(prefix)
		defer it.Release()

		for it.Next() {
			accountID, err := ids.ToID(it.Key()[len(prefix):])
			if err != nil {
				yield(Escrow{}, fmt.Errorf("%w: escrow key: %w", ErrCorrupted, err))
				return
			}
			amount, err := parseAmount(it.Value())
			if err != nil {
				yield(Escrow{}, err)
				return
			}
			if !yield(Escrow{Account: accountID, Amount: amount}, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(Escrow{}, err)
		}
	}
}

func (s *State) shortIDAmounts(prefix []byte) iter.Seq2[Holding, error] {
	return func(yield func(Holding, error) bool) {
		it := s.db.NewIteratorWithPrefix(prefix)
		defer it.Release()

		for it.Next() {
			holder, err := ids.ToShortID(it.Key()[len(prefix):])
			if err != nil {
				yield(Holding{}, fmt.Errorf("%w: holder key: %w", ErrCorrupted, err))
				return
			}
			amount, err := parseAmount(it.Value())
			if err != nil {
				yield(Holding{}, err)
				return
			}
			if !yield(Holding{Holder: holder, Amount: amount}, nil) {
				return
			}
		}
		if err := it.Error(); err != nil {
			yield(Holding{}, err)
		}
	}
}

func (s *State) getRecord(key []byte, dst any) error {
	bytes, err := s.db.Get(key)
	if err != nil {
		return err
	}
	if _, err := Codec.Unmarshal(bytes, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupted, err)
	}
	return nil
}

func (s *State) putRecord(key []byte, src any) error {
	bytes, err := Codec.Marshal(CodecVersion, src)
	if err != nil {
		return err
	}
	return s.db.Put(key, bytes)
}

// getAmount treats a missing key as zero.
func (s *State) getAmount(key []byte) (uint64, error) {
	amount, err := database.GetUInt64(s.db, key)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	return amount, err
}

// setAmount deletes the key when amount is zero so iteration only sees
// non-zero amounts.
func (s *State) setAmount(key []byte, amount uint64) error {
	if amount == 0 {
		return s.db.Delete(key)
	}
	return database.PutUInt64(s.db, key, amount)
}

func parseAmount(value []byte) (uint64, error) {
	if len(value) != database.Uint64Size {
		return 0, fmt.Errorf("%w: amount of %d bytes", ErrCorrupted, len(value))
	}
	return binary.BigEndian.Uint64(value), nil
}
