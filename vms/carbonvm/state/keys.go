// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/luxfi/ids"
)

var (
	prefixMint            = []byte("mint:")
	prefixBalance         = []byte("balance:")
	prefixEscrow          = []byte("escrow:")
	prefixFrozen          = []byte("frozen:")
	prefixMarket          = []byte("market:")
	prefixOrder           = []byte("order:")
	prefixBook            = []byte("book:")
	prefixMatch           = []byte("match:")
	prefixPool            = []byte("pool:")
	prefixShares          = []byte("shares:")
	prefixRetirement      = []byte("retirement:")
	prefixRetirementCount = []byte("retirementCount:")
	prefixAccepted        = []byte("accepted:")

	domainMarket  = []byte("carbon/market")
	domainPool    = []byte("carbon/pool")
	domainProject = []byte("carbon/project")
)

func makeKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part)
	}
	key := make([]byte, 0, size)
	key = append(key, prefix...)
	for _, part := range parts {
		key = append(key, part...)
	}
	return key
}

func packUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func hashID(domain []byte, parts ...[]byte) ids.ID {
	return ids.ID(sha256.Sum256(makeKey(domain, parts...)))
}

// MarketID returns the identifier of the market trading base against quote.
func MarketID(baseToken, quoteToken ids.ID) ids.ID {
	return hashID(domainMarket, baseToken[:], quoteToken[:])
}

// SortTokens returns the pair in canonical order.
func SortTokens(tokenA, tokenB ids.ID) (ids.ID, ids.ID) {
	if tokenA.Compare(tokenB) > 0 {
		return tokenB, tokenA
	}
	return tokenA, tokenB
}

// PoolID returns the identifier of the pool for the unordered pair.
func PoolID(tokenA, tokenB ids.ID) ids.ID {
	tokenA, tokenB = SortTokens(tokenA, tokenB)
	return hashID(domainPool, tokenA[:], tokenB[:])
}

// OrderID returns the identifier of the sequence-th order of a market.
func OrderID(marketID ids.ID, sequence uint64) ids.ID {
	return marketID.Prefix(sequence)
}

// MatchID returns the identifier of a match between two orders given how much
// of each was already filled, so repeated partial matches get distinct IDs.
func MatchID(buy, sell *Order) ids.ID {
	return buy.ID.Prefix(sell.Sequence, buy.FilledQuantity, sell.FilledQuantity)
}

func projectKey(projectID string) ids.ID {
	return hashID(domainProject, []byte(projectID))
}

// RetirementID returns the identifier of the index-th retirement of a project.
func RetirementID(projectID string, index uint64) ids.ID {
	return projectKey(projectID).Prefix(index)
}

func mintKey(tokenID ids.ID) []byte {
	return makeKey(prefixMint, tokenID[:])
}

func balancePrefix(tokenID ids.ID) []byte {
	return makeKey(prefixBalance, tokenID[:])
}

func balanceKey(tokenID ids.ID, holder ids.ShortID) []byte {
	return makeKey(prefixBalance, tokenID[:], holder[:])
}

func escrowPrefix(tokenID ids.ID) []byte {
	return makeKey(prefixEscrow, tokenID[:])
}

func escrowKey(tokenID, accountID ids.ID) []byte {
	return makeKey(prefixEscrow, tokenID[:], accountID[:])
}

func frozenKey(tokenID ids.ID, holder ids.ShortID) []byte {
	return makeKey(prefixFrozen, tokenID[:], holder[:])
}

func marketKey(marketID ids.ID) []byte {
	return makeKey(prefixMarket, marketID[:])
}

func orderKey(orderID ids.ID) []byte {
	return makeKey(prefixOrder, orderID[:])
}

func bookPrefix(marketID ids.ID, side Side) []byte {
	return makeKey(prefixBook, marketID[:], []byte{byte(side)})
}

// bookKey orders resting orders best price first, then by sequence. Bids are
// stored under the bitwise complement of their price so that ascending key
// order visits the highest bid first.
func bookKey(order *Order) []byte {
	price := order.Price
	if order.Side == Buy {
		price = ^price
	}
	return makeKey(
		bookPrefix(order.MarketID, order.Side),
		packUint64(price),
		packUint64(order.Sequence),
	)
}

func matchKey(matchID ids.ID) []byte {
	return makeKey(prefixMatch, matchID[:])
}

func poolKey(poolID ids.ID) []byte {
	return makeKey(prefixPool, poolID[:])
}

func sharesPrefix(poolID ids.ID) []byte {
	return makeKey(prefixShares, poolID[:])
}

func sharesKey(poolID ids.ID, holder ids.ShortID) []byte {
	return makeKey(prefixShares, poolID[:], holder[:])
}

func retirementPrefix(projectID string) []byte {
	project := projectKey(projectID)
	return makeKey(prefixRetirement, project[:])
}

// retirementKey sorts a project's records by timestamp, then append index.
func retirementKey(record *RetirementRecord) []byte {
	return makeKey(
		retirementPrefix(record.ProjectID),
		packUint64(record.Timestamp),
		packUint64(record.Index),
	)
}

func retirementCountKey(projectID string) []byte {
	project := projectKey(projectID)
	return makeKey(prefixRetirementCount, project[:])
}

func acceptedKey(signingHash ids.ID) []byte {
	return makeKey(prefixAccepted, signingHash[:])
}
