// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import "github.com/luxfi/database/versiondb"

// Diff stages writes over a parent state. Reads see the staged writes first.
// Nothing reaches the parent until Commit.
type Diff struct {
	*State

	vdb *versiondb.Database
}

// NewDiff starts a staged copy of s.
func (s *State) NewDiff() *Diff {
	vdb := versiondb.New(s.db)
	return &Diff{
		State: &State{db: vdb},
		vdb:   vdb,
	}
}

// Commit writes every staged change to the parent atomically.
func (d *Diff) Commit() error {
	return d.vdb.Commit()
}

// Abort discards every staged change.
func (d *Diff) Abort() {
	d.vdb.Abort()
}
