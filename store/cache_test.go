/*
Copyright (C) 2026  Obsync Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/obsync-sh/obsync/model"
)

func TestRecentOpsCacheGetSinceWithinWindow(t *testing.T) {
	c := newRecentOpsCache(8)
	vaultID := model.NewVaultID()

	for seq := int64(1); seq <= 5; seq++ {
		c.put(model.Operation{Seq: seq, VaultID: vaultID})
	}

	ops, ok := c.getSince(vaultID.String(), 2, 10)
	require.True(t, ok)
	require.Len(t, ops, 3)
	require.Equal(t, int64(3), ops[0].Seq)
	require.Equal(t, int64(5), ops[2].Seq)
}

func TestRecentOpsCacheGetSinceRespectsLimit(t *testing.T) {
	c := newRecentOpsCache(8)
	vaultID := model.NewVaultID()
	for seq := int64(1); seq <= 5; seq++ {
		c.put(model.Operation{Seq: seq, VaultID: vaultID})
	}

	ops, ok := c.getSince(vaultID.String(), 0, 2)
	require.True(t, ok)
	require.Len(t, ops, 2)
	require.Equal(t, int64(1), ops[0].Seq)
	require.Equal(t, int64(2), ops[1].Seq)
}

func TestRecentOpsCacheUnknownVaultMisses(t *testing.T) {
	c := newRecentOpsCache(8)
	_, ok := c.getSince(model.NewVaultID().String(), 0, 10)
	require.False(t, ok)
}

// TestRecentOpsCacheEvictionKeepsWatermarkSound is the regression test for
// the eviction bug: once entries below a vault's eviction boundary are
// gone, getSince must refuse to answer (ok=false) for a sinceSeq inside
// the evicted range rather than silently returning an incomplete result.
func TestRecentOpsCacheEvictionKeepsWatermarkSound(t *testing.T) {
	c := newRecentOpsCache(3)
	vaultID := model.NewVaultID()

	for seq := int64(1); seq <= 6; seq++ {
		c.put(model.Operation{Seq: seq, VaultID: vaultID})
	}

	// Only seqs 4,5,6 should remain cached (maxSize=3).
	ops, ok := c.getSince(vaultID.String(), 3, 10)
	require.True(t, ok)
	require.Len(t, ops, 3)

	_, ok = c.getSince(vaultID.String(), 0, 10)
	require.False(t, ok, "cache must not claim completeness for a range it evicted")
}

func TestRecentOpsCacheIsolatesVaults(t *testing.T) {
	c := newRecentOpsCache(8)
	vaultA := model.NewVaultID()
	vaultB := model.NewVaultID()

	c.put(model.Operation{Seq: 1, VaultID: vaultA})
	c.put(model.Operation{Seq: 1, VaultID: vaultB})
	c.put(model.Operation{Seq: 2, VaultID: vaultA})

	ops, ok := c.getSince(vaultA.String(), 0, 10)
	require.True(t, ok)
	require.Len(t, ops, 2)

	ops, ok = c.getSince(vaultB.String(), 0, 10)
	require.True(t, ok)
	require.Len(t, ops, 1)
}
