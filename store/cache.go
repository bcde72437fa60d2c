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
	"sync"

	"github.com/google/btree"

	"github.com/obsync-sh/obsync/model"
)

// recentOpsCache keeps the tail of each vault's log in memory, ordered by
// (vaultId, seq), so a pull or a new subscriber's backlog replay that asks
// for "everything since my last cursor" usually doesn't have to round-trip
// the metadata store at all — the hot path in this system is a device that
// was caught up a moment ago asking again. It never claims to be
// authoritative: getSince reports ok=false whenever it can't prove its
// window covers the requested range, and the caller falls back to SQL.
type recentOpsCache struct {
	mu      sync.Mutex
	tree    *btree.BTreeG[cachedOp]
	fifo    []cachedKey      // insertion order, for eviction
	oldest  map[string]int64 // vaultId -> smallest cached seq still present
	maxSize int
}

type cachedKey struct {
	vaultID string
	seq     int64
}

type cachedOp struct {
	key cachedKey
	op  model.Operation
}

func cachedOpLess(a, b cachedOp) bool {
	if a.key.vaultID != b.key.vaultID {
		return a.key.vaultID < b.key.vaultID
	}
	return a.key.seq < b.key.seq
}

func newRecentOpsCache(maxSize int) *recentOpsCache {
	return &recentOpsCache{
		tree:    btree.NewG(32, cachedOpLess),
		oldest:  make(map[string]int64),
		maxSize: maxSize,
	}
}

// put records op as the most recent known entry for its vault.
func (c *recentOpsCache) put(op model.Operation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cachedKey{vaultID: op.VaultID.String(), seq: op.Seq}
	c.tree.ReplaceOrInsert(cachedOp{key: key, op: op})
	c.fifo = append(c.fifo, key)

	if prev, ok := c.oldest[key.vaultID]; !ok || key.seq < prev {
		c.oldest[key.vaultID] = key.seq
	}

	for len(c.fifo) > c.maxSize {
		evict := c.fifo[0]
		c.fifo = c.fifo[1:]
		c.tree.Delete(cachedOp{key: evict})
		// Within one vault, insertion order equals seq order (every put
		// call corresponds to one AppendOp, assigned in increasing seq),
		// so the evicted entry is that vault's smallest surviving seq.
		// Bumping the boundary past it keeps "oldest" a valid watermark:
		// everything the cache still holds for this vault is > evict.seq.
		c.oldest[evict.vaultID] = evict.seq + 1
	}
}

// getSince returns the cached ops for vaultID with seq in (sinceSeq, ...],
// capped at limit, plus whether the cache's coverage makes that result
// complete (no possibility of a gap below its window).
func (c *recentOpsCache) getSince(vaultID string, sinceSeq int64, limit int) ([]model.Operation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldest, haveAny := c.oldest[vaultID]
	if !haveAny || sinceSeq < oldest-1 {
		return nil, false
	}

	var out []model.Operation
	pivot := cachedOp{key: cachedKey{vaultID: vaultID, seq: sinceSeq}}
	c.tree.AscendGreaterOrEqual(pivot, func(item cachedOp) bool {
		if item.key.vaultID != vaultID {
			return false
		}
		if item.key.seq <= sinceSeq {
			return true // equal to pivot itself, keep scanning forward
		}
		out = append(out, item.op)
		return len(out) < limit
	})
	return out, true
}
