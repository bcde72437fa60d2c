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

// Package realtime implements the Realtime Bus (C5): a process-local
// publish/subscribe fabric, one topic per vault, that fans out newly
// appended operations to subscribed devices without ever blocking the
// ingestor that published them. Grounded on the teacher pack's event
// broker (cuemby-warren's pkg/events), but reshaped per vault instead of
// one global channel, and backed by a NonLockingReadMap subscriber
// registry per topic since publish (read) vastly outnumbers
// subscribe/unsubscribe (write) in this workload.
package realtime

import (
	"sync"
	"sync/atomic"

	nlrm "github.com/launix-de/NonLockingReadMap"

	"github.com/obsync-sh/obsync/model"
	"github.com/obsync-sh/obsync/obslog"
)

// subscriber is one connected device's mailbox. Send never blocks: a full
// channel means the subscriber is too far behind to keep up with the live
// tail, and the op is skipped for it and counted in dropped rather than
// stalling the publisher; the subscriber itself stays registered.
type subscriber struct {
	id      string
	ch      chan model.Operation
	dropped *int64 // atomic count of ops this subscriber missed, for diagnostics
}

func (s *subscriber) GetKey() string    { return s.id }
func (s *subscriber) ComputeSize() uint { return 64 }

// Bus holds one topic per vault that has ever had a subscriber.
type Bus struct {
	mu      sync.Mutex
	topics  map[string]*topic
	backlog int // RealtimeBacklogCap from config.ReloadableConfig
}

type topic struct {
	subs nlrm.NonLockingReadMap[subscriber, string]
}

// NewBus constructs an empty Bus. backlogCap bounds how many ops a fresh
// Subscription's backlog replay will carry (spec §4.5: "capped at 500").
func NewBus(backlogCap int) *Bus {
	return &Bus{
		topics:  make(map[string]*topic),
		backlog: backlogCap,
	}
}

// Subscription is a live handle a caller drains until it closes Ops or
// calls Close itself.
type Subscription struct {
	Ops <-chan model.Operation

	bus     *Bus
	vaultID string
	sub     *subscriber
}

// Subscribe opens a live feed for vaultID. backlog, if non-empty, is
// replayed onto the channel before any newly published op — the caller is
// responsible for sourcing it (typically store.ReadOpsSince) so the bus
// itself never needs to know about persistence.
func (b *Bus) Subscribe(vaultID model.VaultID, subscriberID string, backlog []model.Operation) *Subscription {
	vid := vaultID.String()

	b.mu.Lock()
	t, ok := b.topics[vid]
	if !ok {
		t = &topic{subs: nlrm.New[subscriber, string]()}
		b.topics[vid] = t
	}
	b.mu.Unlock()

	bufSize := b.backlog
	if bufSize <= 0 {
		bufSize = 500
	}
	var dropped int64
	sub := &subscriber{id: subscriberID, ch: make(chan model.Operation, bufSize), dropped: &dropped}

	// Seed the backlog first so ordering is preserved: nothing published
	// after Subscribe returns can be observed before what came earlier.
	capped := backlog
	if len(capped) > bufSize {
		capped = capped[len(capped)-bufSize:]
	}
	for _, op := range capped {
		sub.ch <- op
	}

	t.subs.Set(sub)

	return &Subscription{Ops: sub.ch, bus: b, vaultID: vid, sub: sub}
}

// Dropped reports how many ops this subscription has missed because its
// buffer was full when Publish tried to send. Per spec §8 invariant 7, any
// non-zero count means the live stream is no longer a gapless continuation
// of the backlog and the caller must disconnect.
func (s *Subscription) Dropped() int64 {
	return atomic.LoadInt64(s.sub.dropped)
}

// Close unregisters the subscription. Idempotent.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	t, ok := s.bus.topics[s.vaultID]
	s.bus.mu.Unlock()
	if !ok {
		return
	}
	t.subs.Remove(s.sub.id)
}

// Publish fans op out to every live subscriber of op.VaultID. Send is
// non-blocking: a subscriber whose channel is full is skipped for this op
// rather than stalling the whole publish, per spec §4.5's drop policy.
func (b *Bus) Publish(op model.Operation) {
	vid := op.VaultID.String()

	b.mu.Lock()
	t, ok := b.topics[vid]
	b.mu.Unlock()
	if !ok {
		return
	}

	log := obslog.WithComponent("realtime")
	for _, sp := range t.subs.GetAll() {
		s := *sp
		select {
		case s.ch <- op:
		default:
			n := atomic.AddInt64(s.dropped, 1)
			log.Warn().Str("vaultId", vid).Str("subscriberId", s.id).Int64("seq", op.Seq).Int64("totalDropped", n).Msg("dropping op, subscriber buffer full")
		}
	}
}
