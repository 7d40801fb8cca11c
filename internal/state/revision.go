package state

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Revisions is a Lamport counter stamped onto outbound snapshots so a
// session can tell its own echoes and older writes from newer ones.
type Revisions struct {
	site string
	n    atomic.Uint64
}

func NewRevisions() *Revisions {
	return &Revisions{site: uuid.NewString()}
}

// Site identifies the writer; it goes into Snapshot.Origin.
func (r *Revisions) Site() string { return r.site }

func (r *Revisions) Current() uint64 { return r.n.Load() }

// Tick advances the clock for a local write.
func (r *Revisions) Tick() uint64 { return r.n.Add(1) }

// Observe merges a remote revision into the clock.
func (r *Revisions) Observe(remote uint64) {
	for {
		cur := r.n.Load()
		if remote <= cur || r.n.CompareAndSwap(cur, remote) {
			return
		}
	}
}
