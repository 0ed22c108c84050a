package fl

import (
	"fmt"
	"maps"
	"sort"
	"sync"
)

// RoundState accumulates one entry per sender until a fixed quorum of distinct
// senders is reached, then hands the whole batch to the caller and starts
// over empty.
type RoundState[T any] struct {
	mu      sync.Mutex
	quorum  int
	round   uint64
	entries map[string]T
}

func NewRoundState[T any](quorum int) (*RoundState[T], error) {
	if quorum < 1 {
		return nil, ErrInvalidQuorum
	}

	return &RoundState[T]{
		quorum:  quorum,
		entries: make(map[string]T, quorum),
	}, nil
}

// Batch is a drained round.
type Batch[T any] struct {
	Round   uint64
	Entries map[string]T
}

// Senders returns the senders of the batch in lexical order.
func (b Batch[T]) Senders() []string {
	keys := make([]string, 0, len(b.Entries))
	for k := range b.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys
}

// Add stores v for sender, replacing an earlier entry from the same sender.
// If this brings the number of distinct senders to the quorum the entries are
// drained and returned with ok set. Storing and draining happen under one lock,
// so exactly one caller observes each full batch.
func (r *RoundState[T]) Add(sender string, v T) (batch Batch[T], ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.add(sender, v)
}

// AddTo is Add for an entry tagged with the round it was produced for. Entries
// for any round other than the open one are rejected with ErrRoundMismatch.
func (r *RoundState[T]) AddTo(round uint64, sender string, v T) (Batch[T], bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if round != r.round {
		return Batch[T]{}, false, fmt.Errorf("%w: got %d, open %d", ErrRoundMismatch, round, r.round)
	}
	batch, ok := r.add(sender, v)

	return batch, ok, nil
}

func (r *RoundState[T]) add(sender string, v T) (batch Batch[T], ok bool) {
	r.entries[sender] = v
	if len(r.entries) < r.quorum {
		return Batch[T]{}, false
	}

	batch = Batch[T]{Round: r.round, Entries: maps.Clone(r.entries)}
	clear(r.entries)
	r.round++

	return batch, true
}

// Pending returns the number of distinct senders stored for the open round.
func (r *RoundState[T]) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Round returns the number of batches drained so far.
func (r *RoundState[T]) Round() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.round
}

func (r *RoundState[T]) Quorum() int {
	return r.quorum
}
