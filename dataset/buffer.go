package dataset

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/exp/rand"
)

var ErrBufferUnderflow = errors.New("not enough samples in the replay buffer")

// ReplayBuffer keeps the most recent samples up to a fixed capacity. Pushes
// evict the oldest samples first. It is safe for concurrent use.
type ReplayBuffer struct {
	mu    sync.RWMutex
	items []Sample
	head  int // index of the oldest sample
	size  int
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		panic("replay buffer capacity must be positive")
	}
	return &ReplayBuffer{items: make([]Sample, capacity)}
}

func (b *ReplayBuffer) Push(samples ...Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.items)
	for _, s := range samples {
		tail := (b.head + b.size) % capacity
		b.items[tail] = s
		if b.size < capacity {
			b.size++
		} else {
			b.head = (b.head + 1) % capacity
		}
	}
}

// Sample draws n distinct samples uniformly at random.
func (b *ReplayBuffer) Sample(rng *rand.Rand, n int) ([]Sample, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n > b.size {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrBufferUnderflow, n, b.size)
	}
	// Partial Fisher-Yates over the first n positions; only swapped slots are stored.
	swapped := make(map[int]int, n)
	batch := make([]Sample, n)
	for i := 0; i < n; i++ {
		j := i + rng.Intn(b.size-i)
		picked, ok := swapped[j]
		if !ok {
			picked = j
		}
		current, ok := swapped[i]
		if !ok {
			current = i
		}
		swapped[j] = current
		batch[i] = b.at(picked)
	}
	return batch, nil
}

func (b *ReplayBuffer) at(i int) Sample {
	return b.items[(b.head+i)%len(b.items)]
}

func (b *ReplayBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *ReplayBuffer) Cap() int {
	return len(b.items)
}

// Snapshot copies the buffer contents, oldest first.
func (b *ReplayBuffer) Snapshot() []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Sample, b.size)
	for i := range out {
		out[i] = b.at(i)
	}
	return out
}
