// Package storetest provides KV doubles for exercising failure paths.
package storetest

import (
	"context"
	"errors"
	"sync"

	"kirana/backend/internal/store"
)

var ErrInjected = errors.New("injected storage failure")

// Flaky wraps a KV and fails reads or writes on chosen keys until healed.
type Flaky struct {
	inner store.KV

	mu         sync.Mutex
	failGet    map[string]bool
	failSet    map[string]bool
	setsBefore map[string]int
}

func NewFlaky(inner store.KV) *Flaky {
	return &Flaky{
		inner:      inner,
		failGet:    make(map[string]bool),
		failSet:    make(map[string]bool),
		setsBefore: make(map[string]int),
	}
}

func (f *Flaky) FailGet(key string) {
	f.mu.Lock()
	f.failGet[key] = true
	f.mu.Unlock()
}

func (f *Flaky) FailSet(key string) {
	f.mu.Lock()
	f.failSet[key] = true
	f.mu.Unlock()
}

// FailSetAfter lets n writes to key succeed and fails the following ones.
func (f *Flaky) FailSetAfter(key string, n int) {
	f.mu.Lock()
	f.failSet[key] = true
	f.setsBefore[key] = n
	f.mu.Unlock()
}

func (f *Flaky) Heal() {
	f.mu.Lock()
	f.failGet = make(map[string]bool)
	f.failSet = make(map[string]bool)
	f.setsBefore = make(map[string]int)
	f.mu.Unlock()
}

func (f *Flaky) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.failGet[key]
	f.mu.Unlock()
	if fail {
		return nil, false, ErrInjected
	}
	return f.inner.Get(ctx, key)
}

func (f *Flaky) Set(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failSet[key]
	if fail && f.setsBefore[key] > 0 {
		f.setsBefore[key]--
		fail = false
	}
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.inner.Set(ctx, key, value)
}
