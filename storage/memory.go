package storage

import (
	"context"
	"sync"

	"github.com/ruteri/credential-registry/interfaces"
)

// MemoryBackend is an in-memory storage backend for tests and local runs.
// Failures can be injected per operation.
type MemoryBackend struct {
	mu        sync.RWMutex
	objects   map[interfaces.ContentAddress][]byte
	storeErr  error
	existsErr map[interfaces.ContentAddress]error
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		objects:   make(map[interfaces.ContentAddress][]byte),
		existsErr: make(map[interfaces.ContentAddress]error),
	}
}

// FailStores makes every subsequent Store return err. A nil err clears it.
func (b *MemoryBackend) FailStores(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeErr = err
}

// FailExists makes Exists for addr return err.
func (b *MemoryBackend) FailExists(addr interfaces.ContentAddress, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.existsErr[addr] = err
}

// Len returns the number of stored objects.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

func (b *MemoryBackend) Store(ctx context.Context, data []byte, contentType string) (interfaces.ContentAddress, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.storeErr != nil {
		return "", b.storeErr
	}
	addr, err := interfaces.ComputeAddress(data)
	if err != nil {
		return "", err
	}
	b.objects[addr] = append([]byte(nil), data...)
	return addr, nil
}

func (b *MemoryBackend) Fetch(ctx context.Context, addr interfaces.ContentAddress) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.objects[addr]
	if !ok {
		return nil, interfaces.ErrContentNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *MemoryBackend) Exists(ctx context.Context, addr interfaces.ContentAddress) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := b.existsErr[addr]; err != nil {
		return false, err
	}
	_, ok := b.objects[addr]
	return ok, nil
}

func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

func (b *MemoryBackend) Name() string {
	return "memory"
}

func (b *MemoryBackend) LocationURI() string {
	return "memory://"
}
