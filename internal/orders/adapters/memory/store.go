package memory

import (
	"context"
	"sync"

	"github.com/dejobratic/bookstore/internal/orders/ports"
)

// Store provides an in-memory transactional store useful for local development and tests.
// Transactions are serialized by a single lock, which also serializes writers of the same order.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) Books() ports.BookRepository {
	return &bookRepository{view: view{store: s}}
}

func (s *Store) Orders() ports.OrderRepository {
	return &orderRepository{view: view{store: s}}
}

// WithinTx runs fn while holding the store lock and restores the previous
// state if fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.state.clone()
	if err := fn(&txStore{store: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// txStore is the view handed to WithinTx callbacks. The store lock is already held.
type txStore struct {
	store *Store
}

func (t *txStore) Books() ports.BookRepository {
	return &bookRepository{view: view{store: t.store, inTx: true}}
}

func (t *txStore) Orders() ports.OrderRepository {
	return &orderRepository{view: view{store: t.store, inTx: true}}
}

// WithinTx joins the transaction that is already running.
func (t *txStore) WithinTx(_ context.Context, fn func(tx ports.Store) error) error {
	return fn(t)
}

type view struct {
	store *Store
	inTx  bool
}

func (v view) read(fn func(st *state) error) error {
	if !v.inTx {
		v.store.mu.RLock()
		defer v.store.mu.RUnlock()
	}
	return fn(v.store.state)
}

func (v view) write(fn func(st *state) error) error {
	if !v.inTx {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.state)
}
