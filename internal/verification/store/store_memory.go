package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"agegate/internal/verification/models"
	"agegate/pkg/domain"
	"agegate/pkg/platform/sentinel"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when no record exists for the cart
// - Return sentinel.ErrExpired when the record existed but had expired (it is evicted)
// - Return sentinel.ErrAlreadyUsed when a concurrent consume won the race
// - Return the validate callback's error unchanged when it rejects a record
// - Return wrapped errors with context for infrastructure failures

// InMemoryStore keeps verification state in process. Each cart's records are
// replaced or deleted whole under one mutex, so readers never observe a
// partially written record.
type InMemoryStore struct {
	mu       sync.Mutex
	pending  map[domain.CartID]models.PendingAuthorization
	verified map[domain.CartID]models.VerificationResult

	sweepInterval time.Duration
	stop          chan struct{}
	done          chan struct{}
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithSweepInterval sets how often Init's background sweeper evicts expired
// records. Zero disables the sweeper; reads still evict lazily.
func WithSweepInterval(d time.Duration) Option {
	return func(s *InMemoryStore) {
		s.sweepInterval = d
	}
}

// NewInMemory constructs an empty in-memory store.
func NewInMemory(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{
		pending:       make(map[domain.CartID]models.PendingAuthorization),
		verified:      make(map[domain.CartID]models.VerificationResult),
		sweepInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init starts the expiry sweeper.
func (s *InMemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil || s.sweepInterval <= 0 {
		return nil
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.sweepLoop(s.stop, s.done)
	return nil
}

// Teardown stops the sweeper and waits for it to exit.
func (s *InMemoryStore) Teardown(_ context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (s *InMemoryStore) SavePending(_ context.Context, p *models.PendingAuthorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.CartID] = *p
	return nil
}

func (s *InMemoryStore) FindPending(_ context.Context, cartID domain.CartID, now time.Time) (*models.PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[cartID]
	if !ok {
		return nil, fmt.Errorf("pending authorization not found: %w", sentinel.ErrNotFound)
	}
	if p.IsExpired(now) {
		delete(s.pending, cartID)
		return nil, fmt.Errorf("pending authorization expired: %w", sentinel.ErrExpired)
	}
	return &p, nil
}

// ConsumePending removes and returns the cart's pending authorization if
// validate accepts it. Lookup, validation and delete happen under one lock, so
// of two concurrent consumers at most one succeeds.
func (s *InMemoryStore) ConsumePending(_ context.Context, cartID domain.CartID, now time.Time, validate func(*models.PendingAuthorization) error) (*models.PendingAuthorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[cartID]
	if !ok {
		return nil, fmt.Errorf("pending authorization not found: %w", sentinel.ErrNotFound)
	}
	if p.IsExpired(now) {
		delete(s.pending, cartID)
		return nil, fmt.Errorf("pending authorization expired: %w", sentinel.ErrExpired)
	}
	if validate != nil {
		if err := validate(&p); err != nil {
			return nil, err
		}
	}
	delete(s.pending, cartID)
	return &p, nil
}

func (s *InMemoryStore) DeletePending(_ context.Context, cartID domain.CartID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, cartID)
	return nil
}

func (s *InMemoryStore) SaveResult(_ context.Context, r *models.VerificationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[r.CartID] = *r
	return nil
}

// FindResult returns the cart's verification result. Expired results are
// evicted on read and reported as sentinel.ErrExpired.
func (s *InMemoryStore) FindResult(_ context.Context, cartID domain.CartID, now time.Time) (*models.VerificationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.verified[cartID]
	if !ok {
		return nil, fmt.Errorf("verification result not found: %w", sentinel.ErrNotFound)
	}
	if r.IsExpired(now) {
		delete(s.verified, cartID)
		return nil, fmt.Errorf("verification result expired: %w", sentinel.ErrExpired)
	}
	return &r, nil
}

func (s *InMemoryStore) DeleteResult(_ context.Context, cartID domain.CartID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.verified, cartID)
	return nil
}

// DeleteExpired removes every expired record as of now and returns how many
// were removed. The time is injected for testability.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for cartID, p := range s.pending {
		if p.IsExpired(now) {
			delete(s.pending, cartID)
			removed++
		}
	}
	for cartID, r := range s.verified {
		if r.IsExpired(now) {
			delete(s.verified, cartID)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) sweepLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = s.DeleteExpired(context.Background(), time.Now())
		case <-stop:
			return
		}
	}
}
