// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/okian/huddle/internal/adapters/auth"
	"github.com/okian/huddle/internal/adapters/repository"
	"github.com/okian/huddle/internal/adapters/worker"
	"github.com/okian/huddle/internal/domain/digest"
	"github.com/okian/huddle/internal/domain/model"
	"github.com/okian/huddle/internal/seed"
	"github.com/okian/huddle/pkg/logger"
)

// ErrNotStarted is returned by digest calls made before Start.
var ErrNotStarted = errors.New("service not started")

// Service owns the entity store, the fan-out pool and the digest builder.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	pool    *worker.Pool
	builder *digest.Builder
	auth    digest.AuthProvider

	// Configuration
	sqlitePath    string
	fanoutWorkers int
	window        time.Duration
	clock         func() time.Time
	seedDemo      bool

	// State
	started   bool
	startedAt time.Time

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore uses an already opened store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSQLite opens a sqlite store at path on Start instead of the in-memory store.
func WithSQLite(path string) Option {
	return func(s *Service) {
		s.sqlitePath = path
	}
}

// WithFanoutWorkers bounds concurrent lookups per digest build.
func WithFanoutWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanoutWorkers = n
		}
	}
}

// WithWindow sets the digest look-back window.
func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithClock overrides the clock used for digest windows.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuthProvider overrides how coach digests learn the caller identity.
func WithAuthProvider(p digest.AuthProvider) Option {
	return func(s *Service) {
		if p != nil {
			s.auth = p
		}
	}
}

// WithSeedDemo loads a synthetic dataset on Start.
func WithSeedDemo(enabled bool) Option {
	return func(s *Service) {
		s.seedDemo = enabled
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		fanoutWorkers: runtime.NumCPU() * 4,
		window:        digest.DefaultWindow,
		clock:         time.Now,
		auth:          auth.ContextProvider{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and wires the digest builder.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting digest service...")

	if s.store == nil {
		store, err := s.openStore(ctx)
		if err != nil {
			return err
		}
		s.store = store
	}

	if s.seedDemo {
		if err := seed.Load(ctx, s.store, seed.Generate(seed.DefaultConfig(s.clock().UTC()))); err != nil {
			s.closeStore()
			return fmt.Errorf("seed demo data: %w", err)
		}
	}

	s.pool = worker.NewPool(s.fanoutWorkers,
		worker.WithName("digest"),
		worker.WithLogger(s.logger.Named("fanout")),
	)

	builder, err := digest.NewBuilder(digest.Directories{
		Auth:       s.auth,
		Teams:      s.store,
		Comments:   s.store,
		Games:      s.store,
		KeyMoments: repository.KeyMoments{R: s.store},
		Users:      repository.Users{R: s.store},
	},
		digest.WithWindow(s.window),
		digest.WithClock(s.clock),
		digest.WithFanout(s.pool),
		digest.WithLogger(s.logger.Named("digest")),
	)
	if err != nil {
		s.closeStore()
		return fmt.Errorf("build digest builder: %w", err)
	}
	s.builder = builder

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "digest service started",
		logger.Int("fanoutWorkers", s.pool.Size()),
		logger.Duration("window", s.window),
		logger.Bool("seeded", s.seedDemo),
	)

	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	if s.sqlitePath == "" {
		s.logger.Info(ctx, "using memory store")
		return repository.NewMemoryStore(), nil
	}
	store, err := repository.OpenSQLite(ctx, s.sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	s.logger.Info(ctx, "using sqlite store", logger.String("path", s.sqlitePath))
	return store, nil
}

func (s *Service) closeStore() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
	}
	s.store = nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping digest service...")
	s.closeStore()
	s.builder = nil
	s.started = false
	s.logger.Info(context.Background(), "digest service stopped")
}

func (s *Service) digestBuilder() (*digest.Builder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.builder, nil
}

// CoachDigest builds the digest for coachID.
func (s *Service) CoachDigest(ctx context.Context, coachID string) (model.Digest, error) {
	b, err := s.digestBuilder()
	if err != nil {
		return model.Digest{}, err
	}
	return b.BuildCoachDigest(ctx, coachID)
}

// PlayerDigest builds the digest for playerID.
func (s *Service) PlayerDigest(ctx context.Context, playerID string) (model.Digest, error) {
	b, err := s.digestBuilder()
	if err != nil {
		return model.Digest{}, err
	}
	return b.BuildPlayerDigest(ctx, playerID)
}

// Store returns the active entity store, or nil before Start.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"fanoutWorkers": s.fanoutWorkers,
		"windowHours":   s.window.Hours(),
	}

	if s.started {
		stats["uptimeSeconds"] = time.Since(s.startedAt).Seconds()
		counts, err := s.store.Counts(context.Background())
		if err != nil {
			s.logger.Warn(context.Background(), "failed to count entities", logger.Error(err))
		} else {
			stats["entities"] = counts
		}
	}

	return stats
}
