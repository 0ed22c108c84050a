package global

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/mqtt"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sharing"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Config struct {
	// Regionals are the ids of the regional aggregators, one per share.
	Regionals []string
	// Facilities receive the global model when a round closes.
	Facilities []string
}

func (c Config) Validate() error {
	if len(c.Regionals) == 0 {
		return fmt.Errorf("%w: no regional aggregators", pkgerrors.ErrInvalidConfig)
	}
	if len(c.Facilities) == 0 {
		return fmt.Errorf("%w: no facilities", pkgerrors.ErrInvalidConfig)
	}

	return nil
}

type service struct {
	cfg         Config
	signers     map[string]string
	engine      *sharing.Engine
	keys        auth.KeyDerivation
	authority   ModelSource
	broadcaster Broadcaster
	pubsub      mqtt.PubSub
	state       *fl.RoundState[fl.PartialPayload]
	exec        fl.Executor
	metrics     prometheus.ProtocolMetrics
	logger      *slog.Logger

	fetch  singleflight.Group
	mu     sync.Mutex
	cached *abe.EncryptedModel
	latest *fl.GlobalModel
}

var _ Service = (*service)(nil)

// NewService returns the global aggregator. A nil pubsub disables round
// announcements.
func NewService(
	cfg Config,
	engine *sharing.Engine,
	keys auth.KeyDerivation,
	ta ModelSource,
	broadcaster Broadcaster,
	pubsub mqtt.PubSub,
	exec fl.Executor,
	metrics prometheus.ProtocolMetrics,
	logger *slog.Logger,
) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n := engine.Config().Shares; n != len(cfg.Regionals) {
		return nil, fmt.Errorf("%w: %d shares for %d regional aggregators", pkgerrors.ErrInvalidConfig, n, len(cfg.Regionals))
	}
	state, err := fl.NewRoundState[fl.PartialPayload](len(cfg.Regionals))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, err)
	}

	signers := make(map[string]string, len(cfg.Regionals))
	for _, id := range cfg.Regionals {
		signers[auth.FogIdentity(id)] = id
	}

	return &service{
		cfg:         cfg,
		signers:     signers,
		engine:      engine,
		keys:        keys,
		authority:   ta,
		broadcaster: broadcaster,
		pubsub:      pubsub,
		state:       state,
		exec:        exec,
		metrics:     metrics,
		logger:      logger,
	}, nil
}

func (s *service) Receive(ctx context.Context, pkg auth.SignedPackage) error {
	s.metrics.Bytes.With("direction", "download").Add(float64(len(pkg.Payload)))

	id, ok := s.signers[pkg.Signer]
	if !ok || !pkg.Verify(s.keys) {
		s.metrics.Messages.With("kind", "partial", "outcome", "invalid_signature").Add(1)

		return fmt.Errorf("%w: signer %q", pkgerrors.ErrInvalidSignature, pkg.Signer)
	}

	p, err := fl.DecodePartial(pkg.Payload)
	if err != nil {
		s.metrics.Messages.With("kind", "partial", "outcome", "malformed").Add(1)

		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}
	if scheme := s.engine.Config().Scheme; p.Scheme != scheme {
		s.metrics.Messages.With("kind", "partial", "outcome", "mismatch").Add(1)
		s.logger.Error("Partial aggregate uses a different scheme", slog.String("regional_id", id), slog.String("scheme", string(p.Scheme)))

		return fmt.Errorf("%w: expected %s, got %s", pkgerrors.ErrSchemeMismatch, scheme, p.Scheme)
	}

	batch, ok, err := s.state.AddTo(p.Round, id, p)
	if err != nil {
		s.metrics.Messages.With("kind", "partial", "outcome", "stale_round").Add(1)
		s.logger.Warn("Partial aggregate belongs to another round", slog.String("regional_id", id), slog.Uint64("round", p.Round))

		return err
	}
	s.metrics.Messages.With("kind", "partial", "outcome", "accepted").Add(1)
	s.logger.Info("Partial aggregate verified",
		slog.String("regional_id", id),
		slog.Uint64("round", p.Round),
		slog.Int("index", p.Index),
		slog.Int("facilities", len(p.Facilities)),
	)
	if !ok {
		return nil
	}

	bg := context.WithoutCancel(ctx)
	s.exec.Submit(func() {
		s.closeRound(bg, batch)
	})

	return nil
}

// EncryptedModel fetches the model from the trusted authority once and serves
// the cached copy afterwards. Concurrent misses share one fetch, which runs
// without holding the service lock.
func (s *service) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	s.mu.Lock()
	cached := s.cached
	s.mu.Unlock()
	if cached != nil {
		return *cached, nil
	}

	v, err, _ := s.fetch.Do("encrypted_model", func() (any, error) {
		em, err := s.authority.EncryptedModel(ctx)
		if err != nil {
			return abe.EncryptedModel{}, err
		}
		s.mu.Lock()
		s.cached = &em
		s.mu.Unlock()

		return em, nil
	})
	if err != nil {
		return abe.EncryptedModel{}, err
	}

	return v.(abe.EncryptedModel), nil
}

func (s *service) GlobalModel(_ context.Context) (fl.GlobalModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest == nil {
		return fl.GlobalModel{}, pkgerrors.ErrNoModel
	}

	return fl.GlobalModel{Round: s.latest.Round, Weights: s.latest.Weights.Clone()}, nil
}

func (s *service) Status(_ context.Context) (Status, error) {
	s.mu.Lock()
	hasModel := s.latest != nil
	s.mu.Unlock()

	return Status{
		Round:    s.state.Round(),
		Pending:  s.state.Pending(),
		Quorum:   s.state.Quorum(),
		HasModel: hasModel,
	}, nil
}

func (s *service) closeRound(ctx context.Context, batch fl.Batch[fl.PartialPayload]) {
	regionals := batch.Senders()
	shares := make([]sharing.Share, 0, len(regionals))
	for _, id := range regionals {
		p := batch.Entries[id]
		shares = append(shares, sharing.Share{Index: p.Index, Scheme: p.Scheme, Data: p.Aggregate})
	}

	w, err := s.engine.Reconstruct(shares)
	if err != nil {
		s.logger.Error("Failed to reconstruct global model", slog.Uint64("round", batch.Round), slog.Any("error", err))

		return
	}
	m := fl.GlobalModel{Round: batch.Round, Weights: w}
	s.mu.Lock()
	s.latest = &m
	s.mu.Unlock()
	s.logger.Info("Global model reconstructed", slog.Uint64("round", batch.Round), slog.Int("params", w.NumParams()))

	var (
		g         errgroup.Group
		mu        sync.Mutex
		delivered int
	)
	for _, f := range s.cfg.Facilities {
		g.Go(func() error {
			if err := s.broadcaster.SendGlobal(ctx, f, m); err != nil {
				s.metrics.Messages.With("kind", "global", "outcome", "failed").Add(1)
				s.logger.Warn("Failed to deliver global model", slog.String("facility_id", f), slog.Any("error", err))

				return err
			}
			s.metrics.Messages.With("kind", "global", "outcome", "sent").Add(1)
			s.metrics.Bytes.With("direction", "upload").Add(float64(w.NumParams() * 8))
			mu.Lock()
			delivered++
			mu.Unlock()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Global model not delivered to every facility", slog.Uint64("round", batch.Round), slog.Int("delivered", delivered))
	}
	s.metrics.Rounds.Add(1)
	s.logger.Info("Round closed", slog.Uint64("round", batch.Round), slog.Int("delivered", delivered))

	if s.pubsub == nil {
		return
	}
	ev := RoundEvent{
		Round:      batch.Round,
		Regionals:  regionals,
		Facilities: len(s.cfg.Facilities),
		Delivered:  delivered,
		Params:     w.NumParams(),
		ClosedAt:   time.Now().UTC(),
	}
	if err := s.pubsub.Publish(ctx, mqtt.RoundsTopic, ev); err != nil {
		s.logger.Warn("Failed to publish round event", slog.Uint64("round", batch.Round), slog.Any("error", err))
	}
}
