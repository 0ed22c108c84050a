package regional

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/absmach/dpsshare/pkg/auth"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sharing"
)

type Config struct {
	ID string
	// Index is the 1-based share index this node aggregates.
	Index int
	// Facilities is the number of distinct facilities that close a round.
	Facilities int
	Scheme     sharing.Scheme
	Difficulty int
}

func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty regional id", pkgerrors.ErrInvalidConfig)
	}
	if c.Index < 1 {
		return fmt.Errorf("%w: share index must be positive", pkgerrors.ErrInvalidConfig)
	}

	return c.Scheme.Validate()
}

type entry struct {
	payload     fl.SharePayload
	coSignature string
	raw         []byte
}

type service struct {
	cfg        Config
	committee  *auth.Committee
	keys       auth.KeyDerivation
	forwarder  Forwarder
	state      *fl.RoundState[entry]
	aggregator fl.Aggregator
	exec       fl.Executor
	metrics    prometheus.ProtocolMetrics
	logger     *slog.Logger

	accepted atomic.Uint64
	dropped  atomic.Uint64
}

var _ Service = (*service)(nil)

func NewService(
	cfg Config,
	committee *auth.Committee,
	keys auth.KeyDerivation,
	forwarder Forwarder,
	exec fl.Executor,
	metrics prometheus.ProtocolMetrics,
	logger *slog.Logger,
) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	state, err := fl.NewRoundState[entry](cfg.Facilities)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrInvalidConfig, err)
	}

	return &service{
		cfg:        cfg,
		committee:  committee,
		keys:       keys,
		forwarder:  forwarder,
		state:      state,
		aggregator: fl.NewFedAvgAggregator(),
		exec:       exec,
		metrics:    metrics,
		logger:     logger.With(slog.String("regional_id", cfg.ID)),
	}, nil
}

func (s *service) Receive(ctx context.Context, pkg auth.SignedPackage) error {
	s.metrics.Bytes.With("direction", "download").Add(float64(len(pkg.Payload)))

	if !pkg.VerifyPoW(s.cfg.Difficulty) {
		s.drop("invalid_pow", pkg)

		return nil
	}
	decision := s.committee.Validate(pkg)
	if len(decision.Votes) == 0 {
		s.drop("invalid_signature", pkg)

		return nil
	}
	if !decision.Approved {
		s.drop("rejected", pkg, slog.Int("approvals", decision.Approvals()), slog.Int("quorum", s.committee.Quorum()))

		return nil
	}

	p, err := fl.DecodeShare(pkg.Payload)
	if err != nil {
		s.metrics.Messages.With("kind", "share", "outcome", "malformed").Add(1)

		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}
	if p.Scheme != s.cfg.Scheme || p.Index != s.cfg.Index {
		s.metrics.Messages.With("kind", "share", "outcome", "mismatch").Add(1)
		s.logger.Error("Share does not match regional configuration",
			slog.String("facility_id", pkg.Signer),
			slog.String("scheme", string(p.Scheme)),
			slog.Int("index", p.Index),
		)

		return fmt.Errorf("%w: expected %s share %d, got %s share %d", pkgerrors.ErrSchemeMismatch, s.cfg.Scheme, s.cfg.Index, p.Scheme, p.Index)
	}

	batch, ok, err := s.state.AddTo(p.Round, pkg.Signer, entry{payload: p, coSignature: decision.CoSignature, raw: pkg.Payload})
	if err != nil {
		s.metrics.Messages.With("kind", "share", "outcome", "stale_round").Add(1)
		s.logger.Warn("Share belongs to another round", slog.String("facility_id", pkg.Signer), slog.Uint64("round", p.Round))

		return err
	}
	s.accepted.Add(1)
	s.metrics.Messages.With("kind", "share", "outcome", "accepted").Add(1)
	s.logger.Info("Share verified",
		slog.String("facility_id", pkg.Signer),
		slog.Uint64("round", p.Round),
		slog.Int("approvals", decision.Approvals()),
	)
	if !ok {
		return nil
	}

	bg := context.WithoutCancel(ctx)
	s.exec.Submit(func() {
		s.aggregate(bg, batch)
	})

	return nil
}

func (s *service) Status(_ context.Context) (Status, error) {
	return Status{
		ID:       s.cfg.ID,
		Index:    s.cfg.Index,
		Round:    s.state.Round(),
		Pending:  s.state.Pending(),
		Quorum:   s.state.Quorum(),
		Accepted: s.accepted.Load(),
		Dropped:  s.dropped.Load(),
	}, nil
}

func (s *service) aggregate(ctx context.Context, batch fl.Batch[entry]) {
	senders := batch.Senders()
	updates := make([]fl.Update, 0, len(senders))
	for _, sender := range senders {
		e := batch.Entries[sender]
		if !s.committee.VerifyCoSignature(e.raw, e.coSignature) {
			s.logger.Error("Stored share lost its committee co-signature", slog.String("facility_id", sender))

			return
		}
		updates = append(updates, fl.Update{
			Sender:     sender,
			Index:      e.payload.Index,
			NumSamples: e.payload.NumSamples,
			Weights:    e.payload.Share,
		})
	}

	agg, err := s.aggregator.Aggregate(updates)
	if err != nil {
		s.logger.Error("Failed to aggregate shares", slog.Uint64("round", batch.Round), slog.Any("error", err))

		return
	}

	data, err := fl.Encode(fl.PartialPayload{
		Round:      batch.Round,
		Scheme:     s.cfg.Scheme,
		Index:      s.cfg.Index,
		Facilities: senders,
		Aggregate:  agg,
	})
	if err != nil {
		s.logger.Error("Failed to encode partial aggregate", slog.Any("error", err))

		return
	}
	pkg := auth.Seal(data, auth.FogIdentity(s.cfg.ID), s.keys)
	s.logger.Info("Shares aggregated", slog.Uint64("round", batch.Round), slog.Int("facilities", len(senders)))

	if err := s.forwarder.SendPartial(ctx, pkg); err != nil {
		s.metrics.Messages.With("kind", "partial", "outcome", "failed").Add(1)
		s.logger.Warn("Failed to forward partial aggregate", slog.Uint64("round", batch.Round), slog.Any("error", err))

		return
	}
	s.metrics.Messages.With("kind", "partial", "outcome", "sent").Add(1)
	s.metrics.Bytes.With("direction", "upload").Add(float64(len(data)))
	s.metrics.Rounds.Add(1)
	s.logger.Info("Partial aggregate forwarded", slog.Uint64("round", batch.Round))
}

func (s *service) drop(reason string, pkg auth.SignedPackage, args ...any) {
	s.dropped.Add(1)
	s.metrics.Messages.With("kind", "share", "outcome", reason).Add(1)
	args = append([]any{slog.String("facility_id", pkg.Signer), slog.String("reason", reason)}, args...)
	s.logger.Warn("Dropped share", args...)
}
