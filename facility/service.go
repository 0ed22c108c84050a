package facility

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/privacy"
	"github.com/absmach/dpsshare/pkg/prometheus"
	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/weights"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	ID         string
	Attributes abe.Attributes
	// Rounds is the number of global rounds to take part in.
	Rounds     int
	Difficulty int
	Budget     privacy.Budget
	// NoiseSource seeds the privacy noise. Nil uses the global source.
	NoiseSource rand.Source
}

func (c Config) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty facility id", pkgerrors.ErrInvalidConfig)
	}
	if c.Rounds < 1 {
		return fmt.Errorf("%w: rounds must be positive", pkgerrors.ErrInvalidConfig)
	}

	return c.Budget.Validate()
}

type service struct {
	cfg       Config
	trainer   Trainer
	engine    *sharing.Engine
	keys      auth.KeyDerivation
	authority Authority
	models    ModelSource
	sender    ShareSender
	exec      fl.Executor
	metrics   prometheus.ProtocolMetrics
	logger    *slog.Logger

	mu         sync.Mutex
	state      State
	round      uint64
	nonce      uint64
	secretKey  string
	training   Metrics
	evaluation Metrics
	uploaded   int64
	downloaded int64
}

var _ Service = (*service)(nil)

func NewService(
	cfg Config,
	trainer Trainer,
	engine *sharing.Engine,
	keys auth.KeyDerivation,
	ta Authority,
	models ModelSource,
	sender ShareSender,
	exec fl.Executor,
	metrics prometheus.ProtocolMetrics,
	logger *slog.Logger,
) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &service{
		cfg:       cfg,
		trainer:   trainer,
		engine:    engine,
		keys:      keys,
		authority: ta,
		models:    models,
		sender:    sender,
		exec:      exec,
		metrics:   metrics,
		logger:    logger.With(slog.String("facility_id", cfg.ID)),
		state:     Idle,
	}, nil
}

func (s *service) Start(ctx context.Context, initial weights.Set) error {
	if initial != nil {
		if err := initial.Validate(); err != nil {
			return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
		}
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()

		return fmt.Errorf("%w: cannot start from %s", pkgerrors.ErrInvalidState, s.state)
	}
	s.state = Training
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.exec.Submit(func() {
		w, err := s.bootstrap(bg, initial)
		if err != nil {
			s.logger.Error("Failed to bootstrap facility", slog.Any("error", err))
			s.setState(Idle)

			return
		}
		s.runRound(bg, w)
	})

	return nil
}

func (s *service) Receive(ctx context.Context, m fl.GlobalModel) error {
	if err := m.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrInvalidData, err)
	}
	size := int64(m.Weights.NumParams() * 8)

	s.mu.Lock()
	if s.state != AwaitingGlobal {
		state := s.state
		s.mu.Unlock()

		return fmt.Errorf("%w: cannot receive global model while %s", pkgerrors.ErrInvalidState, state)
	}
	if m.Round != s.round {
		s.logger.Warn("Global model round differs from local round", slog.Uint64("local", s.round), slog.Uint64("global", m.Round))
	}
	s.round++
	s.downloaded += size
	final := s.round >= uint64(s.cfg.Rounds)
	if final {
		s.state = Finished
	} else {
		s.state = Training
	}
	round := s.round
	s.mu.Unlock()

	s.metrics.Bytes.With("direction", "download").Add(float64(size))
	s.metrics.Rounds.Add(1)
	s.logger.Info("Received global model", slog.Uint64("completed_rounds", round), slog.Bool("final", final))

	bg := context.WithoutCancel(ctx)
	s.exec.Submit(func() {
		if final {
			s.evaluate(bg, m.Weights)

			return
		}
		s.runRound(bg, m.Weights)
	})

	return nil
}

func (s *service) Status(_ context.Context) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		ID:         s.cfg.ID,
		State:      s.state,
		Round:      s.round,
		Rounds:     s.cfg.Rounds,
		Registered: s.secretKey != "",
		Training:   s.training,
		Evaluation: s.evaluation,
		Uploaded:   s.uploaded,
		Downloaded: s.downloaded,
	}, nil
}

// bootstrap computes the proof of work, registers with the trusted authority
// and resolves the starting weights.
func (s *service) bootstrap(ctx context.Context, initial weights.Set) (weights.Set, error) {
	nonce, err := auth.ComputePoW(ctx, s.cfg.ID, s.cfg.Difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to compute proof of work: %w", err)
	}
	s.mu.Lock()
	s.nonce = nonce
	s.mu.Unlock()

	sk, err := s.authority.Register(ctx, s.cfg.ID, nonce, s.cfg.Attributes)
	if err != nil {
		s.logger.Warn("Registration with trusted authority failed", slog.Any("error", err))
	} else {
		s.mu.Lock()
		s.secretKey = sk
		s.mu.Unlock()
		s.logger.Info("Registered with trusted authority", slog.Uint64("nonce", nonce))
	}

	if initial != nil {
		return initial, nil
	}

	def, err := s.trainer.Init(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize model: %w", err)
	}
	if sk == "" {
		return def, nil
	}

	em, err := s.models.EncryptedModel(ctx)
	if err != nil {
		s.logger.Warn("Failed to fetch encrypted initial model, using default initialization", slog.Any("error", err))

		return def, nil
	}
	w, err := authority.DecryptModel(em, s.cfg.Attributes)
	switch {
	case err != nil:
		s.logger.Warn("Failed to decrypt initial model, using default initialization", slog.Any("error", err))

		return def, nil
	case !w.SameShape(def):
		s.logger.Warn("Initial model does not match the local architecture, using default initialization")

		return def, nil
	}
	s.logger.Info("Decrypted initial model", slog.Int("params", w.NumParams()))

	return w, nil
}

func (s *service) runRound(ctx context.Context, w weights.Set) {
	s.mu.Lock()
	round, nonce := s.round, s.nonce
	s.mu.Unlock()

	res, err := s.trainer.Train(ctx, w)
	if err != nil {
		s.logger.Error("Local training failed", slog.Uint64("round", round), slog.Any("error", err))
		s.setState(Idle)

		return
	}
	s.logger.Info("Local training completed",
		slog.Uint64("round", round),
		slog.Int("samples", res.NumSamples),
		slog.Float64("loss", res.Metrics.Loss),
		slog.Float64("accuracy", res.Metrics.Accuracy),
	)

	noised, err := privacy.AddNoise(res.Weights, s.cfg.Budget, s.cfg.NoiseSource)
	if err != nil {
		s.logger.Error("Failed to add privacy noise", slog.Any("error", err))
		s.setState(Idle)

		return
	}

	s.mu.Lock()
	s.training = res.Metrics
	s.state = Sharing
	s.mu.Unlock()

	shares, err := s.engine.Split(noised)
	if err != nil {
		s.logger.Error("Failed to split update", slog.Any("error", err))
		s.setState(Idle)

		return
	}

	pkgs := make([]auth.SignedPackage, len(shares))
	for i, sh := range shares {
		data, err := fl.Encode(fl.SharePayload{
			Round:      round,
			Scheme:     sh.Scheme,
			Index:      sh.Index,
			NumSamples: res.NumSamples,
			Share:      sh.Data,
		})
		if err != nil {
			s.logger.Error("Failed to encode share", slog.Int("index", sh.Index), slog.Any("error", err))
			s.setState(Idle)

			return
		}
		pkgs[i] = auth.Seal(data, s.cfg.ID, s.keys).WithNonce(nonce)
	}

	// The global model can arrive before the last send returns.
	s.setState(AwaitingGlobal)

	var g errgroup.Group
	for i, pkg := range pkgs {
		g.Go(func() error {
			if err := s.sender.SendShare(ctx, i, pkg); err != nil {
				s.metrics.Messages.With("kind", "share", "outcome", "failed").Add(1)
				s.logger.Warn("Failed to send share", slog.Int("regional", i), slog.Any("error", err))

				return err
			}
			s.metrics.Messages.With("kind", "share", "outcome", "sent").Add(1)
			s.metrics.Bytes.With("direction", "upload").Add(float64(len(pkg.Payload)))
			s.mu.Lock()
			s.uploaded += int64(len(pkg.Payload))
			s.mu.Unlock()

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Not every share was delivered", slog.Uint64("round", round), slog.Any("error", err))

		return
	}
	s.logger.Info("Shares sent", slog.Uint64("round", round), slog.Int("shares", len(pkgs)))
}

func (s *service) evaluate(ctx context.Context, w weights.Set) {
	m, err := s.trainer.Evaluate(ctx, w)
	if err != nil {
		s.logger.Error("Final evaluation failed", slog.Any("error", err))

		return
	}

	s.mu.Lock()
	s.evaluation = m
	uploaded, downloaded := s.uploaded, s.downloaded
	s.mu.Unlock()

	s.logger.Info("Final evaluation completed",
		slog.Float64("loss", m.Loss),
		slog.Float64("accuracy", m.Accuracy),
		slog.Int64("uploaded_bytes", uploaded),
		slog.Int64("downloaded_bytes", downloaded),
	)
}

func (s *service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
