package authority

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/absmach/dpsshare/pkg/weights"
)

type Config struct {
	Difficulty    int
	SecurityParam int
	// Seed makes setup reproducible across restarts.
	Seed string
}

type service struct {
	cfg      Config
	registry storage.Storage[Facility]
	logger   *slog.Logger

	mu    sync.RWMutex
	keys  *abe.MasterKeys
	model *abe.EncryptedModel
}

var _ Service = (*service)(nil)

func NewService(cfg Config, registry storage.Storage[Facility], logger *slog.Logger) Service {
	if cfg.SecurityParam == 0 {
		cfg.SecurityParam = abe.DefaultSecurityParam
	}

	return &service{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

func (s *service) Setup(_ context.Context, numFacilities int) (string, error) {
	if numFacilities < 1 {
		return "", fmt.Errorf("%w: facility count must be positive", pkgerrors.ErrInvalidConfig)
	}

	params := abe.DefaultParams(numFacilities, s.cfg.Seed)
	params.SecurityParam = s.cfg.SecurityParam
	keys, err := abe.Setup(params)
	if err != nil {
		return "", fmt.Errorf("failed to set up master keys: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys != nil {
		s.logger.Warn("Replacing master keys of an initialized authority")
	}
	s.keys = &keys
	s.model = nil

	return keys.PublicKey, nil
}

func (s *service) Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (string, error) {
	if identity == "" {
		return "", pkgerrors.ErrEmptyKey
	}

	keys, err := s.masterKeys()
	if err != nil {
		return "", err
	}

	if !auth.VerifyPoW(identity, nonce, s.cfg.Difficulty) {
		return "", pkgerrors.ErrInvalidPoW
	}

	sk, err := abe.KeyGen(keys.MasterSecret, identity, attrs)
	if err != nil {
		return "", fmt.Errorf("failed to generate secret key: %w", err)
	}

	f := Facility{
		ID:           identity,
		Attributes:   attrs,
		SecretKey:    sk,
		RegisteredAt: time.Now().UTC(),
	}
	if err := s.registry.Put(ctx, identity, f); err != nil {
		return "", fmt.Errorf("failed to store facility: %w", err)
	}

	return sk, nil
}

func (s *service) EncryptModel(_ context.Context, w weights.Set, policy abe.Policy) (abe.EncryptedModel, error) {
	keys, err := s.masterKeys()
	if err != nil {
		return abe.EncryptedModel{}, err
	}

	plaintext, err := weights.Marshal(w)
	if err != nil {
		return abe.EncryptedModel{}, fmt.Errorf("failed to encode model: %w", err)
	}
	ct, err := abe.Encrypt(keys.PublicKey, plaintext, policy)
	if err != nil {
		return abe.EncryptedModel{}, fmt.Errorf("failed to encrypt model: %w", err)
	}

	em := abe.EncryptedModel{
		Ciphertext: ct,
		Policy:     policy,
		PublicKey:  keys.PublicKey,
	}

	s.mu.Lock()
	s.model = &em
	s.mu.Unlock()

	return em, nil
}

func (s *service) EncryptedModel(_ context.Context) (abe.EncryptedModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil {
		return abe.EncryptedModel{}, pkgerrors.ErrNoModel
	}

	return *s.model, nil
}

func (s *service) Decrypt(ctx context.Context, identity string) (weights.Set, error) {
	f, err := s.registry.Get(ctx, identity)
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound), errors.Is(err, pkgerrors.ErrEmptyKey):
		return nil, pkgerrors.ErrNotRegistered
	case err != nil:
		return nil, err
	}

	em, err := s.EncryptedModel(ctx)
	if err != nil {
		return nil, err
	}

	return DecryptModel(em, f.Attributes)
}

func (s *service) ViewFacility(ctx context.Context, identity string) (Facility, error) {
	return s.registry.Get(ctx, identity)
}

func (s *service) Status(ctx context.Context) (Status, error) {
	total, err := s.registry.Count(ctx)
	if err != nil {
		return Status{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Initialized: s.keys != nil,
		Facilities:  total,
		HasModel:    s.model != nil,
	}
	if s.keys != nil {
		st.PublicKey = s.keys.PublicKey
	}

	return st, nil
}

func (s *service) masterKeys() (abe.MasterKeys, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.keys == nil {
		return abe.MasterKeys{}, pkgerrors.ErrNotInitialized
	}

	return *s.keys, nil
}

// DecryptModel decrypts em for a holder of attrs and decodes the weights.
func DecryptModel(em abe.EncryptedModel, attrs abe.Attributes) (weights.Set, error) {
	plaintext, err := abe.Decrypt(em.PublicKey, em.Ciphertext, em.Policy, attrs)
	if err != nil {
		return nil, err
	}

	return weights.Unmarshal(plaintext)
}
