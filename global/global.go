package global

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
)

type Status struct {
	Round    uint64 `json:"round"`
	Pending  int    `json:"pending"`
	Quorum   int    `json:"quorum"`
	HasModel bool   `json:"has_model"`
}

// RoundEvent is published when a round closes.
type RoundEvent struct {
	Round      uint64    `json:"round"`
	Regionals  []string  `json:"regionals"`
	Facilities int       `json:"facilities"`
	Delivered  int       `json:"delivered"`
	Params     int       `json:"params"`
	ClosedAt   time.Time `json:"closed_at"`
}

// Service is the lead aggregator. It reconstructs the global model from one
// partial aggregate per regional aggregator and broadcasts it to every
// facility. It also proxies the encrypted initial model.
type Service interface {
	// Receive accepts a partial aggregate signed by a known regional aggregator.
	Receive(ctx context.Context, pkg auth.SignedPackage) error
	// EncryptedModel returns the initial model, fetching it from the trusted
	// authority on first use.
	EncryptedModel(ctx context.Context) (abe.EncryptedModel, error)
	// GlobalModel returns the model of the last closed round.
	GlobalModel(ctx context.Context) (fl.GlobalModel, error)
	Status(ctx context.Context) (Status, error)
}

// ModelSource is the trusted authority.
type ModelSource interface {
	EncryptedModel(ctx context.Context) (abe.EncryptedModel, error)
}

// Broadcaster delivers the global model to one facility.
type Broadcaster interface {
	SendGlobal(ctx context.Context, facility string, m fl.GlobalModel) error
}
