package regional

import (
	"context"

	"github.com/absmach/dpsshare/pkg/auth"
)

type Status struct {
	ID       string `json:"id"`
	Index    int    `json:"index"`
	Round    uint64 `json:"round"`
	Pending  int    `json:"pending"`
	Quorum   int    `json:"quorum"`
	Accepted uint64 `json:"accepted"`
	Dropped  uint64 `json:"dropped"`
}

// Service is a fog node. It collects one share per facility, aggregates them
// once every facility has delivered and forwards the signed partial aggregate.
type Service interface {
	// Receive accepts a signed share. Packages failing proof of work, MAC or
	// committee checks are dropped without an error.
	Receive(ctx context.Context, pkg auth.SignedPackage) error
	Status(ctx context.Context) (Status, error)
}

// Forwarder delivers a signed partial aggregate to the global aggregator.
type Forwarder interface {
	SendPartial(ctx context.Context, pkg auth.SignedPackage) error
}
