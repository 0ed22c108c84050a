package facility

import (
	"context"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/weights"
)

type State string

const (
	Idle           State = "idle"
	Training       State = "training"
	Sharing        State = "sharing"
	AwaitingGlobal State = "awaiting_global"
	Finished       State = "finished"
)

type Status struct {
	ID         string  `json:"id"`
	State      State   `json:"state"`
	Round      uint64  `json:"round"`
	Rounds     int     `json:"rounds"`
	Registered bool    `json:"registered"`
	Training   Metrics `json:"training"`
	Evaluation Metrics `json:"evaluation"`
	Uploaded   int64   `json:"uploaded_bytes"`
	Downloaded int64   `json:"downloaded_bytes"`
}

// Service is one participant of the protocol. Round work runs in the
// background; Start and Receive only validate the state and schedule it.
type Service interface {
	// Start begins the first round. When initial is nil the facility registers
	// with the trusted authority and uses the distributed initial model,
	// falling back to the trainer initialization on any failure.
	Start(ctx context.Context, initial weights.Set) error
	// Receive accepts the global model of the round the facility is waiting on.
	Receive(ctx context.Context, m fl.GlobalModel) error
	Status(ctx context.Context) (Status, error)
}

// Authority registers the facility with the trusted authority.
type Authority interface {
	Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (string, error)
}

// ModelSource provides the encrypted initial model.
type ModelSource interface {
	EncryptedModel(ctx context.Context) (abe.EncryptedModel, error)
}

// ShareSender delivers a signed share to the regional aggregator with the given
// zero-based position.
type ShareSender interface {
	SendShare(ctx context.Context, regional int, pkg auth.SignedPackage) error
}
