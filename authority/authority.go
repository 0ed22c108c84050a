package authority

import (
	"context"
	"time"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
)

// Facility is the registry record of a registered facility.
type Facility struct {
	ID           string         `json:"id"`
	Attributes   abe.Attributes `json:"attributes"`
	SecretKey    string         `json:"secret_key"`
	RegisteredAt time.Time      `json:"registered_at"`
}

type Status struct {
	Initialized bool   `json:"initialized"`
	PublicKey   string `json:"public_key,omitempty"`
	Facilities  uint64 `json:"facilities"`
	HasModel    bool   `json:"has_model"`
}

// Service is the trusted authority. It must be set up before it registers
// facilities or encrypts models.
type Service interface {
	// Setup derives the master keys for numFacilities facilities and returns the public key.
	Setup(ctx context.Context, numFacilities int) (string, error)
	// Register verifies the proof of work of identity and issues its secret key.
	// Registering again replaces the attributes and key.
	Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (string, error)
	// EncryptModel encrypts the initial model under policy and keeps it for distribution.
	EncryptModel(ctx context.Context, w weights.Set, policy abe.Policy) (abe.EncryptedModel, error)
	EncryptedModel(ctx context.Context) (abe.EncryptedModel, error)
	// Decrypt returns the current model to a registered facility whose attributes satisfy its policy.
	Decrypt(ctx context.Context, identity string) (weights.Set, error)
	ViewFacility(ctx context.Context, identity string) (Facility, error)
	Status(ctx context.Context) (Status, error)
}
