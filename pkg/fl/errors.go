package fl

import (
	"errors"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
)

var (
	ErrNoUpdates        = errors.New("no updates provided for aggregation")
	ErrOverflow         = errors.New("sample count overflow during aggregation")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrInvalidQuorum    = errors.New("quorum must be positive")
	ErrRoundMismatch    = pkgerrors.ErrRoundMismatch
)
