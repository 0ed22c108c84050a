package fl

import (
	"fmt"

	"github.com/absmach/dpsshare/pkg/sharing"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/fxamacker/cbor/v2"
)

// Update is one contribution to an aggregation: a facility share at the
// regional tier or a partial aggregate at the global tier.
type Update struct {
	Sender     string
	Index      int
	NumSamples int
	Weights    weights.Set
}

type Aggregator interface {
	Aggregate(updates []Update) (weights.Set, error)
}

// SharePayload is what a facility signs and sends to one regional aggregator.
type SharePayload struct {
	Round      uint64         `cbor:"1,keyasint" json:"round"`
	Scheme     sharing.Scheme `cbor:"2,keyasint" json:"scheme"`
	Index      int            `cbor:"3,keyasint" json:"index"`
	NumSamples int            `cbor:"4,keyasint" json:"num_samples"`
	Share      weights.Set    `cbor:"5,keyasint" json:"share"`
}

// PartialPayload is what a regional aggregator signs and sends to the global aggregator.
type PartialPayload struct {
	Round      uint64         `cbor:"1,keyasint" json:"round"`
	Scheme     sharing.Scheme `cbor:"2,keyasint" json:"scheme"`
	Index      int            `cbor:"3,keyasint" json:"index"`
	Facilities []string       `cbor:"4,keyasint" json:"facilities"`
	Aggregate  weights.Set    `cbor:"5,keyasint" json:"aggregate"`
}

// GlobalModel is broadcast to every facility when a round closes.
type GlobalModel struct {
	Round   uint64      `cbor:"1,keyasint" json:"round"`
	Weights weights.Set `cbor:"2,keyasint" json:"weights"`
}

func Encode(v any) ([]byte, error) {
	return cbor.Marshal(v)
}

func DecodeShare(data []byte) (SharePayload, error) {
	var p SharePayload
	if err := cbor.Unmarshal(data, &p); err != nil {
		return SharePayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.Index < 1 || p.NumSamples < 0 {
		return SharePayload{}, fmt.Errorf("%w: index=%d samples=%d", ErrMalformedPayload, p.Index, p.NumSamples)
	}
	if err := p.Share.Validate(); err != nil {
		return SharePayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return p, nil
}

func DecodePartial(data []byte) (PartialPayload, error) {
	var p PartialPayload
	if err := cbor.Unmarshal(data, &p); err != nil {
		return PartialPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if p.Index < 1 {
		return PartialPayload{}, fmt.Errorf("%w: index=%d", ErrMalformedPayload, p.Index)
	}
	if err := p.Aggregate.Validate(); err != nil {
		return PartialPayload{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return p, nil
}

func DecodeGlobal(data []byte) (GlobalModel, error) {
	var m GlobalModel
	if err := cbor.Unmarshal(data, &m); err != nil {
		return GlobalModel{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if err := m.Weights.Validate(); err != nil {
		return GlobalModel{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	return m, nil
}
