package api

import (
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/weights"
)

type startReq struct {
	Weights weights.Set `json:"weights,omitempty" cbor:"1,keyasint,omitempty"`
}

func (req *startReq) validate() error {
	if req.Weights == nil {
		return nil
	}

	return req.Weights.Validate()
}

type receiveReq struct {
	model fl.GlobalModel
}

func (req *receiveReq) validate() error {
	return req.model.Weights.Validate()
}

type statusReq struct{}
