package api

import (
	"errors"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
	apiutil "github.com/absmach/supermq/api/http/util"
)

var errInvalidFacilityCount = errors.New("facility count must be positive")

type setupReq struct {
	NumFacilities int `json:"num_facilities"`
}

func (req *setupReq) validate() error {
	if req.NumFacilities < 1 {
		return errInvalidFacilityCount
	}

	return nil
}

type registerReq struct {
	Identity   string         `json:"identity"`
	Nonce      uint64         `json:"nonce"`
	Attributes abe.Attributes `json:"attributes"`
}

func (req *registerReq) validate() error {
	if req.Identity == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type encryptModelReq struct {
	Weights weights.Set `json:"weights"  cbor:"1,keyasint"`
	Policy  abe.Policy  `json:"policy"   cbor:"2,keyasint"`
}

func (req *encryptModelReq) validate() error {
	return req.Weights.Validate()
}

type entityReq struct {
	id string
}

func (req *entityReq) validate() error {
	if req.id == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type decryptReq struct {
	Identity string `json:"identity"`
}

func (req *decryptReq) validate() error {
	if req.Identity == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type statusReq struct{}
