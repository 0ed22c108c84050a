package api

import (
	"context"
	"errors"

	"github.com/absmach/dpsshare/authority"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func setupEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(setupReq)
		if !ok {
			return setupRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return setupRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		pk, err := svc.Setup(ctx, req.NumFacilities)
		if err != nil {
			return setupRes{}, err
		}

		return setupRes{PublicKey: pk}, nil
	}
}

func registerEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(registerReq)
		if !ok {
			return registerRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return registerRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		sk, err := svc.Register(ctx, req.Identity, req.Nonce, req.Attributes)
		if err != nil {
			return registerRes{}, err
		}

		return registerRes{SecretKey: sk}, nil
	}
}

func encryptModelEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(encryptModelReq)
		if !ok {
			return encryptedModelRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return encryptedModelRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		em, err := svc.EncryptModel(ctx, req.Weights, req.Policy)
		if err != nil {
			return encryptedModelRes{}, err
		}

		return encryptedModelRes{EncryptedModel: em, created: true}, nil
	}
}

func encryptedModelEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		em, err := svc.EncryptedModel(ctx)
		if err != nil {
			return encryptedModelRes{}, err
		}

		return encryptedModelRes{EncryptedModel: em}, nil
	}
}

func decryptEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(decryptReq)
		if !ok {
			return modelRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return modelRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		w, err := svc.Decrypt(ctx, req.Identity)
		if err != nil {
			return modelRes{}, err
		}

		return modelRes{weights: w}, nil
	}
}

func viewFacilityEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return facilityRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return facilityRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		f, err := svc.ViewFacility(ctx, req.id)
		if err != nil {
			return facilityRes{}, err
		}

		return newFacilityRes(f), nil
	}
}

func statusEndpoint(svc authority.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: st}, nil
	}
}
