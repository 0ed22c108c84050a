package api

import (
	"context"
	"errors"

	"github.com/absmach/dpsshare/global"
	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func receiveEndpoint(svc global.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(receiveReq)
		if !ok {
			return ackRes{}, errors.Join(apiutil.ErrValidation, pkgerrors.ErrInvalidData)
		}
		if err := req.validate(); err != nil {
			return ackRes{}, errors.Join(apiutil.ErrValidation, err)
		}

		if err := svc.Receive(ctx, req.pkg); err != nil {
			return ackRes{}, err
		}

		return ackRes{Status: "received"}, nil
	}
}

func encryptedModelEndpoint(svc global.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		em, err := svc.EncryptedModel(ctx)
		if err != nil {
			return encryptedModelRes{}, err
		}

		return encryptedModelRes{EncryptedModel: em}, nil
	}
}

func globalModelEndpoint(svc global.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		m, err := svc.GlobalModel(ctx)
		if err != nil {
			return globalModelRes{}, err
		}

		return globalModelRes{model: m}, nil
	}
}

func statusEndpoint(svc global.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: st}, nil
	}
}
