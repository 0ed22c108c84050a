package api

import (
	"context"
	"errors"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/regional"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/go-kit/kit/endpoint"
)

func receiveEndpoint(svc regional.Service) endpoint.Endpoint {
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

func statusEndpoint(svc regional.Service) endpoint.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		st, err := svc.Status(ctx)
		if err != nil {
			return statusRes{}, err
		}

		return statusRes{Status: st}, nil
	}
}
