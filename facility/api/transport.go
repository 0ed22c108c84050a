package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/dpsshare/pkg/api"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func MakeHandler(svc facility.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/start", otelhttp.NewHandler(kithttp.NewServer(
		startEndpoint(svc),
		decodeStartReq,
		api.EncodeResponse,
		opts...,
	), "start").ServeHTTP)

	mux.Post("/recv", otelhttp.NewHandler(kithttp.NewServer(
		receiveEndpoint(svc),
		decodeReceiveReq,
		api.EncodeResponse,
		opts...,
	), "receive-global-model").ServeHTTP)

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Get("/health", supermq.Health("facility", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

// decodeStartReq accepts an empty body, which starts from the distributed
// initial model.
func decodeStartReq(_ context.Context, r *http.Request) (any, error) {
	var req startReq
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	if len(data) == 0 {
		return req, nil
	}

	switch ct := r.Header.Get("Content-Type"); {
	case strings.Contains(ct, api.CBORContentType):
		if err := cbor.Unmarshal(data, &req); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
	case strings.Contains(ct, api.ContentType):
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
	default:
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	return req, nil
}

func decodeReceiveReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.CBORContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}
	m, err := fl.DecodeGlobal(data)
	if err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return receiveReq{model: m}, nil
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return statusReq{}, nil
}
