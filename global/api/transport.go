package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/dpsshare/global"
	"github.com/absmach/dpsshare/pkg/api"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func MakeHandler(svc global.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/recv", otelhttp.NewHandler(kithttp.NewServer(
		receiveEndpoint(svc),
		decodeSignedPackage,
		api.EncodeResponse,
		opts...,
	), "receive-partial").ServeHTTP)

	mux.Route("/models", func(r chi.Router) {
		r.Get("/encrypted", otelhttp.NewHandler(kithttp.NewServer(
			encryptedModelEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-encrypted-model").ServeHTTP)
		r.Get("/global", otelhttp.NewHandler(kithttp.NewServer(
			globalModelEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-global-model").ServeHTTP)
	})

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Get("/health", supermq.Health("global", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeSignedPackage(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.CBORContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var pkg auth.SignedPackage
	if err := cbor.NewDecoder(r.Body).Decode(&pkg); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return receiveReq{pkg: pkg}, nil
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return emptyReq{}, nil
}
