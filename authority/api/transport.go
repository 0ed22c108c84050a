package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/dpsshare/authority"
	"github.com/absmach/dpsshare/pkg/api"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func MakeHandler(svc authority.Service, logger *slog.Logger, instanceID string) http.Handler {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(apiutil.LoggingErrorEncoder(logger, api.EncodeError)),
	}

	mux.Post("/setup", otelhttp.NewHandler(kithttp.NewServer(
		setupEndpoint(svc),
		decodeSetupReq,
		api.EncodeResponse,
		opts...,
	), "setup").ServeHTTP)

	mux.Post("/register", otelhttp.NewHandler(kithttp.NewServer(
		registerEndpoint(svc),
		decodeRegisterReq,
		api.EncodeResponse,
		opts...,
	), "register").ServeHTTP)

	mux.Route("/models", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			encryptModelEndpoint(svc),
			decodeEncryptModelReq,
			api.EncodeResponse,
			opts...,
		), "encrypt-model").ServeHTTP)
		r.Get("/encrypted", otelhttp.NewHandler(kithttp.NewServer(
			encryptedModelEndpoint(svc),
			decodeEmptyReq,
			api.EncodeResponse,
			opts...,
		), "get-encrypted-model").ServeHTTP)
		r.Post("/decrypt", otelhttp.NewHandler(kithttp.NewServer(
			decryptEndpoint(svc),
			decodeDecryptReq,
			api.EncodeResponse,
			opts...,
		), "decrypt-model").ServeHTTP)
	})

	mux.Get("/facilities/{facilityID}", otelhttp.NewHandler(kithttp.NewServer(
		viewFacilityEndpoint(svc),
		decodeEntityReq("facilityID"),
		api.EncodeResponse,
		opts...,
	), "view-facility").ServeHTTP)

	mux.Get("/status", otelhttp.NewHandler(kithttp.NewServer(
		statusEndpoint(svc),
		decodeEmptyReq,
		api.EncodeResponse,
		opts...,
	), "status").ServeHTTP)

	mux.Get("/health", supermq.Health("authority", instanceID))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}

func decodeSetupReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req setupReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeRegisterReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeEncryptModelReq(_ context.Context, r *http.Request) (any, error) {
	var req encryptModelReq
	switch ct := r.Header.Get("Content-Type"); {
	case strings.Contains(ct, api.CBORContentType):
		if err := cbor.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
	case strings.Contains(ct, api.ContentType):
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.Join(err, apiutil.ErrValidation)
		}
	default:
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	return req, nil
}

func decodeDecryptReq(_ context.Context, r *http.Request) (any, error) {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return nil, errors.Join(apiutil.ErrValidation, apiutil.ErrUnsupportedContentType)
	}

	var req decryptReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.Join(err, apiutil.ErrValidation)
	}

	return req, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeEmptyReq(_ context.Context, _ *http.Request) (any, error) {
	return statusReq{}, nil
}
