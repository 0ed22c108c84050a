package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/supermq"
	apiutil "github.com/absmach/supermq/api/http/util"
	"github.com/fxamacker/cbor/v2"
)

const (
	ContentType     = "application/json"
	CBORContentType = "application/cbor"
)

// CBORResponse marks responses whose body is a CBOR document.
type CBORResponse interface {
	supermq.Response
	CBOR() any
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	if cr, ok := response.(CBORResponse); ok {
		for k, v := range cr.Headers() {
			w.Header().Set(k, v)
		}
		data, err := cbor.Marshal(cr.CBOR())
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", CBORContentType)
		w.WriteHeader(cr.Code())
		_, err = w.Write(data)

		return err
	}

	if ar, ok := response.(supermq.Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", ContentType)
	switch {
	case errors.Is(err, apiutil.ErrUnsupportedContentType):
		w.WriteHeader(http.StatusUnsupportedMediaType)
	case errors.Is(err, apiutil.ErrValidation),
		errors.Is(err, pkgerrors.ErrEmptyKey),
		errors.Is(err, pkgerrors.ErrInvalidData),
		errors.Is(err, pkgerrors.ErrSchemeMismatch):
		w.WriteHeader(http.StatusBadRequest)
	case errors.Is(err, pkgerrors.ErrInvalidSignature),
		errors.Is(err, pkgerrors.ErrInvalidPoW),
		errors.Is(err, pkgerrors.ErrNotRegistered):
		w.WriteHeader(http.StatusUnauthorized)
	case errors.Is(err, pkgerrors.ErrAccessDenied):
		w.WriteHeader(http.StatusForbidden)
	case errors.Is(err, pkgerrors.ErrNotFound),
		errors.Is(err, pkgerrors.ErrNoModel):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, pkgerrors.ErrInvalidState),
		errors.Is(err, pkgerrors.ErrNotInitialized),
		errors.Is(err, pkgerrors.ErrRoundMismatch):
		w.WriteHeader(http.StatusConflict)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	if err := json.NewEncoder(w).Encode(errorRes{Err: err.Error()}); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type errorRes struct {
	Err string `json:"error"`
}
