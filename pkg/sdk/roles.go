package sdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/auth"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/dpsshare/pkg/weights"
)

// Facility is a client of one facility.
type Facility struct {
	client
	url string
}

func NewFacility(url string, cfg Config) *Facility {
	return &Facility{client: newClient(cfg), url: url}
}

// Start begins the first round. A nil initial lets the facility fetch the
// encrypted initial model.
func (f *Facility) Start(ctx context.Context, initial weights.Set) error {
	if initial == nil {
		_, err := f.processRequest(ctx, http.MethodPost, f.url+"/start", "", nil, http.StatusAccepted)

		return err
	}
	req := struct {
		Weights weights.Set `cbor:"1,keyasint"`
	}{initial}

	return f.postCBOR(ctx, f.url+"/start", req, http.StatusAccepted)
}

func (f *Facility) Receive(ctx context.Context, m fl.GlobalModel) error {
	return f.postCBOR(ctx, f.url+recvEndpoint, m, http.StatusAccepted)
}

// Status returns the raw status document of the facility.
func (f *Facility) Status(ctx context.Context) (map[string]any, error) {
	var st map[string]any
	if err := f.getJSON(ctx, f.url+statusEndpoint, &st); err != nil {
		return nil, err
	}

	return st, nil
}

// Regionals addresses the regional aggregators by share position.
type Regionals struct {
	client
	urls []string
}

func NewRegionals(urls []string, cfg Config) *Regionals {
	return &Regionals{client: newClient(cfg), urls: urls}
}

func (r *Regionals) SendShare(ctx context.Context, regional int, pkg auth.SignedPackage) error {
	if regional < 0 || regional >= len(r.urls) {
		return fmt.Errorf("no regional aggregator at position %d", regional)
	}

	return r.postCBOR(ctx, r.urls[regional]+recvEndpoint, pkg, http.StatusAccepted)
}

func (r *Regionals) Status(ctx context.Context, regional int) (map[string]any, error) {
	if regional < 0 || regional >= len(r.urls) {
		return nil, fmt.Errorf("no regional aggregator at position %d", regional)
	}
	var st map[string]any
	if err := r.getJSON(ctx, r.urls[regional]+statusEndpoint, &st); err != nil {
		return nil, err
	}

	return st, nil
}

// Global is a client of the global aggregator.
type Global struct {
	client
	url string
}

func NewGlobal(url string, cfg Config) *Global {
	return &Global{client: newClient(cfg), url: url}
}

func (g *Global) SendPartial(ctx context.Context, pkg auth.SignedPackage) error {
	return g.postCBOR(ctx, g.url+recvEndpoint, pkg, http.StatusAccepted)
}

func (g *Global) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	var em abe.EncryptedModel
	if err := g.getJSON(ctx, g.url+"/models/encrypted", &em); err != nil {
		return abe.EncryptedModel{}, err
	}

	return em, nil
}

func (g *Global) GlobalModel(ctx context.Context) (fl.GlobalModel, error) {
	body, err := g.processRequest(ctx, http.MethodGet, g.url+"/models/global", "", nil, http.StatusOK)
	if err != nil {
		return fl.GlobalModel{}, err
	}

	return fl.DecodeGlobal(body)
}

func (g *Global) Status(ctx context.Context) (map[string]any, error) {
	var st map[string]any
	if err := g.getJSON(ctx, g.url+statusEndpoint, &st); err != nil {
		return nil, err
	}

	return st, nil
}

// Facilities addresses facilities by id.
type Facilities struct {
	client
	urls map[string]string
}

func NewFacilities(urls map[string]string, cfg Config) *Facilities {
	return &Facilities{client: newClient(cfg), urls: urls}
}

func (f *Facilities) SendGlobal(ctx context.Context, facility string, m fl.GlobalModel) error {
	url, ok := f.urls[facility]
	if !ok {
		return fmt.Errorf("unknown facility %q", facility)
	}

	return f.postCBOR(ctx, url+recvEndpoint, m, http.StatusAccepted)
}
