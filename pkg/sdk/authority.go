package sdk

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/fxamacker/cbor/v2"
)

type FacilityRecord struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
}

type AuthorityStatus struct {
	Initialized bool   `json:"initialized"`
	PublicKey   string `json:"public_key,omitempty"`
	Facilities  uint64 `json:"facilities"`
	HasModel    bool   `json:"has_model"`
}

// Authority is a client of the trusted authority.
type Authority struct {
	client
	url string
}

func NewAuthority(url string, cfg Config) *Authority {
	return &Authority{client: newClient(cfg), url: url}
}

// Setup initializes the authority for numFacilities facilities.
//
// example:
//
//	pk, _ := ta.Setup(ctx, 3)
//	fmt.Println(pk)
func (a *Authority) Setup(ctx context.Context, numFacilities int) (string, error) {
	req := struct {
		NumFacilities int `json:"num_facilities"`
	}{numFacilities}
	var res struct {
		PublicKey string `json:"public_key"`
	}
	if err := a.postJSON(ctx, a.url+"/setup", req, http.StatusOK, &res); err != nil {
		return "", err
	}

	return res.PublicKey, nil
}

// Register registers identity with its proof-of-work nonce and returns the
// issued secret key.
func (a *Authority) Register(ctx context.Context, identity string, nonce uint64, attrs abe.Attributes) (string, error) {
	req := struct {
		Identity   string         `json:"identity"`
		Nonce      uint64         `json:"nonce"`
		Attributes abe.Attributes `json:"attributes"`
	}{identity, nonce, attrs}
	var res struct {
		SecretKey string `json:"secret_key"`
	}
	if err := a.postJSON(ctx, a.url+"/register", req, http.StatusCreated, &res); err != nil {
		return "", err
	}

	return res.SecretKey, nil
}

// EncryptModel publishes the initial model encrypted under policy.
//
// example:
//
//	em, _ := ta.EncryptModel(ctx, w, abe.Policy{"role": "hospital"})
//	fmt.Println(len(em.Ciphertext))
func (a *Authority) EncryptModel(ctx context.Context, w weights.Set, policy abe.Policy) (abe.EncryptedModel, error) {
	req := struct {
		Weights weights.Set `json:"weights"`
		Policy  abe.Policy  `json:"policy"`
	}{w, policy}
	var em abe.EncryptedModel
	if err := a.postJSON(ctx, a.url+"/models", req, http.StatusCreated, &em); err != nil {
		return abe.EncryptedModel{}, err
	}

	return em, nil
}

func (a *Authority) EncryptedModel(ctx context.Context) (abe.EncryptedModel, error) {
	var em abe.EncryptedModel
	if err := a.getJSON(ctx, a.url+"/models/encrypted", &em); err != nil {
		return abe.EncryptedModel{}, err
	}

	return em, nil
}

// Decrypt asks the authority to decrypt the initial model for identity.
func (a *Authority) Decrypt(ctx context.Context, identity string) (weights.Set, error) {
	data, err := json.Marshal(struct {
		Identity string `json:"identity"`
	}{identity})
	if err != nil {
		return nil, err
	}
	body, err := a.processRequest(ctx, http.MethodPost, a.url+"/models/decrypt", CTJSON, data, http.StatusOK)
	if err != nil {
		return nil, err
	}
	var w weights.Set
	if err := cbor.Unmarshal(body, &w); err != nil {
		return nil, err
	}

	return w, nil
}

func (a *Authority) ViewFacility(ctx context.Context, identity string) (FacilityRecord, error) {
	var f FacilityRecord
	if err := a.getJSON(ctx, a.url+"/facilities/"+identity, &f); err != nil {
		return FacilityRecord{}, err
	}

	return f, nil
}

func (a *Authority) Status(ctx context.Context) (AuthorityStatus, error) {
	var st AuthorityStatus
	if err := a.getJSON(ctx, a.url+statusEndpoint, &st); err != nil {
		return AuthorityStatus{}, err
	}

	return st, nil
}
