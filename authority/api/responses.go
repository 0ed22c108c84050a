package api

import (
	"net/http"
	"time"

	"github.com/absmach/dpsshare/authority"
	pkgapi "github.com/absmach/dpsshare/pkg/api"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/weights"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response    = (*setupRes)(nil)
	_ supermq.Response    = (*registerRes)(nil)
	_ supermq.Response    = (*encryptedModelRes)(nil)
	_ supermq.Response    = (*facilityRes)(nil)
	_ supermq.Response    = (*statusRes)(nil)
	_ pkgapi.CBORResponse = (*modelRes)(nil)
)

type setupRes struct {
	PublicKey string `json:"public_key"`
}

func (res setupRes) Code() int {
	return http.StatusOK
}

func (res setupRes) Headers() map[string]string {
	return map[string]string{}
}

func (res setupRes) Empty() bool {
	return false
}

type registerRes struct {
	SecretKey string `json:"secret_key"`
}

func (res registerRes) Code() int {
	return http.StatusCreated
}

func (res registerRes) Headers() map[string]string {
	return map[string]string{}
}

func (res registerRes) Empty() bool {
	return false
}

type encryptedModelRes struct {
	abe.EncryptedModel
	created bool
}

func (res encryptedModelRes) Code() int {
	if res.created {
		return http.StatusCreated
	}

	return http.StatusOK
}

func (res encryptedModelRes) Headers() map[string]string {
	if res.created {
		return map[string]string{
			"Location": "/models/encrypted",
		}
	}

	return map[string]string{}
}

func (res encryptedModelRes) Empty() bool {
	return false
}

type modelRes struct {
	weights weights.Set
}

func (res modelRes) Code() int {
	return http.StatusOK
}

func (res modelRes) Headers() map[string]string {
	return map[string]string{}
}

func (res modelRes) Empty() bool {
	return false
}

func (res modelRes) CBOR() any {
	return res.weights
}

type facilityRes struct {
	ID           string            `json:"id"`
	Attributes   map[string]string `json:"attributes"`
	RegisteredAt time.Time         `json:"registered_at"`
}

func newFacilityRes(f authority.Facility) facilityRes {
	return facilityRes{
		ID:           f.ID,
		Attributes:   f.Attributes,
		RegisteredAt: f.RegisteredAt,
	}
}

func (res facilityRes) Code() int {
	return http.StatusOK
}

func (res facilityRes) Headers() map[string]string {
	return map[string]string{}
}

func (res facilityRes) Empty() bool {
	return false
}

type statusRes struct {
	authority.Status
}

func (res statusRes) Code() int {
	return http.StatusOK
}

func (res statusRes) Headers() map[string]string {
	return map[string]string{}
}

func (res statusRes) Empty() bool {
	return false
}
