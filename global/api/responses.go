package api

import (
	"net/http"

	"github.com/absmach/dpsshare/global"
	pkgapi "github.com/absmach/dpsshare/pkg/api"
	"github.com/absmach/dpsshare/pkg/abe"
	"github.com/absmach/dpsshare/pkg/fl"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response    = (*ackRes)(nil)
	_ supermq.Response    = (*encryptedModelRes)(nil)
	_ supermq.Response    = (*statusRes)(nil)
	_ pkgapi.CBORResponse = (*globalModelRes)(nil)
)

type ackRes struct {
	Status string `json:"status"`
}

func (res ackRes) Code() int {
	return http.StatusAccepted
}

func (res ackRes) Headers() map[string]string {
	return map[string]string{}
}

func (res ackRes) Empty() bool {
	return false
}

type encryptedModelRes struct {
	abe.EncryptedModel
}

func (res encryptedModelRes) Code() int {
	return http.StatusOK
}

func (res encryptedModelRes) Headers() map[string]string {
	return map[string]string{}
}

func (res encryptedModelRes) Empty() bool {
	return false
}

type globalModelRes struct {
	model fl.GlobalModel
}

func (res globalModelRes) Code() int {
	return http.StatusOK
}

func (res globalModelRes) Headers() map[string]string {
	return map[string]string{}
}

func (res globalModelRes) Empty() bool {
	return false
}

func (res globalModelRes) CBOR() any {
	return res.model
}

type statusRes struct {
	global.Status
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
