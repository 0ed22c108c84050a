package api

import (
	"net/http"

	"github.com/absmach/dpsshare/facility"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*ackRes)(nil)
	_ supermq.Response = (*statusRes)(nil)
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

type statusRes struct {
	facility.Status
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
