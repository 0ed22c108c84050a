package api

import (
	"github.com/absmach/dpsshare/pkg/auth"
	apiutil "github.com/absmach/supermq/api/http/util"
)

type receiveReq struct {
	pkg auth.SignedPackage
}

func (req *receiveReq) validate() error {
	if req.pkg.Signer == "" {
		return apiutil.ErrMissingID
	}

	return nil
}

type emptyReq struct{}
