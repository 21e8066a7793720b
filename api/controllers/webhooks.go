package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/mhizterpaul/cartlink-backend/api/responses"
	"github.com/mhizterpaul/cartlink-backend/api/validators"
	"github.com/mhizterpaul/cartlink-backend/internal/payments"
	"github.com/mhizterpaul/cartlink-backend/pkg/config"
	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

const gatewaySignatureHeader = "X-Gateway-Signature"

type gatewayCallbackRequest struct {
	TxRef      string `json:"tx_ref" validate:"required,max=128"`
	GatewayRef string `json:"gateway_ref" validate:"omitempty,max=128"`
	Outcome    string `json:"outcome" validate:"required,oneof=success failure"`
}

// GatewayCallback absorbs the payment gateway's terminal notification. The
// handler acknowledges with 200 even for unknown tx refs so the gateway does
// not retry forever.
func GatewayCallback(svc payments.Service, cfg config.GatewayConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.WebhookSecret != "" {
			provided := r.Header.Get(gatewaySignatureHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.WebhookSecret)) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid gateway signature"))
				return
			}
		}

		var req gatewayCallbackRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := logg.WithTxRef(r.Context(), req.TxRef)
		var err error
		switch req.Outcome {
		case "success":
			err = svc.HandleGatewaySuccess(ctx, req.TxRef, req.GatewayRef)
		case "failure":
			err = svc.HandleGatewayFailure(ctx, req.TxRef)
		}
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "acknowledged"})
	}
}
