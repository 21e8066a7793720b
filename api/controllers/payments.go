package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mhizterpaul/cartlink-backend/api/responses"
	"github.com/mhizterpaul/cartlink-backend/api/validators"
	"github.com/mhizterpaul/cartlink-backend/internal/payments"
	"github.com/mhizterpaul/cartlink-backend/pkg/enums"
	pkgerrors "github.com/mhizterpaul/cartlink-backend/pkg/errors"
	"github.com/mhizterpaul/cartlink-backend/pkg/logger"
)

type initiatePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
	Method  string `json:"method" validate:"required"`
	TxRef   string `json:"tx_ref" validate:"omitempty,max=128"`
}

// InitiatePayment opens a pending payment for an order.
func InitiatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		orderID, _ := uuid.Parse(req.OrderID)
		payment, err := svc.Initiate(r.Context(), payments.InitiatePaymentInput{
			OrderID: orderID,
			Method:  method,
			TxRef:   req.TxRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}
