package routes

import (
	"encoding/json"
	"errors"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/services"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/golog"
	"github.com/kataras/iris/v12"
)

type STKPushInput struct {
	PhoneNumber string  `json:"phone_number" validate:"required"`
	Amount      float64 `json:"amount" validate:"gte=0"`
	ListingID   string  `json:"listing_id"`
}

// InitiateSTKPush - POST /payments/mpesa/stk-push
func InitiateSTKPush(ctx iris.Context) {
	var input STKPushInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	if input.Amount == 0 && input.ListingID == "" {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Missing required fields", ctx)
		return
	}

	result, err := services.Payments.InitiateSTKPush(ctx.Request().Context(), services.InitiatePayment{
		UserID:      ctx.Values().GetString("userID"),
		PhoneNumber: input.PhoneNumber,
		Amount:      input.Amount,
		ListingID:   input.ListingID,
	})
	switch {
	case errors.Is(err, utils.ErrInvalidPhone):
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid phone number. Use 07XXXXXXXX or 2547XXXXXXXX", ctx)
		return
	case errors.Is(err, services.ErrInvalidAmount):
		utils.CreateError(iris.StatusBadRequest, "Validation Error", err.Error(), ctx)
		return
	case errors.Is(err, services.ErrListingNotFound):
		utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
		return
	case errors.Is(err, services.ErrNotListingOwner):
		utils.CreateError(iris.StatusForbidden, "Forbidden", "You do not own this listing", ctx)
		return
	case errors.Is(err, services.ErrListingNotDraft):
		utils.CreateError(iris.StatusConflict, "Conflict", "This listing is already published", ctx)
		return
	case errors.Is(err, services.ErrProviderUnavailable):
		golog.Errorf("stk push: %v", err)
		ctx.StopWithJSON(iris.StatusBadGateway, iris.Map{
			"success": false,
			"error":   "M-Pesa is unavailable, please try again shortly",
		})
		return
	case err != nil:
		utils.InternalError(ctx, err)
		return
	}

	if !result.Accepted {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"success":        false,
			"error":          result.Message,
			"transaction_id": result.Transaction.ID,
		})
		return
	}

	ctx.JSON(iris.Map{
		"success":             true,
		"message":             "STK push sent successfully. Check your phone to complete the payment.",
		"checkout_request_id": result.Transaction.CheckoutRequestID,
		"transaction_id":      result.Transaction.ID,
	})
}

// MpesaCallback - POST /payments/mpesa/callback, called by Safaricom.
func MpesaCallback(ctx iris.Context) {
	raw, err := ctx.GetBody()
	if err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid callback payload", ctx)
		return
	}
	var payload services.CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid callback payload", ctx)
		return
	}

	_, err = services.Payments.HandleCallback(ctx.Request().Context(), payload, raw)
	switch {
	case errors.Is(err, services.ErrInvalidCallback):
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Invalid callback structure", ctx)
		return
	case errors.Is(err, services.ErrTransactionNotFound):
		utils.CreateError(iris.StatusNotFound, "Not Found", "Transaction not found", ctx)
		return
	case errors.Is(err, services.ErrCallbackInProgress):
		utils.CreateError(iris.StatusConflict, "Conflict", "Callback already being processed", ctx)
		return
	case err != nil:
		utils.InternalError(ctx, err)
		return
	}

	ctx.JSON(iris.Map{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// GetPayment - GET /payments/{id}, the caller's own transaction.
func GetPayment(ctx iris.Context) {
	tx, err := services.Payments.FindTransaction(ctx.Request().Context(), ctx.Values().GetString("userID"), ctx.Params().Get("id"))
	if errors.Is(err, services.ErrTransactionNotFound) {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Transaction not found", ctx)
		return
	}
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}
	ctx.JSON(tx)
}
