package handlers

import (
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"salonq/config"
	"salonq/utils"
)

// VerifyHandler implements the account verification flow: a numeric code
// is issued, bcrypt-hashed onto the user record and checked on confirm.
// Actually delivering the code (mail/SMS) is left to a notification hook.
type VerifyHandler struct {
	app *pocketbase.PocketBase
	cfg *config.Config
}

func NewVerifyHandler(app *pocketbase.PocketBase, cfg *config.Config) *VerifyHandler {
	return &VerifyHandler{app: app, cfg: cfg}
}

// RequestOTP handles POST /api/verify/request.
func (h *VerifyHandler) RequestOTP(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	code, err := utils.GenerateOTP(h.cfg.OTPLength)
	if err != nil {
		return apis.NewBadRequestError("Failed to generate code", err)
	}

	hash, err := utils.HashOTP(code)
	if err != nil {
		return apis.NewBadRequestError("Failed to generate code", err)
	}

	record, err := h.app.FindRecordById("users", e.Auth.Id)
	if err != nil {
		return apis.NewNotFoundError("User not found", err)
	}

	record.Set("otp_hash", hash)
	record.Set("otp_expiry", time.Now().Add(h.cfg.OTPExpiry))
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to store code", err)
	}

	response := map[string]any{"message": "Verification code sent"}
	if h.cfg.Environment == "development" {
		// Surfaced only in development where no sender is wired.
		response["code"] = code
	}
	return e.JSON(http.StatusOK, response)
}

// ConfirmOTP handles POST /api/verify/confirm.
func (h *VerifyHandler) ConfirmOTP(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	record, err := h.app.FindRecordById("users", e.Auth.Id)
	if err != nil {
		return apis.NewNotFoundError("User not found", err)
	}

	hash := record.GetString("otp_hash")
	expiry := record.GetDateTime("otp_expiry").Time()
	if hash == "" || expiry.Before(time.Now()) {
		return apis.NewBadRequestError("Code expired, request a new one", nil)
	}
	if !utils.CheckOTP(hash, req.Code) {
		return apis.NewBadRequestError("Invalid code", nil)
	}

	record.Set("verified_account", true)
	record.Set("otp_hash", "")
	if err := h.app.Save(record); err != nil {
		return apis.NewBadRequestError("Failed to update user", err)
	}

	return e.JSON(http.StatusOK, map[string]string{"message": "Account verified"})
}
