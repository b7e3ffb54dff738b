// internal/webhook/handler.go

// Package webhook handles payment-provider callbacks: on a verified
// payment it flips the user's premium flag and sends a welcome SMS. It is
// not part of the batch pipeline.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"clinic-scout/internal/common/logger"
	"clinic-scout/internal/models"
)

// SubscriberUpgrader is the slice of the subscriber store the webhook needs.
type SubscriberUpgrader interface {
	FindByEmail(ctx context.Context, email string) (*models.SubscriberRecord, error)
	UpgradeToPremium(ctx context.Context, userID, amount, paymentDate string, isSubscription bool) error
}

// WelcomeSender delivers the post-upgrade welcome message.
type WelcomeSender interface {
	Send(ctx context.Context, entryType, clinicID, userID, phone, body string) (string, error)
}

const welcomeBody = "🎉 You are now a premium Clinic Scout user! You will receive instant SMS alerts."

type Config struct {
	VerificationToken string
}

type Handler struct {
	config      *Config
	subscribers SubscriberUpgrader
	sender      WelcomeSender
	logger      logger.Logger
}

func NewHandler(config *Config, subscribers SubscriberUpgrader, sender WelcomeSender, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		subscribers: subscribers,
		sender:      sender,
		logger:      log.WithFields(map[string]interface{}{"component": "webhook"}),
	}
}

// payment is the provider's form-encoded "data" payload.
type payment struct {
	VerificationToken     string `json:"verification_token"`
	Email                 string `json:"email"`
	Amount                string `json:"amount"`
	Timestamp             string `json:"timestamp"`
	IsSubscriptionPayment bool   `json:"is_subscription_payment"`
}

type response struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP processes one payment callback. Unknown users still get a 200
// so the provider records the delivery as successful.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, response{Error: "Method not allowed"})
		return
	}

	payload := r.FormValue("data")
	if payload == "" {
		writeJSON(w, http.StatusBadRequest, response{Error: "Missing data field"})
		return
	}

	var p payment
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "Invalid JSON"})
		return
	}

	if p.VerificationToken != h.config.VerificationToken {
		h.logger.Warn("webhook token mismatch", map[string]interface{}{"email": p.Email})
		writeJSON(w, http.StatusForbidden, response{Error: "Invalid verification token"})
		return
	}

	ctx := r.Context()

	sub, err := h.subscribers.FindByEmail(ctx, p.Email)
	if err != nil {
		h.logger.Error("webhook user lookup failed", map[string]interface{}{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, response{Error: "Lookup failed"})
		return
	}
	if sub == nil {
		writeJSON(w, http.StatusOK, response{Status: "success", Message: "User not found"})
		return
	}

	if err := h.subscribers.UpgradeToPremium(ctx, sub.ID, p.Amount, p.Timestamp, p.IsSubscriptionPayment); err != nil {
		h.logger.Error("premium upgrade failed", map[string]interface{}{
			"userId": sub.ID, "error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, response{Error: "Upgrade failed"})
		return
	}

	h.logger.Info("subscriber upgraded to premium", map[string]interface{}{"userId": sub.ID})

	if sub.PhoneNumber != "" {
		if _, err := h.sender.Send(ctx, models.NotificationTypeWelcome, "", sub.ID, sub.PhoneNumber, welcomeBody); err != nil {
			// Log but do not fail the webhook.
			h.logger.Error("welcome SMS failed", map[string]interface{}{
				"userId": sub.ID, "error": err.Error(),
			})
		}
	}

	writeJSON(w, http.StatusOK, response{Status: "success", Message: "Payment processed"})
}

func writeJSON(w http.ResponseWriter, code int, body response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
