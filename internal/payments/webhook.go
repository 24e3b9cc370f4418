package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-commerce/storefront/internal/platform/httpx"
	"github.com/odyssey-commerce/storefront/internal/promotions"
	"github.com/odyssey-commerce/storefront/internal/shared"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, body)).
const SignatureHeader = "X-Signature"

const webhookScope = "payments.webhook"

// EventLedger remembers processed event ids.
type EventLedger interface {
	Claim(ctx context.Context, scope, key string) error
	Release(ctx context.Context, scope, key string) error
}

// Activator looks up and turns on a paid promo code.
type Activator interface {
	Get(ctx context.Context, promoID int64) (*promotions.PromoCode, error)
	Activate(ctx context.Context, promoID int64) (*promotions.PromoCode, error)
}

type WebhookHandler struct {
	logger    *slog.Logger
	secret    []byte
	ledger    EventLedger
	activator Activator
}

func NewWebhookHandler(logger *slog.Logger, secret string, ledger EventLedger, activator Activator) *WebhookHandler {
	return &WebhookHandler{logger: logger, secret: []byte(secret), ledger: ledger, activator: activator}
}

// Sign returns the signature expected for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (h *WebhookHandler) verify(body []byte, got string) bool {
	if len(h.secret) == 0 {
		return false
	}
	want, err := hex.DecodeString(strings.TrimSpace(got))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, httpx.MaxBodyBytes))
	if err != nil {
		httpx.RespondError(w, h.logger, fmt.Errorf("%w: unreadable body", httpx.ErrValidation))
		return
	}
	if !h.verify(body, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("webhook signature mismatch", slog.String("remote", r.RemoteAddr))
		httpx.Error(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		httpx.RespondError(w, h.logger, fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if err := httpx.Validate(ev); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}

	ctx := r.Context()
	// An unknown promo is answered before the event id is recorded.
	if _, err := h.activator.Get(ctx, ev.PromoID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.ledger.Claim(ctx, webhookScope, ev.EventID); err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			h.logger.Info("webhook replay ignored", slog.String("event_id", ev.EventID))
			httpx.Success(w, map[string]any{"duplicate": true})
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}

	if ev.Status != StatusSuccess {
		h.logger.Info("webhook payment not successful", slog.String("event_id", ev.EventID), slog.String("status", ev.Status))
		httpx.JSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}

	promo, err := h.activator.Activate(ctx, ev.PromoID)
	if err != nil {
		// allow the provider to retry
		if derr := h.ledger.Release(ctx, webhookScope, ev.EventID); derr != nil {
			h.logger.Error("release webhook event", slog.String("event_id", ev.EventID), slog.Any("error", derr))
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.logger.Info("promo activated by payment", slog.String("event_id", ev.EventID), slog.Int64("promo_id", promo.ID))
	httpx.Success(w, map[string]any{"code": promo.Code})
}
