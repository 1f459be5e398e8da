package gate

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lunaria/entitlement/pkg/billing"
	"github.com/lunaria/entitlement/pkg/entitlement"
	"github.com/lunaria/entitlement/pkg/logger"
	"github.com/lunaria/entitlement/pkg/usage"
)

// maxWebhookBody caps webhook payload reads. Paddle payloads are a few KB.
const maxWebhookBody = 1 << 20

type handler struct {
	svc    entitlement.Service
	syncer *billing.Syncer
	log    *slog.Logger
}

type decisionResponse struct {
	Allowed   bool   `json:"allowed"`
	Remaining int64  `json:"remaining"`
	Reason    string `json:"reason,omitempty"`
}

type featureUsageResponse struct {
	Limit     int64 `json:"limit"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
	CanUse    bool  `json:"can_use"`
}

type entitlementResponse struct {
	UserID         string                          `json:"user_id"`
	TierID         string                          `json:"tier_id"`
	PeriodStart    time.Time                       `json:"period_start"`
	PeriodEnd      time.Time                       `json:"period_end"`
	Features       map[string]featureUsageResponse `json:"features"`
	Degraded       bool                            `json:"degraded"`
	DegradedReason string                          `json:"degraded_reason,omitempty"`
	ResolvedAt     time.Time                       `json:"resolved_at"`
}

type useFeatureRequest struct {
	IdempotencyKey string            `json:"idempotency_key"`
	Metadata       map[string]string `json:"metadata"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) getEntitlement(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	ent, err := h.svc.GetEntitlement(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "failed to resolve entitlement", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntitlementResponse(ent))
}

func (h *handler) checkAccess(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	feature, ok := h.pathFeature(w, r)
	if !ok {
		return
	}

	decision, err := h.svc.CheckAccess(r.Context(), userID, feature)
	if err != nil {
		h.serverError(w, r, "access check failed", err)
		return
	}

	writeJSON(w, http.StatusOK, toDecisionResponse(decision))
}

func (h *handler) useFeature(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}
	feature, ok := h.pathFeature(w, r)
	if !ok {
		return
	}

	var req useFeatureRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
			return
		}
	}

	var opts []entitlement.RecordOption
	if req.IdempotencyKey != "" {
		opts = append(opts, entitlement.WithIdempotencyKey(req.IdempotencyKey))
	}
	if len(req.Metadata) > 0 {
		opts = append(opts, entitlement.WithMetadata(req.Metadata))
	}

	decision, err := h.svc.UseFeature(r.Context(), userID, feature, opts...)
	if err != nil && !errors.Is(err, entitlement.ErrRecordingFailed) {
		h.serverError(w, r, "feature use failed", err)
		return
	}
	// A lost usage write still approved the action; the client gets the
	// decision it was granted.

	writeJSON(w, http.StatusOK, toDecisionResponse(decision))
}

func (h *handler) billingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable payload"})
		return
	}

	err = h.syncer.HandleWebhook(r.Context(), payload, r.Header.Get("Paddle-Signature"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)

	case errors.Is(err, billing.ErrWebhookVerificationFailed),
		errors.Is(err, billing.ErrInvalidWebhook),
		errors.Is(err, billing.ErrInvalidUserID):
		// Malformed or forged deliveries are rejected permanently; a 4xx
		// stops provider redelivery.
		h.log.WarnContext(r.Context(), "rejected billing webhook",
			logger.Component("gate"),
			logger.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid webhook"})

	default:
		// Store failures are transient; a 5xx makes the provider redeliver.
		h.serverError(w, r, "webhook processing failed", err)
	}
}

func (h *handler) pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return uuid.Nil, false
	}
	return userID, true
}

func (h *handler) pathFeature(w http.ResponseWriter, r *http.Request) (usage.Feature, bool) {
	feature := usage.Feature(chi.URLParam(r, "feature"))
	if !feature.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown feature"})
		return "", false
	}
	return feature, true
}

func (h *handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.ErrorContext(r.Context(), msg,
		logger.Component("gate"),
		logger.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toDecisionResponse(d entitlement.Decision) decisionResponse {
	return decisionResponse{
		Allowed:   d.Allowed,
		Remaining: d.Remaining,
		Reason:    string(d.Reason),
	}
}

func toEntitlementResponse(ent *entitlement.Entitlement) entitlementResponse {
	features := make(map[string]featureUsageResponse, len(ent.Features))
	for f, fu := range ent.Features {
		features[f.String()] = featureUsageResponse{
			Limit:     fu.Limit,
			Used:      fu.Used,
			Remaining: fu.Remaining,
			CanUse:    fu.CanUse,
		}
	}
	return entitlementResponse{
		UserID:         ent.UserID.String(),
		TierID:         string(ent.TierID),
		PeriodStart:    ent.PeriodStart,
		PeriodEnd:      ent.PeriodEnd,
		Features:       features,
		Degraded:       ent.Degraded,
		DegradedReason: string(ent.DegradedReason),
		ResolvedAt:     ent.ResolvedAt,
	}
}
