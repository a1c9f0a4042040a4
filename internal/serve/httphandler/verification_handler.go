package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hatchpay/offramp-backend/internal/data"
	"github.com/hatchpay/offramp-backend/internal/serve/httperror"
	"github.com/hatchpay/offramp-backend/internal/serve/httpjson"
	"github.com/hatchpay/offramp-backend/internal/utils"
	"github.com/hatchpay/offramp-backend/internal/verification"
)

// VerificationEngineInterface is the slice of the engine the HTTP layer depends on.
type VerificationEngineInterface interface {
	StartVerification(ctx context.Context, reference string, payload verification.VerificationPayload) (*verification.Schedule, error)
	GetStatus(ctx context.Context, reference string) (*verification.StatusSnapshot, error)
	Stats() verification.Stats
}

type VerificationHandler struct {
	Engine VerificationEngineInterface
	Models *data.Models
}

// StartVerificationRequest mirrors the engine's VerificationPayload on the wire.
type StartVerificationRequest struct {
	SenderName    string `json:"senderName"`
	SenderPhone   string `json:"senderPhone"`
	SenderEmail   string `json:"senderEmail"`
	Currency      string `json:"currency"`
	ProviderTxID  string `json:"providerTxId"`
	PaymentType   string `json:"paymentType"`
	Amount        string `json:"amount"`
	SuccessURL    string `json:"successUrl"`
	PaymentLinkID string `json:"paymentLinkId"`
}

type StartVerificationResponse struct {
	Phase          string `json:"phase"`
	PollIntervalMs int64  `json:"pollIntervalMs"`
	MaxDurationMs  int64  `json:"maxDurationMs"`
}

func (req StartVerificationRequest) validate() map[string]any {
	extras := map[string]any{}

	if req.ProviderTxID == "" {
		extras["providerTxId"] = "providerTxId is required"
	}
	if err := utils.ValidateAmount(req.Amount); err != nil {
		extras["amount"] = err.Error()
	}
	if err := data.Currency(req.Currency).Validate(); err != nil {
		extras["currency"] = err.Error()
	}
	if req.PaymentType != "" {
		if err := data.PaymentMethod(req.PaymentType).Validate(); err != nil {
			extras["paymentType"] = err.Error()
		}
	}
	if req.SenderEmail != "" {
		if err := utils.ValidateEmail(req.SenderEmail); err != nil {
			extras["senderEmail"] = err.Error()
		}
	}
	if req.SenderPhone != "" {
		if err := utils.ValidatePhoneNumber(req.SenderPhone); err != nil {
			extras["senderPhone"] = err.Error()
		}
	}
	if req.SuccessURL != "" {
		if err := utils.ValidateURL(req.SuccessURL); err != nil {
			extras["successUrl"] = err.Error()
		}
	}

	if len(extras) == 0 {
		return nil
	}
	return extras
}

// PostVerification starts the fast-poll verification phase for a transaction.
func (h VerificationHandler) PostVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "reference")

	var req StartVerificationRequest
	if err := httpjson.DecodeJSON(r, &req); err != nil {
		httperror.BadRequest("The request was invalid in some way.", err, nil).Render(w)
		return
	}

	if extras := req.validate(); extras != nil {
		httperror.BadRequest("Request invalid", nil, extras).Render(w)
		return
	}

	schedule, err := h.Engine.StartVerification(ctx, reference, verification.VerificationPayload{
		SenderName:    req.SenderName,
		SenderPhone:   req.SenderPhone,
		SenderEmail:   req.SenderEmail,
		Currency:      req.Currency,
		ProviderTxID:  req.ProviderTxID,
		PaymentType:   req.PaymentType,
		Amount:        req.Amount,
		SuccessURL:    req.SuccessURL,
		PaymentLinkID: req.PaymentLinkID,
	})
	if err != nil {
		renderEngineError(ctx, w, err)
		return
	}

	httpjson.Render(w, StartVerificationResponse{
		Phase:          schedule.Phase,
		PollIntervalMs: schedule.PollInterval.Milliseconds(),
		MaxDurationMs:  schedule.MaxDuration.Milliseconds(),
	})
}

// GetVerification returns the read-only status snapshot for a transaction.
func (h VerificationHandler) GetVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "reference")

	snapshot, err := h.Engine.GetStatus(ctx, reference)
	if err != nil {
		renderEngineError(ctx, w, err)
		return
	}

	httpjson.Render(w, snapshot)
}

type auditEventResponse struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	Changes       map[string]any `json:"changes,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// GetVerificationAudit returns the audit trail for a transaction, oldest first.
func (h VerificationHandler) GetVerificationAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "reference")

	tx, err := h.Models.Transactions.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			httperror.NotFound("", err, nil).Render(w)
			return
		}
		httperror.InternalError(ctx, "", err, nil).Render(w)
		return
	}

	events, err := h.Models.AuditEvents.GetByEntityID(ctx, data.AuditEntityTransaction, tx.ID)
	if err != nil {
		httperror.InternalError(ctx, "", err, nil).Render(w)
		return
	}

	response := make([]auditEventResponse, 0, len(events))
	for _, event := range events {
		item := auditEventResponse{
			ID:            event.ID,
			Action:        string(event.Action),
			CorrelationID: event.CorrelationID.String,
			CreatedAt:     event.CreatedAt,
		}
		_ = unmarshalJSONMap(event.Changes, &item.Changes)
		_ = unmarshalJSONMap(event.Metadata, &item.Metadata)
		response = append(response, item)
	}

	httpjson.Render(w, response)
}

func unmarshalJSONMap(raw json.RawMessage, dst *map[string]any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func renderEngineError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, verification.ErrNotFound):
		httperror.NotFound("", err, nil).Render(w)
	case errors.Is(err, verification.ErrInvalidState),
		errors.Is(err, verification.ErrCurrencyMismatch),
		errors.Is(err, verification.ErrAmountMismatch):
		httperror.BadRequest(err.Error(), err, nil).Render(w)
	default:
		httperror.InternalError(ctx, "", err, nil).Render(w)
	}
}
