// Package claimapi exposes the claims engine over HTTP.
package claimapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/claimflow/internal/claim"
	"github.com/linnemanlabs/claimflow/internal/fulfillment"
)

// ClaimService defines the business operations claimapi needs.
type ClaimService interface {
	Submit(ctx context.Context, req *claim.SubmitRequest) (*claim.SubmitResult, error)
	Get(ctx context.Context, id string) (*claim.Claim, bool, error)
	History(ctx context.Context, claimID string) ([]claim.HistoryEntry, error)
	UploadEvidence(ctx context.Context, claimID string, docType claim.EvidenceType, content io.Reader) (*claim.UploadResult, error)
	ManualTransition(ctx context.Context, claimID string, target claim.Status, note string) error
	Overdue(ctx context.Context) ([]claim.OverdueClaim, error)

	GetFulfillment(ctx context.Context, claimID string) (*fulfillment.Fulfillment, bool, error)
	AdvanceFulfillment(ctx context.Context, claimID string, target fulfillment.Status) error
	RecordExcessPayment(ctx context.Context, claimID string) error
	AddRepairCost(ctx context.Context, claimID, costType, description string, amount int64) (*fulfillment.RepairCost, error)
	SubmitQuote(ctx context.Context, claimID string, amount int64) error
	ApproveQuote(ctx context.Context, claimID string) error
	SettleBER(ctx context.Context, claimID string, berType fulfillment.Type, settlement int64, reason string) error
	TotalCost(ctx context.Context, claimID string) (int64, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    ClaimService
}

// New creates a new API handler.
func New(logger log.Logger, svc ClaimService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("claim service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/claims", a.handleSubmitClaim)
		r.Get("/claims/overdue", a.handleOverdue)
		r.Route("/claims/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetClaim)
			r.Get("/history", a.handleHistory)
			r.Post("/evidence", a.handleUploadEvidence)
			r.Post("/transition", a.handleTransition)
			r.Get("/fulfillment", a.handleGetFulfillment)
			r.Post("/fulfillment/advance", a.handleAdvanceFulfillment)
			r.Post("/fulfillment/excess-payment", a.handleExcessPayment)
			r.Post("/fulfillment/repair-costs", a.handleAddRepairCost)
			r.Post("/fulfillment/quote", a.handleSubmitQuote)
			r.Post("/fulfillment/quote/approve", a.handleApproveQuote)
			r.Post("/fulfillment/ber", a.handleSettleBER)
		})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to HTTP status codes with a JSON body.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidClaim       *claim.InvalidTransitionError
		invalidFulfillment *fulfillment.InvalidTransitionError
	)
	switch {
	case errors.Is(err, claim.ErrClaimNotFound), errors.Is(err, claim.ErrFulfillmentNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &invalidClaim), errors.As(err, &invalidFulfillment),
		errors.Is(err, claim.ErrTransitionConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		a.logger.Error(r.Context(), err, "request failed",
			"method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
