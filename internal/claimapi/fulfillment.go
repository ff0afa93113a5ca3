package claimapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/claimflow/internal/fulfillment"
)

func (a *API) handleGetFulfillment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, ok, err := a.svc.GetFulfillment(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	total, err := a.svc.TotalCost(r.Context(), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"fulfillment": f,
		"total_cost":  total,
	})
}

type advanceRequest struct {
	Status fulfillment.Status `json:"status"`
}

func (a *API) handleAdvanceFulfillment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	if err := a.svc.AdvanceFulfillment(r.Context(), id, req.Status); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (a *API) handleExcessPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.svc.RecordExcessPayment(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(fulfillment.StatusExcessPaid)})
}

type repairCostRequest struct {
	CostType    string `json:"cost_type"`
	Description string `json:"description,omitempty"`
	Amount      int64  `json:"amount"`
}

func (a *API) handleAddRepairCost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req repairCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
		return
	}

	rc, err := a.svc.AddRepairCost(r.Context(), id, req.CostType, req.Description, req.Amount)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, rc)
}

type quoteRequest struct {
	Amount int64 `json:"amount"`
}

func (a *API) handleSubmitQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Amount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
		return
	}

	if err := a.svc.SubmitQuote(r.Context(), id, req.Amount); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(fulfillment.StatusQuotePending)})
}

func (a *API) handleApproveQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.svc.ApproveQuote(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(fulfillment.StatusQuoteApproved)})
}

type berRequest struct {
	Type             fulfillment.Type `json:"type"`
	SettlementAmount int64            `json:"settlement_amount"`
	Reason           string           `json:"reason,omitempty"`
}

func (a *API) handleSettleBER(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req berRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Type != fulfillment.TypeBERCash && req.Type != fulfillment.TypeBERVoucher {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type must be ber_cash or ber_voucher"})
		return
	}
	if req.SettlementAmount <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "settlement_amount must be positive"})
		return
	}

	if err := a.svc.SettleBER(r.Context(), id, req.Type, req.SettlementAmount, req.Reason); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(req.Type)})
}
