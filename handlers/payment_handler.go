package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ferreirogomes/fraciona/ledger"

	"github.com/go-chi/chi/v5"
)

// PaymentHandler lida com requisições HTTP do token de pagamento.
type PaymentHandler struct {
	Token *ledger.TokenLedger
}

// NewPaymentHandler cria uma nova instância do handler de pagamento.
func NewPaymentHandler(token *ledger.TokenLedger) *PaymentHandler {
	return &PaymentHandler{Token: token}
}

// Faucet credita o valor fixo de demonstração ao titular.
// POST /payment/faucet
func (h *PaymentHandler) Faucet(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		HolderID string `json:"holder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := h.Token.Faucet(requestBody.HolderID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder_id": requestBody.HolderID,
		"balance":   balance,
	})
}

// Approve define a allowance de um gastador (tipicamente a custódia de um
// ativo) em nome do dono dos fundos.
// POST /payment/approve
func (h *PaymentHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		OwnerID   string `json:"owner_id"`
		SpenderID string `json:"spender_id"`
		Amount    uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Token.Approve(requestBody.OwnerID, requestBody.SpenderID, requestBody.Amount); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"owner_id":   requestBody.OwnerID,
		"spender_id": requestBody.SpenderID,
		"amount":     requestBody.Amount,
	})
}

// GetBalance retorna o saldo do titular no token de pagamento.
// GET /payment/balance/{holder}
func (h *PaymentHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	holder := chi.URLParam(r, "holder")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder_id": holder,
		"balance":   h.Token.BalanceOf(holder),
	})
}

// GetAllowance retorna quanto o gastador ainda pode usar em nome do dono.
// GET /payment/allowance/{owner}/{spender}
func (h *PaymentHandler) GetAllowance(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	spender := chi.URLParam(r, "spender")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"owner_id":   owner,
		"spender_id": spender,
		"allowance":  h.Token.Allowance(owner, spender),
	})
}
