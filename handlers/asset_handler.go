package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ferreirogomes/fraciona/projection"
	"github.com/ferreirogomes/fraciona/services"

	"github.com/go-chi/chi/v5"
)

// AssetHandler lida com requisições HTTP do registro e dos ativos.
type AssetHandler struct {
	Service    *services.RegistryService
	Projection *projection.HolderProjection
}

// NewAssetHandler cria uma nova instância do handler de ativos.
func NewAssetHandler(s *services.RegistryService, p *projection.HolderProjection) *AssetHandler {
	return &AssetHandler{Service: s, Projection: p}
}

// CreateAsset cria um novo ativo tokenizado.
// POST /assets
func (h *AssetHandler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		Name            string `json:"name"`
		Symbol          string `json:"symbol"`
		MaxSupply       uint64 `json:"max_supply"`
		PricePerToken   uint64 `json:"price_per_token"`
		PaymentLedgerID string `json:"payment_ledger_id"`
		AdminID         string `json:"admin_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	asset, err := h.Service.CreateAsset(requestBody.Name, requestBody.Symbol,
		requestBody.MaxSupply, requestBody.PricePerToken,
		requestBody.PaymentLedgerID, requestBody.AdminID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(asset)
}

// ListAssets lista o diretório de ativos criados.
// GET /assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.Service.ListAssets()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assets)
}

// GetAssetByID retorna a fotografia de leitura completa de um ativo.
// GET /assets/{id}
func (h *AssetHandler) GetAssetByID(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")

	assetLedger, found := h.Service.Ledger(assetID)
	if !found {
		http.Error(w, "Ativo não encontrado", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(assetLedger.Snapshot())
}

// GetHolderBalance retorna o saldo de cotas e o status de voto de um titular.
// GET /assets/{id}/balance/{holder}
func (h *AssetHandler) GetHolderBalance(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")
	holder := chi.URLParam(r, "holder")

	assetLedger, found := h.Service.Ledger(assetID)
	if !found {
		http.Error(w, "Ativo não encontrado", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder_id": holder,
		"balance":   assetLedger.BalanceOf(holder),
		"has_voted": assetLedger.HasVoted(holder),
	})
}

// GetHolders retorna o ranking de titulares reconstruído pela projeção.
// GET /assets/{id}/holders
func (h *AssetHandler) GetHolders(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")

	if _, found := h.Service.Ledger(assetID); !found {
		http.Error(w, "Ativo não encontrado", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Projection.Ranking(assetID))
}

// Buy compra cotas do ativo em nome do titular informado.
// POST /assets/{id}/buy
func (h *AssetHandler) Buy(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")

	var requestBody struct {
		HolderID string `json:"holder_id"`
		Amount   uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cost, err := h.Service.Buy(assetID, requestBody.HolderID, requestBody.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder_id": requestBody.HolderID,
		"amount":    requestBody.Amount,
		"cost":      cost,
	})
}

// Vote registra o voto do titular pela venda do ativo.
// POST /assets/{id}/vote
func (h *AssetHandler) Vote(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")

	var requestBody struct {
		HolderID string `json:"holder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	approved, err := h.Service.VoteForSale(assetID, requestBody.HolderID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder_id":     requestBody.HolderID,
		"sale_approved": approved,
	})
}

// Distribute deposita o valor da venda e fixa o preço de resgate.
// POST /assets/{id}/distribute
func (h *AssetHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")

	var requestBody struct {
		CallerID    string `json:"caller_id"`
		TotalAmount uint64 `json:"total_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	redeemPrice, err := h.Service.DistributeProceeds(assetID, requestBody.CallerID, requestBody.TotalAmount)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"total_amount":       requestBody.TotalAmount,
		"final_redeem_price": redeemPrice,
	})
}

// Redeem paga o resgate pro-rata do titular e queima suas cotas.
// POST /assets/{id}/redeem
func (h *AssetHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	assetID := chi.URLParam(r, "id")

	var requestBody struct {
		HolderID string `json:"holder_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	payout, err := h.Service.Redeem(assetID, requestBody.HolderID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"holder_id": requestBody.HolderID,
		"payout":    payout,
	})
}
