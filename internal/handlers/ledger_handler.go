package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/payment-engine/internal/models"
	"github.com/ruralpay/payment-engine/internal/services"
)

// AccountResponse is the wire form of an account snapshot. Amounts are fixed
// to the display precision so API and CSV output agree.
type AccountResponse struct {
	ClientID  uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

func newAccountResponse(s models.AccountSnapshot) AccountResponse {
	return AccountResponse{
		ClientID:  s.ClientID,
		Available: s.Available.StringFixed(services.DisplayPrecision),
		Held:      s.Held.StringFixed(services.DisplayPrecision),
		Total:     s.Total.StringFixed(services.DisplayPrecision),
		Locked:    s.Locked,
	}
}

// LedgerHandler serves the state left behind by a finished replay. It holds
// a copy of the snapshot and never touches the engine.
type LedgerHandler struct {
	accounts  []AccountResponse
	index     map[uint16]int
	stats     *services.ReplayStats
	validator *services.ValidationHelper
}

func NewLedgerHandler(snapshot []models.AccountSnapshot, stats *services.ReplayStats) *LedgerHandler {
	h := &LedgerHandler{
		accounts:  make([]AccountResponse, 0, len(snapshot)),
		index:     make(map[uint16]int, len(snapshot)),
		stats:     stats,
		validator: services.NewValidationHelper(),
	}
	for i, s := range snapshot {
		h.accounts = append(h.accounts, newAccountResponse(s))
		h.index[s.ClientID] = i
	}
	return h
}

// ListAccounts returns every account ordered by client id.
func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": h.accounts,
	})
}

// GetAccount returns one account by client id.
func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "clientId")
	if err := h.validator.ValidateVar(raw, "required,number"); err != nil {
		services.SendErrorResponse(w, "Invalid client id", http.StatusBadRequest, nil)
		return
	}
	id, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		services.SendErrorResponse(w, "Invalid client id", http.StatusBadRequest, nil)
		return
	}

	i, ok := h.index[uint16(id)]
	if !ok {
		services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"account": h.accounts[i],
	})
}

// GetStats returns the replay counters.
func (h *LedgerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		services.SendErrorResponse(w, "Stats unavailable", http.StatusNotFound, nil)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   h.stats.Summary(),
	})
}

// Health reports liveness.
func (h *LedgerHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
