package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/coinledger/internal/infra/logging"
	"github.com/fastprodman/coinledger/internal/repos/accounts"
	"github.com/fastprodman/coinledger/internal/services/ledger"
	"github.com/go-chi/chi/v5"
)

// Ledger is the part of ledger.Service the handlers need.
type Ledger interface {
	Balance(ctx context.Context, id string) (int64, error)
	Work(ctx context.Context, id string) (ledger.WorkResult, error)
	Daily(ctx context.Context, id string) (ledger.DailyResult, error)
	Gamble(ctx context.Context, id string, amount int64) (ledger.GambleResult, error)
	RPS(ctx context.Context, id string, wager int64, choice string) (ledger.RPSResult, error)
	Buy(ctx context.Context, id, item string) (ledger.PurchaseResult, error)
	Inventory(ctx context.Context, id string) (map[string]int64, error)
	Catalog() []ledger.Item
	TopN(ctx context.Context, n int) ([]ledger.Standing, error)
}

var _ Ledger = (*ledger.Service)(nil)

// HandlerProvider wraps a Ledger and exposes HTTP handlers.
type HandlerProvider struct {
	svc Ledger
}

func NewHandler(svc Ledger) *HandlerProvider {
	return &HandlerProvider{svc: svc}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

type errorResponse struct {
	Error     string     `json:"error"`
	Remaining *remaining `json:"remaining,omitempty"`
}

type remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeResult renders a committed result. A persistence failure still
// reports the result, with 202 and persisted=false.
func writeResult(w http.ResponseWriter, r *http.Request, v any, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, envelope{Persisted: true, Data: v})
	case errors.Is(err, accounts.ErrPersistenceFailure):
		logging.FromContext(r.Context()).Warn("result committed but not persisted", "error", err)
		writeJSON(w, http.StatusAccepted, envelope{Persisted: false, Data: v})
	default:
		writeServiceError(w, r, err)
	}
}

type envelope struct {
	Persisted bool `json:"persisted"`
	Data      any  `json:"data"`
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var cdErr *ledger.CooldownError

	switch {
	case errors.As(err, &cdErr):
		rem := ledger.SplitRemaining(cdErr.Remaining)
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error: cdErr.Error(),
			Remaining: &remaining{
				Days:    rem.Days,
				Hours:   rem.Hours,
				Minutes: rem.Minutes,
				Seconds: rem.Seconds,
			},
		})
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, "insufficient funds")
	case errors.Is(err, ledger.ErrUnknownItem):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInvalidWager),
		errors.Is(err, ledger.ErrInvalidChoice),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAccount):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logging.FromContext(r.Context()).Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// accountID reads `{accountId}` from chi routes like:
//
//	GET  /accounts/{accountId}/balance
//	POST /accounts/{accountId}/work
func accountID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "accountId"))
	if id == "" {
		return "", fmt.Errorf("missing accountId")
	}

	return id, nil
}

// decodeBody limits the body size and disallows unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}

		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}

// --- Handlers ---

type balanceResponse struct {
	AccountID string `json:"accountId"`
	Balance   int64  `json:"balance"`
}

// GetBalanceHandler handles GET /accounts/{accountId}/balance
func (h *HandlerProvider) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bal, err := h.svc.Balance(r.Context(), id)
	writeResult(w, r, balanceResponse{AccountID: id, Balance: bal}, err)
}

type workResponse struct {
	Payout  int64 `json:"payout"`
	Balance int64 `json:"balance"`
}

// WorkHandler handles POST /accounts/{accountId}/work
func (h *HandlerProvider) WorkHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Work(r.Context(), id)
	writeResult(w, r, workResponse{Payout: res.Payout, Balance: res.Balance}, err)
}

type dailyResponse struct {
	Reward    int64     `json:"reward"`
	Balance   int64     `json:"balance"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// DailyHandler handles POST /accounts/{accountId}/daily
func (h *HandlerProvider) DailyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Daily(r.Context(), id)
	writeResult(w, r, dailyResponse{Reward: res.Reward, Balance: res.Balance, ClaimedAt: res.ClaimedAt}, err)
}

type gambleRequest struct {
	Amount int64 `json:"amount"`
}

type gambleResponse struct {
	Won     bool  `json:"won"`
	Amount  int64 `json:"amount"`
	Balance int64 `json:"balance"`
}

// GambleHandler handles POST /accounts/{accountId}/gamble
func (h *HandlerProvider) GambleHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req gambleRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Gamble(r.Context(), id, req.Amount)
	writeResult(w, r, gambleResponse{Won: res.Won, Amount: res.Amount, Balance: res.Balance}, err)
}

type rpsRequest struct {
	Wager  int64  `json:"wager"`
	Choice string `json:"choice"`
}

type rpsResponse struct {
	Player  ledger.Choice  `json:"player"`
	House   ledger.Choice  `json:"house"`
	Outcome ledger.Outcome `json:"outcome"`
	Wager   int64          `json:"wager"`
	Payout  int64          `json:"payout"`
	Balance int64          `json:"balance"`
}

// RPSHandler handles POST /accounts/{accountId}/rps
func (h *HandlerProvider) RPSHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req rpsRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.RPS(r.Context(), id, req.Wager, req.Choice)
	writeResult(w, r, rpsResponse{
		Player:  res.Player,
		House:   res.House,
		Outcome: res.Outcome,
		Wager:   res.Wager,
		Payout:  res.Payout,
		Balance: res.Balance,
	}, err)
}

type buyRequest struct {
	Item string `json:"item"`
}

type itemResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

func toItemResponse(it ledger.Item) itemResponse {
	return itemResponse{ID: it.ID, Name: it.Name, Price: it.Price, Description: it.Description}
}

type buyResponse struct {
	Item     itemResponse `json:"item"`
	Quantity int64        `json:"quantity"`
	Balance  int64        `json:"balance"`
}

// BuyHandler handles POST /accounts/{accountId}/buy
func (h *HandlerProvider) BuyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req buyRequest

	err = decodeBody(w, r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Buy(r.Context(), id, req.Item)
	writeResult(w, r, buyResponse{Item: toItemResponse(res.Item), Quantity: res.Quantity, Balance: res.Balance}, err)
}

type inventoryResponse struct {
	AccountID string           `json:"accountId"`
	Items     map[string]int64 `json:"items"`
}

// InventoryHandler handles GET /accounts/{accountId}/inventory
func (h *HandlerProvider) InventoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.svc.Inventory(r.Context(), id)
	writeResult(w, r, inventoryResponse{AccountID: id, Items: inv}, err)
}

// StoreHandler handles GET /store
func (h *HandlerProvider) StoreHandler(w http.ResponseWriter, _ *http.Request) {
	items := h.svc.Catalog()
	out := make([]itemResponse, 0, len(items))

	for _, it := range items {
		out = append(out, toItemResponse(it))
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type standingResponse struct {
	Rank      int    `json:"rank"`
	AccountID string `json:"accountId"`
	Name      string `json:"name"`
	Balance   int64  `json:"balance"`
}

// LeaderboardHandler handles GET /leaderboard?limit=n
func (h *HandlerProvider) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}

		limit = n
	}

	standings, err := h.svc.TopN(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]standingResponse, 0, len(standings))
	for _, s := range standings {
		out = append(out, standingResponse{Rank: s.Rank, AccountID: s.AccountID, Name: s.Name, Balance: s.Balance})
	}

	writeJSON(w, http.StatusOK, map[string]any{"standings": out})
}
