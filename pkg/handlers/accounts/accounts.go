package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/chris/live-economy/pkg/economy"
	"github.com/chris/live-economy/pkg/ledger"
	"github.com/chris/live-economy/pkg/models"
	"github.com/chris/live-economy/pkg/storage"
	"github.com/go-chi/chi/v5"
)

// Economy is the optimistic operation surface the handlers drive.
type Economy interface {
	View(ctx context.Context, accountID string) (models.Account, error)
	SpendCoins(ctx context.Context, accountID string, amount int64, itemID string) (models.Account, bool, error)
	BuyVIP(ctx context.Context, accountID string, pkg models.VIPPackage) (models.Account, bool, error)
	ExchangeDiamonds(ctx context.Context, accountID string, amount int64) (models.Account, bool, error)
	AgencyTransfer(ctx context.Context, agentID, targetID string, amount int64) (models.Account, bool, error)
	UpdateProfile(ctx context.Context, accountID string, patch models.Patch) (models.Account, bool, error)
}

var _ Economy = (*economy.Session)(nil)

// AccountsHandler holds the dependencies for account-related handlers.
type AccountsHandler struct {
	Store   storage.AccountStore
	Economy Economy
}

// NewAccountsHandler creates a new AccountsHandler.
func NewAccountsHandler(store storage.AccountStore, econ Economy) *AccountsHandler {
	return &AccountsHandler{Store: store, Economy: econ}
}

// Routes mounts the account endpoints on r.
func (h *AccountsHandler) Routes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccount)
		r.Get("/", h.ListAccounts)
		r.Route("/{userId}", func(r chi.Router) {
			r.Get("/", h.GetAccount)
			r.Delete("/", h.DeleteAccount)
			r.Post("/spend", h.SpendCoins)
			r.Post("/vip", h.BuyVIP)
			r.Post("/exchange", h.ExchangeDiamonds)
			r.Post("/agency-transfer", h.AgencyTransfer)
			r.Patch("/profile", h.UpdateProfile)
		})
	})
}

// AccountView is an account as returned by the API, with derived levels.
type AccountView struct {
	models.Account
	WealthLevel   int `json:"wealth_level"`
	RechargeLevel int `json:"recharge_level"`
}

// OperationResult is the response of every currency operation.
type OperationResult struct {
	Applied bool        `json:"applied"`
	Account AccountView `json:"account"`
}

// NewAccount is the request body for CreateAccount.
type NewAccount struct {
	UserId   string `json:"user_id"`
	Name     string `json:"name"`
	IsAgency bool   `json:"is_agency"`
}

// SpendRequest is the request body for SpendCoins.
type SpendRequest struct {
	Amount int64  `json:"amount"`
	ItemId string `json:"item_id,omitempty"`
}

// ExchangeRequest is the request body for ExchangeDiamonds.
type ExchangeRequest struct {
	Amount int64 `json:"amount"`
}

// TransferRequest is the request body for AgencyTransfer.
type TransferRequest struct {
	TargetId string `json:"target_id"`
	Amount   int64  `json:"amount"`
}

func toView(a models.Account) AccountView {
	return AccountView{
		Account:       a,
		WealthLevel:   ledger.Level(a.Wealth),
		RechargeLevel: ledger.Level(a.RechargePoints),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		http.Error(w, fmt.Sprintf("Failed to write response: %v", err), http.StatusInternalServerError)
	}
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrAccountNotFound) {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	http.Error(w, fmt.Sprintf("Failed to load account: %v", err), http.StatusInternalServerError)
}

// writeOperation reports an entry point's outcome. A rejected operation
// changes nothing and is reported as 422.
func writeOperation(w http.ResponseWriter, account models.Account, applied bool, err error) {
	if err != nil {
		if errors.Is(err, economy.ErrNotAgency) {
			http.Error(w, "Account is not an agency", http.StatusForbidden)
			return
		}
		writeLookupError(w, err)
		return
	}
	status := http.StatusOK
	if !applied {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, OperationResult{Applied: applied, Account: toView(account)})
}

// CreateAccount handles the logic for creating a new account with zero balances.
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body NewAccount
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if body.UserId == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	created, err := h.Store.CreateAccount(r.Context(), &models.Account{
		UserId:   body.UserId,
		Name:     body.Name,
		IsAgency: body.IsAgency,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			http.Error(w, "Account for this user already exists", http.StatusConflict)
		} else {
			http.Error(w, fmt.Sprintf("Failed to create account: %v", err), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, toView(*created))
}

// ListAccounts handles the logic for retrieving all stored accounts, newest first.
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Store.ListAccounts(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to retrieve accounts: %v", err), http.StatusInternalServerError)
		return
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].CreatedAt.After(accounts[j].CreatedAt)
	})

	views := make([]AccountView, len(accounts))
	for i, a := range accounts {
		views[i] = toView(a)
	}
	writeJSON(w, http.StatusOK, views)
}

// GetAccount returns the account as this process sees it, pending changes included.
func (h *AccountsHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.Economy.View(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toView(account))
}

// DeleteAccount handles the logic for deleting a user's account.
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAccount(r.Context(), chi.URLParam(r, "userId")); err != nil {
		writeLookupError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SpendCoins handles a coin spend, optionally buying an item.
func (h *AccountsHandler) SpendCoins(w http.ResponseWriter, r *http.Request) {
	var body SpendRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	account, applied, err := h.Economy.SpendCoins(r.Context(), chi.URLParam(r, "userId"), body.Amount, body.ItemId)
	writeOperation(w, account, applied, err)
}

// BuyVIP handles a VIP package purchase.
func (h *AccountsHandler) BuyVIP(w http.ResponseWriter, r *http.Request) {
	var pkg models.VIPPackage
	if err := json.NewDecoder(r.Body).Decode(&pkg); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	account, applied, err := h.Economy.BuyVIP(r.Context(), chi.URLParam(r, "userId"), pkg)
	writeOperation(w, account, applied, err)
}

// ExchangeDiamonds handles a diamond to coin exchange.
func (h *AccountsHandler) ExchangeDiamonds(w http.ResponseWriter, r *http.Request) {
	var body ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	account, applied, err := h.Economy.ExchangeDiamonds(r.Context(), chi.URLParam(r, "userId"), body.Amount)
	writeOperation(w, account, applied, err)
}

// AgencyTransfer handles an agency credit from the path account to the target.
func (h *AccountsHandler) AgencyTransfer(w http.ResponseWriter, r *http.Request) {
	var body TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if body.TargetId == "" {
		http.Error(w, "target_id is required", http.StatusBadRequest)
		return
	}

	account, applied, err := h.Economy.AgencyTransfer(r.Context(), chi.URLParam(r, "userId"), body.TargetId, body.Amount)
	writeOperation(w, account, applied, err)
}

// UpdateProfile handles a profile edit. Fields other than name, frame and
// active_bubble are refused.
func (h *AccountsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	patch, err := decodeProfile(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid profile edit: %v", err), http.StatusBadRequest)
		return
	}

	account, applied, err := h.Economy.UpdateProfile(r.Context(), chi.URLParam(r, "userId"), patch)
	if err == nil && !applied {
		http.Error(w, "Profile edit rejected", http.StatusBadRequest)
		return
	}
	writeOperation(w, account, applied, err)
}

func decodeProfile(raw map[string]json.RawMessage) (models.Patch, error) {
	patch := make(models.Patch, len(raw))
	for k, v := range raw {
		f := models.Field(k)
		if !f.IsProfile() {
			return nil, fmt.Errorf("%s: %w", k, ledger.ErrNotEditable)
		}
		if f == models.FieldFrame {
			var frame *string
			if err := json.Unmarshal(v, &frame); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			patch[f] = frame
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		patch[f] = s
	}
	return patch, nil
}
