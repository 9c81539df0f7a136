package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/univend-backend/api/middleware"
	"github.com/angelmondragon/univend-backend/api/responses"
	"github.com/angelmondragon/univend-backend/api/validators"
	walletsvc "github.com/angelmondragon/univend-backend/internal/wallet"
	pkgerrors "github.com/angelmondragon/univend-backend/pkg/errors"
	"github.com/angelmondragon/univend-backend/pkg/logger"
	"github.com/angelmondragon/univend-backend/pkg/outbox"
)

type fundWalletRequest struct {
	Amount int64 `json:"amount"`
}

// GetWallet returns the caller's wallet, opening it on first access.
func GetWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("wallet"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		wallet, err := svc.GetOrCreateWallet(r.Context(), caller.UserID)
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, wallet)
	}
}

func ListWalletTransactions(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("wallet"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		params, err := validators.ParsePage(r)
		if err != nil {
			fail(err)
			return
		}

		list, err := svc.ListTransactions(r.Context(), caller.UserID, params)
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// FundWallet credits the caller's wallet through the internal pre-funding flow.
func FundWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("wallet"))
			return
		}

		caller, err := middleware.RequireIdentity(r.Context())
		if err != nil {
			fail(err)
			return
		}

		var payload fundWalletRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			fail(err)
			return
		}

		txn, err := svc.Fund(r.Context(), walletsvc.FundInput{
			UserID: caller.UserID,
			Amount: payload.Amount,
			Actor:  outbox.ActorRef{UserID: caller.UserID, Role: string(caller.Role)},
		})
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, txn)
	}
}

// ReconcileWallet replays a user's ledger. Admin only.
func ReconcileWallet(svc walletsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := errorReplier(w, r, logg)
		if svc == nil {
			fail(serviceUnavailable("wallet"))
			return
		}

		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" {
			fail(pkgerrors.New(pkgerrors.CodeValidation, "user_id is required"))
			return
		}

		report, err := svc.Reconcile(r.Context(), userID)
		if err != nil {
			fail(err)
			return
		}
		if !report.Consistent && logg != nil {
			logg.Warn(logg.WithFields(r.Context(), map[string]any{
				"user_id":          report.UserID,
				"balance":          report.Balance,
				"replayed_balance": report.ReplayedBalance,
			}), "wallet ledger drift detected")
		}
		responses.WriteSuccess(w, report)
	}
}
