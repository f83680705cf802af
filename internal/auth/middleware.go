package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/permission"
)

// AccountLookup loads the account a token's subject refers to.
type AccountLookup interface {
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
}

// Authenticate resolves the caller's identity for every request and stores
// it with permission.WithActor.
//
// It never rejects a request. A missing, malformed or expired token, a token
// for a deleted account, or one for an account that was deactivated all leave
// the request anonymous. Reads then succeed as they would for any visitor,
// and writes are turned away later by the permission evaluator with a 401.
//
// The account is re-read on each request so role changes and deletions take
// effect before the token expires.
func Authenticate(tokens *TokenService, accounts AccountLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			accountID, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("ignoring invalid bearer token", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}

			account, err := accounts.GetAccountByID(r.Context(), accountID)
			if err != nil || !account.IsActive {
				logger.Debug("token subject not usable",
					slog.String("account_id", accountID),
					slog.Bool("found", err == nil),
				)
				next.ServeHTTP(w, r)
				return
			}

			ctx := permission.WithActor(r.Context(), permission.ActorFor(account))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
