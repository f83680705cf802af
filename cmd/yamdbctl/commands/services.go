package commands

import (
	"fmt"

	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/mail"
	"github.com/sakif/yamdb/internal/permission"
	sqliteRepo "github.com/sakif/yamdb/internal/repository/sqlite"
	"github.com/sakif/yamdb/internal/service"
)

// accountService builds the account service the same way the server does.
func accountService(db *sqliteRepo.DB) (*service.AccountService, *auth.TokenService, error) {
	perm, err := permission.New()
	if err != nil {
		return nil, nil, fmt.Errorf("loading permission policy: %w", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("creating token service: %w", err)
	}
	codes := auth.NewCodeService(cfg.Auth.BcryptCost, cfg.Auth.ConfirmationCodeTTL)
	accounts := service.NewAccountService(db, codes, tokens, mail.New(cfg.Mail, logger), perm, logger, cfg.Mail.SendTimeout)
	return accounts, tokens, nil
}
