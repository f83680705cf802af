package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/auth"
	"github.com/sakif/yamdb/internal/mail"
	"github.com/sakif/yamdb/internal/metrics"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/permission"
	"github.com/sakif/yamdb/internal/repository"
	"github.com/sakif/yamdb/internal/validation"
)

// SignupInput is the body of POST /auth/signup.
type SignupInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=150,username,notme"`
}

// TokenInput is the body of POST /auth/token.
type TokenInput struct {
	Username         string `json:"username" validate:"required,max=150"`
	ConfirmationCode string `json:"confirmation_code" validate:"required"`
}

// AccountInput is the body of POST /users (admin).
type AccountInput struct {
	Username  string     `json:"username" validate:"required,max=150,username,notme"`
	Email     string     `json:"email" validate:"required,email,max=254"`
	FirstName string     `json:"first_name" validate:"max=150"`
	LastName  string     `json:"last_name" validate:"max=150"`
	Bio       string     `json:"bio"`
	Role      model.Role `json:"role" validate:"omitempty,oneof=user moderator admin"`
}

// AccountPatch is a partial update. Nil fields are left unchanged.
type AccountPatch struct {
	Username  *string     `json:"username" validate:"omitnil,min=1,max=150,username,notme"`
	Email     *string     `json:"email" validate:"omitnil,email,max=254"`
	FirstName *string     `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string     `json:"last_name" validate:"omitnil,max=150"`
	Bio       *string     `json:"bio"`
	Role      *model.Role `json:"role" validate:"omitnil,oneof=user moderator admin"`
}

// SignupResult is what a successful signup reports back.
type SignupResult struct {
	Account *model.Account
	// Warning is set when the account was stored but the email could not be
	// delivered. The caller can sign up again to get a fresh code.
	Warning string
}

const (
	msgInvalidCode = "Invalid confirmation code."
	msgExpiredCode = "Confirmation code has expired. Sign up again to receive a new one."
	msgMailFailed  = "The confirmation email could not be sent. Sign up again to receive a new code."
)

// AccountService owns the account lifecycle:
//
//	[no account] --signup--> [pending: code issued] --token(code)--> [verified]
//	[verified]   --signup with same username+email--> new code, still verified
//
// and the admin-side account management plus /users/me.
type AccountService struct {
	accounts    repository.AccountRepository
	codes       *auth.CodeService
	tokens      *auth.TokenService
	mailer      mail.Sender
	perm        *permission.Evaluator
	logger      *slog.Logger
	sendTimeout time.Duration
}

func NewAccountService(
	accounts repository.AccountRepository,
	codes *auth.CodeService,
	tokens *auth.TokenService,
	mailer mail.Sender,
	perm *permission.Evaluator,
	logger *slog.Logger,
	sendTimeout time.Duration,
) *AccountService {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &AccountService{
		accounts:    accounts,
		codes:       codes,
		tokens:      tokens,
		mailer:      mailer,
		perm:        perm,
		logger:      logger,
		sendTimeout: sendTimeout,
	}
}

// =========================================================================
// SIGNUP & TOKEN
// =========================================================================

// Signup registers an account (or re-issues a code for an existing one) and
// emails a confirmation code.
//
// Matching rules against existing accounts:
//   - username AND email belong to the same account → new code for it
//   - only one of them is taken → field error, nothing is written
//   - neither is taken → a new inactive account with a pending code
//
// The new-account insert is a single statement, so the UNIQUE indexes settle
// a race between two signups for the same name: one of them gets the field
// error.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := validation.Struct(&in); err != nil {
		metrics.RecordSignup("rejected")
		return nil, err
	}

	byName, err := s.lookup(ctx, s.accounts.GetAccountByUsername, in.Username)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.lookup(ctx, s.accounts.GetAccountByEmail, in.Email)
	if err != nil {
		return nil, err
	}

	var (
		account *model.Account
		code    string
		outcome string
	)

	switch {
	case byName != nil && byEmail != nil && byName.ID == byEmail.ID:
		account = byName
		var hash string
		code, hash, err = s.codes.Issue(account)
		if err != nil {
			return nil, err
		}
		if err := s.accounts.SetConfirmationCode(ctx, account.ID, hash); err != nil {
			return nil, fmt.Errorf("service: storing confirmation code: %w", err)
		}
		outcome = "reissued"

	case byName != nil:
		metrics.RecordSignup("rejected")
		return nil, apperror.FieldTaken("username", in.Username)

	case byEmail != nil:
		metrics.RecordSignup("rejected")
		return nil, apperror.FieldTaken("email", in.Email)

	default:
		account = &model.Account{
			Username: in.Username,
			Email:    in.Email,
			Role:     model.RoleUser,
		}
		var hash string
		code, hash, err = s.codes.Issue(account)
		if err != nil {
			return nil, err
		}
		issued := time.Now().UTC()
		account.CodeHash = hash
		account.CodeIssued = &issued
		if err := s.accounts.CreateAccount(ctx, account); err != nil {
			if errors.Is(err, apperror.ErrValidation) {
				metrics.RecordSignup("rejected")
			}
			return nil, err
		}
		outcome = "created"
	}

	metrics.RecordSignup(outcome)
	s.logger.Info("confirmation code issued",
		slog.String("account_id", account.ID),
		slog.String("username", account.Username),
		slog.String("outcome", outcome),
	)

	result := &SignupResult{Account: account}
	if err := s.sendCode(ctx, account, code); err != nil {
		s.logger.Error("confirmation email not delivered",
			slog.String("account_id", account.ID),
			slog.String("error", err.Error()),
		)
		result.Warning = msgMailFailed
	}
	return result, nil
}

// sendCode runs after the account row is committed. It gets its own deadline
// and survives the request context being cancelled.
func (s *AccountService) sendCode(ctx context.Context, a *model.Account, code string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sendTimeout)
	defer cancel()

	err := s.mailer.Send(ctx, mail.ConfirmationMessage(a.Email, a.Username, code))
	metrics.RecordMail(err)
	return err
}

// ExchangeCode trades a confirmation code for an access token. On success the
// account is activated and the code is spent.
func (s *AccountService) ExchangeCode(ctx context.Context, in TokenInput) (string, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.ConfirmationCode = strings.TrimSpace(in.ConfirmationCode)
	if err := validation.Struct(&in); err != nil {
		return "", err
	}

	account, err := s.accounts.GetAccountByUsername(ctx, in.Username)
	if err != nil {
		if isNotFound(err) {
			metrics.RecordTokenFailure("unknown_user")
		}
		return "", err
	}

	if err := s.codes.Verify(account, in.ConfirmationCode); err != nil {
		switch {
		case errors.Is(err, auth.ErrCodeExpired):
			metrics.RecordTokenFailure("expired")
			return "", apperror.ValidationFailed("confirmation_code", msgExpiredCode)
		case errors.Is(err, auth.ErrCodeMismatch), errors.Is(err, auth.ErrNoCode):
			metrics.RecordTokenFailure("mismatch")
			return "", apperror.ValidationFailed("confirmation_code", msgInvalidCode)
		default:
			return "", err
		}
	}

	if err := s.accounts.Activate(ctx, account.ID, account.CodeHash); err != nil {
		if errors.Is(err, repository.ErrCodeSpent) {
			metrics.RecordTokenFailure("spent")
			return "", apperror.ValidationFailed("confirmation_code", msgInvalidCode)
		}
		return "", fmt.Errorf("service: activating account: %w", err)
	}

	token, err := s.tokens.Generate(account.ID)
	if err != nil {
		return "", err
	}
	metrics.RecordTokenIssued()
	s.logger.Info("access token issued", slog.String("account_id", account.ID))
	return token, nil
}

// lookup calls get and turns not-found into (nil, nil).
func (s *AccountService) lookup(
	ctx context.Context,
	get func(context.Context, string) (*model.Account, error),
	key string,
) (*model.Account, error) {
	a, err := get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// =========================================================================
// ACCOUNT MANAGEMENT (admin)
// =========================================================================

func (s *AccountService) List(ctx context.Context, actor permission.Actor, opts repository.ListOptions) (repository.Page[model.Account], error) {
	if err := s.perm.CanManageAccounts(actor); err != nil {
		return repository.Page[model.Account]{}, err
	}
	return s.accounts.ListAccounts(ctx, opts)
}

func (s *AccountService) Get(ctx context.Context, actor permission.Actor, username string) (*model.Account, error) {
	if err := s.perm.CanManageAccounts(actor); err != nil {
		return nil, err
	}
	return s.accounts.GetAccountByUsername(ctx, username)
}

// Create adds an account on behalf of an admin. It is active straight away
// and has no confirmation code.
func (s *AccountService) Create(ctx context.Context, actor permission.Actor, in AccountInput) (*model.Account, error) {
	if err := s.perm.CanManageAccounts(actor); err != nil {
		return nil, err
	}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}

	a := &model.Account{
		Username:  strings.TrimSpace(in.Username),
		Email:     strings.TrimSpace(in.Email),
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Bio:       in.Bio,
		Role:      in.Role.Normalize(),
		IsActive:  true,
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("account created by admin",
		slog.String("account_id", a.ID),
		slog.String("by", actor.Username),
	)
	return a, nil
}

// Update applies patch to the account named username.
func (s *AccountService) Update(ctx context.Context, actor permission.Actor, username string, patch AccountPatch) (*model.Account, error) {
	if err := s.perm.CanManageAccounts(actor); err != nil {
		return nil, err
	}
	a, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.applyPatch(ctx, actor, a, patch)
}

func (s *AccountService) Delete(ctx context.Context, actor permission.Actor, username string) error {
	if err := s.perm.CanManageAccounts(actor); err != nil {
		return err
	}
	a, err := s.accounts.GetAccountByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := s.accounts.DeleteAccount(ctx, a.ID); err != nil {
		return err
	}
	s.logger.Info("account deleted",
		slog.String("account_id", a.ID),
		slog.String("by", actor.Username),
	)
	return nil
}

// CreateSuperuser bootstraps an active superuser. It is for the admin CLI and
// performs no permission check.
func (s *AccountService) CreateSuperuser(ctx context.Context, username, email string) (*model.Account, error) {
	in := AccountInput{Username: username, Email: email, Role: model.RoleAdmin}
	if err := validation.Struct(&in); err != nil {
		return nil, err
	}
	a := &model.Account{
		Username:    in.Username,
		Email:       in.Email,
		Role:        model.RoleAdmin,
		IsSuperuser: true,
		IsActive:    true,
	}
	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// =========================================================================
// SELF-SERVICE (/users/me)
// =========================================================================

func (s *AccountService) Me(ctx context.Context, actor permission.Actor) (*model.Account, error) {
	if err := s.perm.CanAccessProfile(actor); err != nil {
		return nil, err
	}
	return s.accounts.GetAccountByID(ctx, actor.AccountID)
}

// UpdateMe applies patch to the caller's own account. The role field is
// ignored unless the caller already holds admin rights.
func (s *AccountService) UpdateMe(ctx context.Context, actor permission.Actor, patch AccountPatch) (*model.Account, error) {
	if err := s.perm.CanAccessProfile(actor); err != nil {
		return nil, err
	}
	a, err := s.accounts.GetAccountByID(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	if patch.Role != nil && s.perm.CanAssignRole(actor) != nil {
		patch.Role = nil
	}
	return s.applyPatch(ctx, actor, a, patch)
}

func (s *AccountService) applyPatch(ctx context.Context, actor permission.Actor, a *model.Account, patch AccountPatch) (*model.Account, error) {
	if err := validation.Struct(&patch); err != nil {
		return nil, err
	}

	if patch.Username != nil {
		name := strings.TrimSpace(*patch.Username)
		if err := s.ensureFree(ctx, s.accounts.GetAccountByUsername, "username", name, a.ID); err != nil {
			return nil, err
		}
		a.Username = name
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if err := s.ensureFree(ctx, s.accounts.GetAccountByEmail, "email", email, a.ID); err != nil {
			return nil, err
		}
		a.Email = email
	}
	if patch.FirstName != nil {
		a.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		a.LastName = *patch.LastName
	}
	if patch.Bio != nil {
		a.Bio = *patch.Bio
	}
	if patch.Role != nil {
		if err := s.perm.CanAssignRole(actor); err != nil {
			return nil, err
		}
		a.Role = patch.Role.Normalize()
	}

	if err := s.accounts.UpdateAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ensureFree fails with a field error when value already belongs to an
// account other than selfID.
func (s *AccountService) ensureFree(
	ctx context.Context,
	get func(context.Context, string) (*model.Account, error),
	field, value, selfID string,
) error {
	other, err := s.lookup(ctx, get, value)
	if err != nil {
		return err
	}
	if other != nil && other.ID != selfID {
		return apperror.FieldTaken(field, value)
	}
	return nil
}
