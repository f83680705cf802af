package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/model"
	"github.com/sakif/yamdb/internal/repository"
)

func TestCreateAccount(t *testing.T) {
	db := newTestDB(t)
	issued := time.Now()

	a := &model.Account{
		Username:   "alice",
		Email:      "alice@example.com",
		Role:       "bogus",
		CodeHash:   "hash",
		CodeIssued: &issued,
	}
	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	if a.ID == "" {
		t.Error("CreateAccount() did not set ID")
	}

	found, err := db.GetAccountByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername() error = %v", err)
	}
	if found.Role != model.RoleUser {
		t.Errorf("Role = %q, want unknown roles stored as %q", found.Role, model.RoleUser)
	}
	if found.IsActive {
		t.Error("IsActive = true, want false")
	}
	if !found.HasPendingCode() {
		t.Error("expected pending code after create")
	}
}

func TestCreateAccount_DuplicateFields(t *testing.T) {
	db := newTestDB(t)
	createTestAccount(t, db, "alice")

	tests := []struct {
		name      string
		account   model.Account
		wantField string
	}{
		{"same username", model.Account{Username: "alice", Email: "other@example.com"}, "username"},
		{"same email", model.Account{Username: "bob", Email: "alice@example.com"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := tt.account
			err := db.CreateAccount(context.Background(), &a)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("CreateAccount() error = %v, want *AppError", err)
			}
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAccountByID(context.Background(), "nope")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetAccountByID() error = %v, want ErrNotFound", err)
	}
	_, err = db.GetAccountByEmail(context.Background(), "nope@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetAccountByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestActivate_ClearsCode(t *testing.T) {
	db := newTestDB(t)
	a := &model.Account{Username: "carol", Email: "carol@example.com"}
	if err := db.CreateAccount(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if err := db.SetConfirmationCode(context.Background(), a.ID, "hash"); err != nil {
		t.Fatalf("SetConfirmationCode() error = %v", err)
	}

	got, _ := db.GetAccountByID(context.Background(), a.ID)
	if !got.HasPendingCode() {
		t.Fatal("expected pending code")
	}

	if err := db.Activate(context.Background(), a.ID, "hash"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	got, _ = db.GetAccountByID(context.Background(), a.ID)
	if !got.IsActive {
		t.Error("IsActive = false after Activate")
	}
	if got.HasPendingCode() {
		t.Error("code still pending after Activate")
	}
}

func TestActivate_CodeIsSpentOnce(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestAccount(t, db, "cora")
	if err := db.SetConfirmationCode(ctx, a.ID, "hash-1"); err != nil {
		t.Fatal(err)
	}

	if err := db.Activate(ctx, a.ID, "hash-0"); !errors.Is(err, repository.ErrCodeSpent) {
		t.Errorf("Activate(replaced hash) error = %v, want ErrCodeSpent", err)
	}
	if err := db.Activate(ctx, a.ID, "hash-1"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if err := db.Activate(ctx, a.ID, "hash-1"); !errors.Is(err, repository.ErrCodeSpent) {
		t.Errorf("second Activate() error = %v, want ErrCodeSpent", err)
	}
	if err := db.Activate(ctx, a.ID, ""); !errors.Is(err, repository.ErrCodeSpent) {
		t.Errorf("Activate(empty hash) error = %v, want ErrCodeSpent", err)
	}
}

func TestUpdateAccount(t *testing.T) {
	db := newTestDB(t)
	a := createTestAccount(t, db, "dave")
	createTestAccount(t, db, "erin")

	a.Bio = "hello"
	a.Role = model.RoleModerator
	if err := db.UpdateAccount(context.Background(), a); err != nil {
		t.Fatalf("UpdateAccount() error = %v", err)
	}
	got, _ := db.GetAccountByID(context.Background(), a.ID)
	if got.Bio != "hello" || got.Role != model.RoleModerator {
		t.Errorf("got bio=%q role=%q", got.Bio, got.Role)
	}

	a.Username = "erin"
	err := db.UpdateAccount(context.Background(), a)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateAccount() to taken username error = %v, want ErrValidation", err)
	}
}

func TestListAccounts_SearchAndPaging(t *testing.T) {
	db := newTestDB(t)
	for _, name := range []string{"zed", "amy", "bert", "amber"} {
		createTestAccount(t, db, name)
	}

	page, err := db.ListAccounts(context.Background(), repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListAccounts() error = %v", err)
	}
	if page.Count != 4 {
		t.Errorf("Count = %d, want 4", page.Count)
	}
	if len(page.Items) != 2 || page.Items[0].Username != "amber" || page.Items[1].Username != "amy" {
		t.Errorf("first page = %+v, want amber, amy", page.Items)
	}

	// Every fixture email is <name>@example.com, so the term must not
	// occur in "example.com".
	page, err = db.ListAccounts(context.Background(), repository.ListOptions{Search: "amb"})
	if err != nil {
		t.Fatalf("ListAccounts(search) error = %v", err)
	}
	if page.Count != 1 || len(page.Items) != 1 || page.Items[0].Username != "amber" {
		t.Errorf("search = %d %+v, want only amber", page.Count, page.Items)
	}

	page, err = db.ListAccounts(context.Background(), repository.ListOptions{Search: "BERT@"})
	if err != nil {
		t.Fatalf("ListAccounts(search email) error = %v", err)
	}
	if page.Count != 1 || page.Items[0].Username != "bert" {
		t.Errorf("email search = %d %+v, want only bert", page.Count, page.Items)
	}
}

func TestDeleteAccount_CascadesContent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	author := createTestAccount(t, db, "frank")
	title := createTestTitle(t, db, "Dune", nil, createTestGenre(t, db, "scifi"))
	review := createTestReview(t, db, title, author, 8)

	if err := db.DeleteAccount(ctx, author.ID); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if _, err := db.GetReview(ctx, title.ID, review.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("review survived author deletion: err = %v", err)
	}
	if err := db.DeleteAccount(ctx, author.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteAccount() error = %v, want ErrNotFound", err)
	}
}
