package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/yamdb/internal/model"
)

var (
	ErrCodeMismatch = errors.New("auth: confirmation code does not match")
	ErrCodeExpired  = errors.New("auth: confirmation code expired")
	ErrNoCode       = errors.New("auth: no confirmation code outstanding")
)

// codeBytes of entropy per confirmation code: 160 bits, 32 base32 characters.
const codeBytes = 20

// CodeService issues and checks confirmation codes.
//
// WHAT IS STORED:
// Only a bcrypt hash, like a password. The hashed input is the code bound to
// the account's state (username, email, role, active flag), so renaming the
// account or promoting it quietly invalidates any code that was issued before.
//
// bcrypt only reads the first 72 bytes of its input, so code+state is first
// condensed with SHA-256. The digest is a fixed 44 base64 characters and
// every byte of code and state influences it.
type CodeService struct {
	cost int
	ttl  time.Duration
	now  func() time.Time
}

// NewCodeService creates a CodeService. cost 0 means bcrypt.DefaultCost.
func NewCodeService(cost int, ttl time.Duration) *CodeService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &CodeService{cost: cost, ttl: ttl, now: time.Now}
}

// Issue returns a fresh code and the hash to store for account a.
func (s *CodeService) Issue(a *model.Account) (code, hash string, err error) {
	buf := make([]byte, codeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generating confirmation code: %w", err)
	}
	code = base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword(s.bind(code, a), s.cost)
	if err != nil {
		return "", "", fmt.Errorf("auth: hashing confirmation code: %w", err)
	}
	return code, string(hashed), nil
}

// Verify checks code against the hash stored on a. It returns nil, or one of
// ErrNoCode, ErrCodeExpired, ErrCodeMismatch.
func (s *CodeService) Verify(a *model.Account, code string) error {
	if !a.HasPendingCode() {
		return ErrNoCode
	}
	if s.ttl > 0 && s.now().After(a.CodeIssued.Add(s.ttl)) {
		return ErrCodeExpired
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.CodeHash), s.bind(code, a))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrCodeMismatch
		}
		return fmt.Errorf("auth: comparing confirmation code: %w", err)
	}
	return nil
}

func (s *CodeService) bind(code string, a *model.Account) []byte {
	h := sha256.New()
	for _, part := range []string{
		code,
		a.Username,
		a.Email,
		string(a.Role.Normalize()),
		strconv.FormatBool(a.IsActive),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return []byte(base64.StdEncoding.EncodeToString(h.Sum(nil)))
}
