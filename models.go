package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the persisted identity and credential record.
//
// The verification and reset token columns travel in pairs: a token and
// its expiry are either both set or both NULL. Every code path that
// consumes a token clears both columns in the same statement.
type Account struct {
	bun.BaseModel         `bun:"table:accounts,alias:acc"`
	ID                    uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email                 string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name                  string     `bun:"name,notnull" json:"name,omitempty"`
	PasswordHash          string     `bun:"password_hash" json:"-"`
	IsVerified            bool       `bun:"is_verified" json:"is_verified"`
	VerificationToken     *string    `bun:"verification_token,nullzero" json:"-"`
	VerificationExpiresAt *time.Time `bun:"verification_expires_at,nullzero" json:"-"`
	ResetToken            *string    `bun:"reset_token,nullzero" json:"-"`
	ResetExpiresAt        *time.Time `bun:"reset_expires_at,nullzero" json:"-"`
	LastLoginAt           *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt             *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt             *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt             *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasPendingVerification reports whether a verification token pair is set.
func (a *Account) HasPendingVerification() bool {
	return a.VerificationToken != nil && a.VerificationExpiresAt != nil
}

// HasPendingReset reports whether a reset token pair is set.
func (a *Account) HasPendingReset() bool {
	return a.ResetToken != nil && a.ResetExpiresAt != nil
}

// AccountView is the redacted, outward facing representation of an
// account. It never carries the password hash or any pending token.
type AccountView struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	IsVerified  bool       `json:"is_verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// NewAccountView builds the redacted view for an account record.
func NewAccountView(a *Account) *AccountView {
	if a == nil {
		return nil
	}
	return &AccountView{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		IsVerified:  a.IsVerified,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
