package giftcards

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bazaarline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bazaarline/storefront-backend/pkg/errors"
)

// NormalizeCode canonicalizes a gift-card code for lookup. Codes are stored
// upper-cased with surrounding whitespace stripped.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository manages gift-card balances. Debit is an atomic conditional
// update so concurrent checkouts against the same code cannot overdraw it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Find(ctx context.Context, code string) (*models.GiftCard, error)
	// FindRedeemable returns the card only when it is active and unexpired.
	FindRedeemable(ctx context.Context, code string, now time.Time) (*models.GiftCard, error)
	// Debit subtracts amount where the balance covers it and the card is
	// still redeemable. Conflict when the conditional update matches no row.
	Debit(ctx context.Context, code string, amount decimal.Decimal, now time.Time) error
	// Credit adds amount back to a card's balance, capped by issued_amount
	// via the table constraint. Used by refund compensation.
	Credit(ctx context.Context, code string, amount decimal.Decimal) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a gift-card repository backed by the provided DB handle.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Find(ctx context.Context, code string) (*models.GiftCard, error) {
	var card models.GiftCard
	err := r.db.WithContext(ctx).
		Where("code = ?", NormalizeCode(code)).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gift card not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load gift card")
	}
	return &card, nil
}

func (r *repository) FindRedeemable(ctx context.Context, code string, now time.Time) (*models.GiftCard, error) {
	card, err := r.Find(ctx, code)
	if err != nil {
		return nil, err
	}
	if !card.Active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gift card is not active")
	}
	if card.ExpiresAt != nil && !card.ExpiresAt.After(now) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gift card has expired")
	}
	return card, nil
}

func (r *repository) Debit(ctx context.Context, code string, amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE gift_cards
		SET balance = balance - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE code = ?
		  AND active = ?
		  AND balance >= ?
		  AND (expires_at IS NULL OR expires_at > ?)
	`, amount, NormalizeCode(code), true, amount, now)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "debit gift card")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "gift card cannot cover the requested debit")
	}
	return nil
}

func (r *repository) Credit(ctx context.Context, code string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE gift_cards
		SET balance = balance + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE code = ? AND balance + ? <= issued_amount
	`, amount, NormalizeCode(code), amount)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "credit gift card")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "credit would exceed the issued amount")
	}
	return nil
}
