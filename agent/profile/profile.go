package profile

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

var ErrProfileNotFound = errors.New("user profile not found")

// Tier is a permission level. Tiers are strictly ordered FREE < PREMIUM < VIP.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierPremium Tier = "PREMIUM"
	TierVIP     Tier = "VIP"
)

// Rank returns the ordinal position of the tier. Unknown tiers rank below FREE.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 1
	case TierPremium:
		return 2
	case TierVIP:
		return 3
	default:
		return 0
	}
}

// AutoPurchasePolicy bounds unattended purchases for a tier.
type AutoPurchasePolicy struct {
	MaxAmount  float64  `json:"max_amount"`
	Categories []string `json:"categories"`
}

// Permissions are derived deterministically from the tier; free-form deviation
// happens only through explicit admin overrides.
type Permissions struct {
	Tier           Tier                `json:"tier"`
	AutoPurchase   *AutoPurchasePolicy `json:"auto_purchase,omitempty"`
	AutonomyLevel  int                 `json:"autonomy_level"`
	BudgetCap      float64             `json:"budget_cap"`
	MaxAutoRefunds int                 `json:"max_auto_refunds"`
}

type Preferences struct {
	Brands []string `json:"brands,omitempty"`
	Colors []string `json:"colors,omitempty"`
	Sizes  []string `json:"sizes,omitempty"`
	Budget float64  `json:"budget,omitempty"`
}

type BodyMeasurements struct {
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
}

// UserProfile is persisted across sessions. It is read-shared during
// orchestration and mutated only by the permission manager.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`

	UserID              string            `bun:"user_id,pk" json:"user_id"`
	Permissions         Permissions       `bun:"permissions,type:jsonb" json:"permissions"`
	Preferences         Preferences       `bun:"preferences,type:jsonb" json:"preferences"`
	BodyMeasurements    *BodyMeasurements `bun:"body_measurements,type:jsonb,nullzero" json:"body_measurements,omitempty"`
	Age                 int               `bun:"age" json:"age,omitempty"`
	ParentalConsent     bool              `bun:"parental_consent" json:"parental_consent,omitempty"`
	AutoRefundCount     int               `bun:"auto_refund_count" json:"auto_refund_count"`
	AutoRefundResetDate time.Time         `bun:"auto_refund_reset_date,nullzero" json:"auto_refund_reset_date,omitempty"`
	UpdatedAt           time.Time         `bun:"updated_at,nullzero" json:"updated_at"`
}

// Store is the persistence contract for user profiles.
type Store interface {
	Load(ctx context.Context, userID string) (*UserProfile, error)
	Save(ctx context.Context, p *UserProfile) error
}
