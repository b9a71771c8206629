// Package permission resolves user tiers and the capability bounds derived
// from them, and owns all profile mutation.
package permission

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/stylora/concierge/agent/contract"
	profilex "github.com/stylora/concierge/agent/profile"
)

// Actions recognized by field-based permission checks.
const (
	ActionAutoPurchase = "auto_purchase"
	ActionAutoRefund   = "auto_refund"
)

// Manager resolves permissions from the primary profile store, falling back
// to a secondary store and finally to FREE-tier defaults.
type Manager struct {
	primary   profilex.Store
	secondary profilex.Store

	now func() time.Time
}

func NewManager(primary profilex.Store, secondary profilex.Store) (*Manager, error) {
	if primary == nil {
		return nil, errors.New("primary profile store is required")
	}
	return &Manager{
		primary:   primary,
		secondary: secondary,
		now:       time.Now,
	}, nil
}

// Profile resolves the user's profile, degrading to a FREE-tier default
// profile when every store fails. Never returns an error.
func (m *Manager) Profile(ctx context.Context, userID string) *profilex.UserProfile {
	p, err := m.load(ctx, userID)
	if err != nil {
		if !errors.Is(err, profilex.ErrProfileNotFound) {
			log.Warn().Err(err).Str("user_id", userID).Msg("profile lookup failed, using FREE defaults")
		}
		return defaultProfile(userID)
	}
	if p.Permissions.Tier == "" {
		p.Permissions = PermissionsForTier(profilex.TierFree, nil)
	}
	return p
}

// GetUserPermissions resolves the user's permissions. Never returns an error.
func (m *Manager) GetUserPermissions(ctx context.Context, userID string) profilex.Permissions {
	return m.Profile(ctx, userID).Permissions
}

func (m *Manager) load(ctx context.Context, userID string) (*profilex.UserProfile, error) {
	p, err := m.primary.Load(ctx, userID)
	if err == nil {
		return p, nil
	}
	if m.secondary == nil {
		return nil, err
	}

	if !errors.Is(err, profilex.ErrProfileNotFound) {
		log.Debug().Err(err).Str("user_id", userID).Msg("primary profile store failed, trying secondary")
	}
	return m.secondary.Load(ctx, userID)
}

// CheckPermission reports whether the user may perform the action. When
// requiredTier is set the check is a tier-rank comparison; otherwise the
// action-specific permission fields decide. Unknown actions default-allow.
func (m *Manager) CheckPermission(ctx context.Context, userID, action string, requiredTier profilex.Tier) bool {
	perms := m.GetUserPermissions(ctx, userID)

	if requiredTier != "" {
		return perms.Tier.Rank() >= requiredTier.Rank()
	}

	switch action {
	case ActionAutoPurchase:
		return perms.AutoPurchase != nil
	case ActionAutoRefund:
		return perms.MaxAutoRefunds > 0
	default:
		return true
	}
}

// RequirePermission returns a PermissionDeniedError when CheckPermission
// fails, nil otherwise.
func (m *Manager) RequirePermission(ctx context.Context, userID, action string, requiredTier profilex.Tier) error {
	if m.CheckPermission(ctx, userID, action, requiredTier) {
		return nil
	}
	return &contractx.PermissionDeniedError{
		Action:       strings.TrimSpace(action),
		RequiredTier: requiredTier,
		ActualTier:   m.GetUserPermissions(ctx, userID).Tier,
	}
}

// IncrementAutoRefundCount bumps the user's monthly auto-refund counter,
// resetting it to 1 on the first increment of a new calendar month. Failures
// are logged and swallowed.
func (m *Manager) IncrementAutoRefundCount(ctx context.Context, userID string) {
	p, err := m.load(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("auto-refund increment skipped, profile unavailable")
		return
	}

	now := m.now().UTC()
	if sameMonth(p.AutoRefundResetDate, now) {
		p.AutoRefundCount++
	} else {
		p.AutoRefundCount = 1
		p.AutoRefundResetDate = now
	}
	p.UpdatedAt = now

	if err := m.primary.Save(ctx, p); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("auto-refund count not persisted")
	}
	if m.secondary != nil {
		if err := m.secondary.Save(ctx, p); err != nil {
			log.Debug().Err(err).Str("user_id", userID).Msg("auto-refund count not mirrored to secondary store")
		}
	}
}

func sameMonth(a, b time.Time) bool {
	if a.IsZero() {
		return false
	}
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func defaultProfile(userID string) *profilex.UserProfile {
	return &profilex.UserProfile{
		UserID:      userID,
		Permissions: PermissionsForTier(profilex.TierFree, nil),
	}
}
