package permission

import (
	profilex "github.com/stylora/concierge/agent/profile"
)

// TierOverrides are explicit admin adjustments merged over the tier bounds.
type TierOverrides struct {
	AutoPurchase   *profilex.AutoPurchasePolicy
	AutonomyLevel  *int
	BudgetCap      *float64
	MaxAutoRefunds *int
}

// PermissionsForTier maps a tier to its fixed capability bounds, with
// overrides merged last. Unknown tiers get FREE bounds.
func PermissionsForTier(tier profilex.Tier, overrides *TierOverrides) profilex.Permissions {
	var perms profilex.Permissions

	switch tier {
	case profilex.TierPremium:
		perms = profilex.Permissions{
			Tier: profilex.TierPremium,
			AutoPurchase: &profilex.AutoPurchasePolicy{
				MaxAmount:  150,
				Categories: []string{"clothing", "accessories"},
			},
			AutonomyLevel:  3,
			BudgetCap:      500,
			MaxAutoRefunds: 2,
		}
	case profilex.TierVIP:
		perms = profilex.Permissions{
			Tier: profilex.TierVIP,
			AutoPurchase: &profilex.AutoPurchasePolicy{
				MaxAmount:  1000,
				Categories: []string{"clothing", "accessories", "shoes", "beauty"},
			},
			AutonomyLevel:  5,
			BudgetCap:      2000,
			MaxAutoRefunds: 5,
		}
	default:
		perms = profilex.Permissions{
			Tier:           profilex.TierFree,
			AutonomyLevel:  1,
			BudgetCap:      100,
			MaxAutoRefunds: 0,
		}
	}

	if overrides != nil {
		if overrides.AutoPurchase != nil {
			policy := *overrides.AutoPurchase
			perms.AutoPurchase = &policy
		}
		if overrides.AutonomyLevel != nil {
			perms.AutonomyLevel = *overrides.AutonomyLevel
		}
		if overrides.BudgetCap != nil {
			perms.BudgetCap = *overrides.BudgetCap
		}
		if overrides.MaxAutoRefunds != nil {
			perms.MaxAutoRefunds = *overrides.MaxAutoRefunds
		}
	}

	return perms
}
