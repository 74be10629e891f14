package leave

import (
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
)

// QuotaCalculator derives yearly entitlements from the company leave policy.
type QuotaCalculator struct {
}

func NewQuotaCalculator() *QuotaCalculator {
	return &QuotaCalculator{}
}

// CalculateEntitlement returns the policy days for leaveType. Half days draw
// on the full leave entitlement.
func (c *QuotaCalculator) CalculateEntitlement(settings company.Settings, leaveType leave.LeaveType) float64 {
	if days, ok := settings.LeavePolicy[string(leaveType.BalanceType())]; ok {
		return days
	}
	defaults := company.DefaultSettings().LeavePolicy
	return defaults[string(leaveType.BalanceType())]
}

// CalculateTaken folds approved days per request type into the balance
// types they were drawn from.
func (c *QuotaCalculator) CalculateTaken(approved map[leave.LeaveType]float64) map[leave.LeaveType]float64 {
	taken := make(map[leave.LeaveType]float64, len(approved))
	for leaveType, days := range approved {
		taken[leaveType.BalanceType()] += days
	}
	return taken
}
