package limits

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LimitExceededError reports a request beyond the principal's resolved
// authority for the given catalog kind.
type LimitExceededError struct {
	Kind      RuleKind
	Allowed   decimal.Decimal
	Requested decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	switch e.Kind {
	case KindDiscountLimit:
		return fmt.Sprintf("discount %s%% exceeds your authority of %s%%", e.Requested, e.Allowed)
	case KindMarginRule:
		return fmt.Sprintf("margin %s%% is below the required floor of %s%%", e.Requested, e.Allowed)
	case KindPriceAuthority:
		return fmt.Sprintf("price deviation %s%% exceeds your authority of %s%%", e.Requested, e.Allowed)
	}
	return fmt.Sprintf("requested %s%% exceeds allowed %s%%", e.Requested, e.Allowed)
}
