package automation

import (
	"strconv"
	"strings"

	"github.com/dukex/ruleforge/pkg/events"
	"github.com/dukex/ruleforge/pkg/models"
)

// Matches reports whether event fires the rule: the type must match, every filter entry must
// equal the payload field as a string, and conditions must hold under the trigger's mode.
// Scheduled ticks that name a rule only match that rule.
func Matches(rule *models.AutomationRule, event events.DomainEvent) bool {
	trigger := rule.Trigger

	if event.Type != trigger.Type {
		return false
	}

	if event.Type == events.ScheduledTick {
		if target := event.StringField(events.RuleIDField); target != "" && target != rule.ID {
			return false
		}
	}

	for field, want := range trigger.Filter {
		got, ok := event.Payload[field]
		if !ok || events.Stringify(got) != want {
			return false
		}
	}

	if len(trigger.Conditions) == 0 {
		return true
	}

	if trigger.EffectiveMode() == models.ModeOr {
		for _, condition := range trigger.Conditions {
			if Evaluate(condition, event.Payload) {
				return true
			}
		}

		return false
	}

	for _, condition := range trigger.Conditions {
		if !Evaluate(condition, event.Payload) {
			return false
		}
	}

	return true
}

// Evaluate applies one condition to payload. A missing field never satisfies a condition, and
// numeric operators are false unless both sides parse as numbers.
func Evaluate(condition models.Condition, payload map[string]any) bool {
	actual, ok := payload[condition.Field]
	if !ok {
		return false
	}

	if condition.Operator.Numeric() {
		left, lok := toFloat64(actual)
		right, rok := toFloat64(condition.Value)

		if !lok || !rok {
			return false
		}

		switch condition.Operator {
		case models.OpGt:
			return left > right
		case models.OpGte:
			return left >= right
		case models.OpLt:
			return left < right
		case models.OpLte:
			return left <= right
		}

		return false
	}

	left := events.Stringify(actual)
	right := events.Stringify(condition.Value)

	switch condition.Operator {
	case models.OpEq:
		return left == right
	case models.OpNeq:
		return left != right
	case models.OpContains:
		return strings.Contains(left, right)
	case models.OpStartsWith:
		return strings.HasPrefix(left, right)
	case models.OpEndsWith:
		return strings.HasSuffix(left, right)
	default:
		return false
	}
}

// toFloat64 coerces numbers and numeric strings.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)

		return f, err == nil
	default:
		return 0, false
	}
}
