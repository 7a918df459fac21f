// Package filter gates alert delivery with a user-supplied expression.
// Filtering never affects state reconciliation, only which alerts go out.
package filter

import (
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/hkex-watch/internal/notify"
)

// Rule evaluates a compiled expr-lang expression per alert. The expression
// must yield a bool; true keeps the alert.
type Rule struct {
	source  string
	program *vm.Program
	logger  *slog.Logger
}

func New(source string, logger *slog.Logger) (*Rule, error) {
	if source == "" {
		return nil, fmt.Errorf("alert rule expression is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	program, err := expr.Compile(source, expr.Env(map[string]interface{}{}))
	if err != nil {
		return nil, fmt.Errorf("compile alert rule: %w", err)
	}
	return &Rule{source: source, program: program, logger: logger}, nil
}

// Keep reports whether the alert should be delivered. Evaluation failures
// keep the alert: a broken rule must not silently swallow notifications.
func (r *Rule) Keep(alert notify.Alert) bool {
	result, err := expr.Run(r.program, ruleEnv(alert))
	if err != nil {
		r.logger.Warn("alert rule evaluation failed, keeping alert",
			"listing_id", alert.Listing.ID, "error", err)
		return true
	}
	keep, ok := result.(bool)
	if !ok {
		r.logger.Warn("alert rule did not return bool, keeping alert",
			"listing_id", alert.Listing.ID, "result", fmt.Sprintf("%T", result))
		return true
	}
	return keep
}

func ruleEnv(alert notify.Alert) map[string]interface{} {
	return map[string]interface{}{
		"kind":         string(alert.Kind),
		"id":           alert.Listing.ID,
		"name":         alert.Listing.Name,
		"status":       alert.Listing.Status,
		"listing_date": alert.Listing.ListingDate,
		"posting_date": alert.Listing.PostingDate,
		"has_phip":     alert.Listing.HasPHIP,
		"documents": map[string]interface{}{
			"count": len(alert.Listing.DocumentRefs()),
		},
	}
}
