package filter

import (
	"testing"

	"github.com/bakkerme/hkex-watch/internal/hkex"
	"github.com/bakkerme/hkex-watch/internal/notify"
)

func alertFor(status string, kind notify.Kind) notify.Alert {
	return notify.Alert{
		Kind: kind,
		Listing: hkex.Listing{
			ID:     42,
			Name:   "Example Holdings",
			Status: status,
			Documents: []hkex.DocumentLink{
				{U1: "doc.pdf"},
			},
		},
	}
}

func TestRuleKeepsMatchingAlerts(t *testing.T) {
	rule, err := New(`status == "A"`, nil)
	if err != nil {
		t.Fatalf("failed to compile rule: %v", err)
	}

	if !rule.Keep(alertFor("A", notify.KindNew)) {
		t.Error("expected active listing to pass")
	}
	if rule.Keep(alertFor("W", notify.KindNew)) {
		t.Error("expected withdrawn listing to be dropped")
	}
}

func TestRuleSeesKindAndDocumentCount(t *testing.T) {
	rule, err := New(`kind == "updated" || documents.count > 0`, nil)
	if err != nil {
		t.Fatalf("failed to compile rule: %v", err)
	}

	if !rule.Keep(alertFor("A", notify.KindUpdated)) {
		t.Error("expected updated alert to pass")
	}

	noDocs := alertFor("A", notify.KindNew)
	noDocs.Listing.Documents = nil
	if rule.Keep(noDocs) {
		t.Error("expected new alert without documents to be dropped")
	}
}

func TestRuleCompileErrorIsFatal(t *testing.T) {
	if _, err := New(`status ==`, nil); err == nil {
		t.Fatal("expected compile error")
	}
	if _, err := New("", nil); err == nil {
		t.Fatal("expected error for empty rule")
	}
}

func TestRuleKeepsAlertOnNonBoolResult(t *testing.T) {
	rule, err := New(`name`, nil)
	if err != nil {
		t.Fatalf("failed to compile rule: %v", err)
	}
	if !rule.Keep(alertFor("A", notify.KindNew)) {
		t.Error("expected non-bool rule result to keep the alert")
	}
}
