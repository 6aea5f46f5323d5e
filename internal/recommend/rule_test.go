package recommend

import (
	"testing"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/registry"
)

type stubRule struct {
	id   string
	recs []models.Recommendation
}

func (r stubRule) ID() string   { return r.id }
func (r stubRule) Name() string { return r.id }
func (r stubRule) Evaluate(RuleContext) []models.Recommendation {
	return r.recs
}

func TestRegister_PanicsOnDuplicateID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected a panic on duplicate rule ID")
		}
	}()
	r := NewRegistry(nil)
	r.Register(stubRule{id: "DUP"})
	r.Register(stubRule{id: "DUP"})
}

func TestDefaultRegistry_RuleSet(t *testing.T) {
	r := DefaultRegistry(nil)

	want := []string{"GRAVITON_EC2", "GRAVITON_LAMBDA", "CO_RIGHTSIZING", "TA_FLAGGED"}
	rules := r.All()
	if len(rules) != len(want) {
		t.Fatalf("got %d rules; want %d", len(rules), len(want))
	}
	for i, id := range want {
		if rules[i].ID() != id {
			t.Errorf("rule %d = %q; want %q", i, rules[i].ID(), id)
		}
	}
}

func TestEnrich_ConcatenatesInRuleOrder(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(stubRule{id: "A", recs: []models.Recommendation{{RuleID: "A"}}})
	r.Register(stubRule{id: "B", recs: []models.Recommendation{{RuleID: "B"}, {RuleID: "B"}}})

	recs := r.Enrich(&registry.CustomerScope{Name: "acme"}, &models.ReportModel{})
	if len(recs) != 3 {
		t.Fatalf("got %d recommendations; want 3", len(recs))
	}
	if recs[0].RuleID != "A" || recs[2].RuleID != "B" {
		t.Errorf("rule order lost: %+v", recs)
	}
}
