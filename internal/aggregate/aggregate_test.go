package aggregate

import (
	"testing"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/registry"
	"github.com/costpilot/costpilot/internal/reports"
)

func testScope() *registry.CustomerScope {
	return &registry.CustomerScope{
		CustomerID:     1,
		Name:           "acme",
		PayerAccountID: "111122223333",
	}
}

func step(name string, provider models.Provider, partition string) reports.PlanStep {
	return reports.PlanStep{
		ReportName: name,
		Query: models.Query{
			Provider:      provider,
			PartitionType: partition,
		},
	}
}

func curRow(account, instanceType string) models.CURRow {
	return models.CURRow{
		Columns: []string{"line_item_usage_account_id", "product_instance_type"},
		Values:  []string{account, instanceType},
	}
}

func TestCanonicalAccountID(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"123456789012", "123456789012"},
		{"123456789", "000123456789"},
		{" 42 ", "000000000042"},
		{"", ""},
		{"not-an-account", "not-an-account"},
		{"1234567890123", "1234567890123"},
	}
	for _, tc := range cases {
		if got := CanonicalAccountID(tc.in); got != tc.want {
			t.Errorf("CanonicalAccountID(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuild_ManifestStates(t *testing.T) {
	results := []StepResult{
		{
			Step:      step("ce", models.ProviderCostExplorer, "ce-monthly"),
			Result:    models.Success(models.ProviderCostExplorer, &models.ProviderData{CostSummary: &models.CostSummary{TotalCostUSD: 10}}),
			FromCache: true,
		},
		{
			Step:   step("ta", models.ProviderTrustedAdvisor, "ta-checks"),
			Result: models.Failed(models.ProviderTrustedAdvisor, models.FailureUnauthorized, "support:DescribeTrustedAdvisorChecks denied"),
		},
		{
			Step: step("co", models.ProviderComputeOptimizer, "co-ec2"),
			Result: models.PartialSuccess(models.ProviderComputeOptimizer,
				&models.ProviderData{}, "lambda recommendations unavailable"),
		},
		{
			Step:       step("graviton-ec2", models.ProviderCUR, "cur-graviton-ec2"),
			Skipped:    true,
			SkipReason: `dependency "cur" did not produce data`,
		},
	}

	model := Build(testScope(), results)

	if model.RunID == "" {
		t.Error("RunID must be set")
	}
	if model.Customer != "acme" || model.PayerAccountID != "111122223333" {
		t.Errorf("identity fields = %q/%q", model.Customer, model.PayerAccountID)
	}
	if len(model.Manifest) != 4 {
		t.Fatalf("manifest has %d entries; want one per step", len(model.Manifest))
	}

	wantStatus := []models.SectionStatus{
		models.SectionSucceeded,
		models.SectionFailed,
		models.SectionPartial,
		models.SectionSkipped,
	}
	for i, want := range wantStatus {
		if model.Manifest[i].Status != want {
			t.Errorf("manifest[%d].Status = %q; want %q", i, model.Manifest[i].Status, want)
		}
	}

	if !model.Manifest[0].FromCache {
		t.Error("cache provenance lost from the manifest")
	}
	if model.Manifest[1].FailureKind != models.FailureUnauthorized || model.Manifest[1].Detail == "" {
		t.Errorf("failed entry lacks kind/detail: %+v", model.Manifest[1])
	}
	if model.Manifest[3].SkipReason == "" {
		t.Error("skipped entry lacks its reason")
	}

	// Failed and skipped providers have no section; manifest is the record.
	if model.Section(models.ProviderTrustedAdvisor) != nil {
		t.Error("failed provider must not get a section")
	}
	if model.Section(models.ProviderCostExplorer) == nil {
		t.Error("succeeded provider missing its section")
	}
	if model.Complete() {
		t.Error("Complete() must be false with failed/skipped entries")
	}
}

func TestBuild_MergesCURStepsIntoOneSection(t *testing.T) {
	results := []StepResult{
		{
			Step: step("cur", models.ProviderCUR, "cur-base"),
			Result: models.Success(models.ProviderCUR, &models.ProviderData{
				CURRows: []models.CURRow{curRow("111122223333", "")},
			}),
		},
		{
			Step: step("graviton-ec2", models.ProviderCUR, "cur-graviton-ec2"),
			Result: models.Success(models.ProviderCUR, &models.ProviderData{
				CURRows: []models.CURRow{curRow("111122223333", "m5.xlarge")},
			}),
		},
	}

	model := Build(testScope(), results)

	section := model.Section(models.ProviderCUR)
	if section == nil {
		t.Fatal("CUR section missing")
	}
	if len(section.CURRows) != 2 {
		t.Errorf("CUR rows = %d; want both steps merged", len(section.CURRows))
	}
	if len(model.Manifest) != 2 {
		t.Errorf("manifest entries = %d; merging sections must not merge manifest rows", len(model.Manifest))
	}
}

func TestBuild_ReconciliationWarnings(t *testing.T) {
	results := []StepResult{
		{
			Step: step("ce", models.ProviderCostExplorer, "ce-monthly"),
			Result: models.Success(models.ProviderCostExplorer, &models.ProviderData{
				CostSummary: &models.CostSummary{
					AccountBreakdown: []models.AccountCost{
						{AccountID: "111122223333", CostUSD: 10},
						// Short id: must canonicalize before comparison.
						{AccountID: "42", CostUSD: 1},
					},
				},
			}),
		},
		{
			Step: step("cur", models.ProviderCUR, "cur-base"),
			Result: models.Success(models.ProviderCUR, &models.ProviderData{
				CURRows: []models.CURRow{
					curRow("111122223333", ""),
					curRow("999988887777", ""),
				},
			}),
		},
	}

	model := Build(testScope(), results)

	if len(model.ReconciliationWarnings) != 2 {
		t.Fatalf("warnings = %+v; want one per unmatched side", model.ReconciliationWarnings)
	}

	byAccount := map[string]models.ReconciliationWarning{}
	for _, w := range model.ReconciliationWarnings {
		byAccount[w.AccountID] = w
	}
	if _, ok := byAccount["999988887777"]; !ok {
		t.Error("CUR-only account not flagged")
	}
	if _, ok := byAccount["000000000042"]; !ok {
		t.Error("CE-only account not flagged with its canonical id")
	}

	// Canonicalization rewrites the section data in place.
	ce := model.Section(models.ProviderCostExplorer)
	if ce.CostSummary.AccountBreakdown[1].AccountID != "000000000042" {
		t.Errorf("account id not canonicalized: %q", ce.CostSummary.AccountBreakdown[1].AccountID)
	}
}

func TestBuild_NoWarningsWhenEitherSideMissing(t *testing.T) {
	results := []StepResult{
		{
			Step: step("ce", models.ProviderCostExplorer, "ce-monthly"),
			Result: models.Success(models.ProviderCostExplorer, &models.ProviderData{
				CostSummary: &models.CostSummary{
					AccountBreakdown: []models.AccountCost{{AccountID: "111122223333"}},
				},
			}),
		},
	}

	model := Build(testScope(), results)
	if len(model.ReconciliationWarnings) != 0 {
		t.Errorf("warnings without a CUR section: %+v", model.ReconciliationWarnings)
	}
}
