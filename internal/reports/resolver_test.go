package reports

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/registry"
)

func testScope() *registry.CustomerScope {
	return &registry.CustomerScope{
		CustomerID:       1,
		Name:             "acme",
		PayerAccountID:   "111122223333",
		MemberAccountIDs: []string{"111122223333", "444455556666"},
		AthenaS3Bucket:   "acme-athena-results",
		CURDatabase:      "cur_db",
		CURTable:         "cur_table",
		CURRegion:        "eu-west-1",
	}
}

func testWindow() Window {
	return Window{Start: "2026-07-01", End: "2026-08-01"}
}

func newTestResolver() *Resolver {
	return NewResolver(DefaultCatalog(), config.Default())
}

func fixedSelector(region string) RegionSelector {
	return RegionSelectorFunc(func(context.Context) (string, error) { return region, nil })
}

func TestResolve_UnknownReportsAllCollected(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(context.Background(),
		[]string{"ce", "zebra", "ta", "aardvark"}, testScope(), testWindow(), "", nil)

	var unknown *UnknownReportError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v; want UnknownReportError", err)
	}
	// Every offending name is reported in one pass, sorted.
	if len(unknown.Names) != 2 || unknown.Names[0] != "aardvark" || unknown.Names[1] != "zebra" {
		t.Errorf("Names = %v; want [aardvark zebra]", unknown.Names)
	}
}

func TestResolve_DependencyAddedBeforeDependent(t *testing.T) {
	r := newTestResolver()

	plan, err := r.Resolve(context.Background(),
		[]string{"graviton-ec2"}, testScope(), testWindow(), "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if len(plan.Steps) != 2 {
		t.Fatalf("plan has %d steps; want 2 (implicit cur + graviton-ec2)", len(plan.Steps))
	}
	if plan.Steps[0].ReportName != "cur" {
		t.Errorf("step 0 = %q; want cur", plan.Steps[0].ReportName)
	}
	if plan.Steps[1].ReportName != "graviton-ec2" {
		t.Errorf("step 1 = %q; want graviton-ec2", plan.Steps[1].ReportName)
	}
	if plan.Steps[1].DependsOn != "cur" {
		t.Errorf("step 1 DependsOn = %q; want cur", plan.Steps[1].DependsOn)
	}
}

func TestResolve_NoDuplicateWhenDependencyAlsoRequested(t *testing.T) {
	r := newTestResolver()

	plan, err := r.Resolve(context.Background(),
		[]string{"cur", "graviton-ec2", "graviton-lambda"}, testScope(), testWindow(), "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	seen := map[string]int{}
	for _, s := range plan.Steps {
		seen[s.ReportName]++
	}
	for name, n := range seen {
		if n != 1 {
			t.Errorf("report %q planned %d times; want 1", name, n)
		}
	}
	if len(plan.Steps) != 3 {
		t.Errorf("plan has %d steps; want 3", len(plan.Steps))
	}
}

func TestResolve_RegionOverrideBeatsSelector(t *testing.T) {
	r := newTestResolver()

	plan, err := r.Resolve(context.Background(),
		[]string{"co"}, testScope(), testWindow(), "ap-southeast-2", fixedSelector("us-west-2"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := plan.Steps[0].Query.Region; got != "ap-southeast-2" {
		t.Errorf("CO region = %q; want the override ap-southeast-2", got)
	}
}

func TestResolve_SelectorConsultedOnce(t *testing.T) {
	r := newTestResolver()

	calls := 0
	selector := RegionSelectorFunc(func(context.Context) (string, error) {
		calls++
		return "us-west-2", nil
	})

	plan, err := r.Resolve(context.Background(),
		[]string{"co", "ce"}, testScope(), testWindow(), "", selector)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if calls != 1 {
		t.Errorf("selector consulted %d times; want 1", calls)
	}
	if got := plan.Steps[0].Query.Region; got != "us-west-2" {
		t.Errorf("CO region = %q; want us-west-2", got)
	}
}

func TestResolve_RegionalProviderWithoutSelectorFails(t *testing.T) {
	r := newTestResolver()

	_, err := r.Resolve(context.Background(),
		[]string{"co"}, testScope(), testWindow(), "", nil)
	if err == nil {
		t.Fatal("expected an error when CO has no region source")
	}
}

func TestResolve_GlobalProvidersPinnedToGlobalRegion(t *testing.T) {
	r := newTestResolver()

	plan, err := r.Resolve(context.Background(),
		[]string{"ce", "ta"}, testScope(), testWindow(), "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for _, step := range plan.Steps {
		if step.Query.Region != "us-east-1" {
			t.Errorf("%s region = %q; want us-east-1", step.ReportName, step.Query.Region)
		}
	}
}

func TestResolve_CURQueryCoordinates(t *testing.T) {
	r := newTestResolver()

	plan, err := r.Resolve(context.Background(),
		[]string{"cur"}, testScope(), testWindow(), "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	q := plan.Steps[0].Query
	if q.Region != "eu-west-1" {
		t.Errorf("CUR region = %q; want the customer's CUR region", q.Region)
	}
	if q.CURDatabase != "cur_db" || q.CURTable != "cur_table" {
		t.Errorf("CUR coordinates = %q.%q; want cur_db.cur_table", q.CURDatabase, q.CURTable)
	}
	if q.ResultBucket != "acme-athena-results" {
		t.Errorf("ResultBucket = %q", q.ResultBucket)
	}
	if !strings.Contains(q.SQL, `"cur_db"."cur_table"`) {
		t.Errorf("SQL does not reference the customer table:\n%s", q.SQL)
	}
	if !strings.Contains(q.SQL, "2026-07-01") || !strings.Contains(q.SQL, "2026-08-01") {
		t.Errorf("SQL does not carry the absolute window:\n%s", q.SQL)
	}
}

func TestResolve_GravitonQueriesDifferPerPartition(t *testing.T) {
	r := newTestResolver()

	plan, err := r.Resolve(context.Background(),
		[]string{"graviton-ec2", "graviton-lambda"}, testScope(), testWindow(), "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	bySQL := map[string]string{}
	for _, step := range plan.Steps {
		bySQL[step.ReportName] = step.Query.SQL
	}
	if !strings.Contains(bySQL["graviton-ec2"], "AmazonEC2") {
		t.Errorf("graviton-ec2 SQL missing EC2 filter:\n%s", bySQL["graviton-ec2"])
	}
	if !strings.Contains(bySQL["graviton-lambda"], "AWSLambda") {
		t.Errorf("graviton-lambda SQL missing Lambda filter:\n%s", bySQL["graviton-lambda"])
	}
	if bySQL["graviton-ec2"] == bySQL["graviton-lambda"] {
		t.Error("graviton partitions produced identical SQL")
	}
}

func TestResolve_CostExplorerTagFilters(t *testing.T) {
	cfg := config.Default()
	cfg.Tags.CostExplorerTag = "team"
	cfg.Tags.CostExplorerTagValue = "platform"
	r := NewResolver(DefaultCatalog(), cfg)

	plan, err := r.Resolve(context.Background(),
		[]string{"ce"}, testScope(), testWindow(), "", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := plan.Steps[0].Query.TagFilters["team"]; got != "platform" {
		t.Errorf("TagFilters[team] = %q; want platform", got)
	}
}

func TestDefaultCatalog_Integrity(t *testing.T) {
	c := DefaultCatalog()

	for _, e := range c.All() {
		if e.DependsOn == "" {
			continue
		}
		if _, ok := c.Lookup(e.DependsOn); !ok {
			t.Errorf("report %q depends on unknown report %q", e.Name, e.DependsOn)
		}
	}

	if _, ok := c.Lookup("ce"); !ok {
		t.Error("catalog is missing the ce report")
	}
}

func TestCatalogRegister_PanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate report name")
		}
	}()
	c := NewCatalog()
	c.Register(CatalogEntry{Name: "ce", Provider: models.ProviderCostExplorer, PartitionType: "p"})
	c.Register(CatalogEntry{Name: "ce", Provider: models.ProviderCostExplorer, PartitionType: "p"})
}
