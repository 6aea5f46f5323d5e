package ce

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ceapi "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"

	"github.com/costpilot/costpilot/internal/logging"
	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
)

// mockCE answers GetCostAndUsage per grouping dimension.
type mockCE struct {
	byService map[string]string
	byAccount map[string]string

	serviceErr error
	accountErr error

	lastFilter *cetypes.Expression
}

func (m *mockCE) GetCostAndUsage(ctx context.Context, params *ceapi.GetCostAndUsageInput, optFns ...func(*ceapi.Options)) (*ceapi.GetCostAndUsageOutput, error) {
	m.lastFilter = params.Filter

	dimension := aws.ToString(params.GroupBy[0].Key)
	var groups map[string]string
	switch dimension {
	case "SERVICE":
		if m.serviceErr != nil {
			return nil, m.serviceErr
		}
		groups = m.byService
	case "LINKED_ACCOUNT":
		if m.accountErr != nil {
			return nil, m.accountErr
		}
		groups = m.byAccount
	}

	var result cetypes.ResultByTime
	for key, amount := range groups {
		result.Groups = append(result.Groups, cetypes.Group{
			Keys: []string{key},
			Metrics: map[string]cetypes.MetricValue{
				"UnblendedCost": {Amount: aws.String(amount)},
			},
		})
	}
	return &ceapi.GetCostAndUsageOutput{ResultsByTime: []cetypes.ResultByTime{result}}, nil
}

func newTestAdapter(client *mockCE) *Adapter {
	a := New(client, logging.Sugar)
	a.retryer = &common.Retryer{}
	return a
}

func ceQuery() models.Query {
	return models.Query{
		Provider:      models.ProviderCostExplorer,
		PartitionType: "ce-monthly",
		AccountIDs:    []string{"111122223333"},
		Start:         "2026-07-01",
		End:           "2026-08-01",
	}
}

func TestFetch_Success(t *testing.T) {
	client := &mockCE{
		byService: map[string]string{
			"Amazon Elastic Compute Cloud - Compute": "120.50",
			"Amazon Simple Storage Service":          "30.25",
			"AWS Lambda":                             "0",
		},
		byAccount: map[string]string{"111122223333": "150.75"},
	}
	a := newTestAdapter(client)

	res := a.Fetch(context.Background(), ceQuery())
	if !res.OK() || len(res.Warnings) != 0 {
		t.Fatalf("want full success, got %+v", res)
	}

	s := res.Data.CostSummary
	if s.TotalCostUSD != 150.75 {
		t.Errorf("TotalCostUSD = %v; want 150.75", s.TotalCostUSD)
	}
	// Zero-cost services are dropped; the rest sort most expensive first.
	if len(s.ServiceBreakdown) != 2 {
		t.Fatalf("ServiceBreakdown has %d entries; want 2", len(s.ServiceBreakdown))
	}
	if s.ServiceBreakdown[0].CostUSD < s.ServiceBreakdown[1].CostUSD {
		t.Error("service breakdown not sorted by descending cost")
	}
	if len(s.AccountBreakdown) != 1 || s.AccountBreakdown[0].AccountID != "111122223333" {
		t.Errorf("AccountBreakdown = %+v", s.AccountBreakdown)
	}
	if s.PeriodStart != "2026-07-01" || s.PeriodEnd != "2026-08-01" {
		t.Errorf("period = %s..%s", s.PeriodStart, s.PeriodEnd)
	}
}

func TestFetch_AccountBreakdownFailureIsPartial(t *testing.T) {
	client := &mockCE{
		byService:  map[string]string{"AWS Lambda": "5.00"},
		accountErr: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"},
	}
	a := newTestAdapter(client)

	res := a.Fetch(context.Background(), ceQuery())
	if !res.OK() {
		t.Fatalf("partial data must still be OK: %+v", res)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("want 1 warning, got %v", res.Warnings)
	}
	if res.Data.CostSummary.TotalCostUSD != 5.00 {
		t.Errorf("service totals lost in partial result: %+v", res.Data.CostSummary)
	}
}

func TestFetch_ServiceFailureIsTerminal(t *testing.T) {
	client := &mockCE{
		serviceErr: &smithy.GenericAPIError{Code: "DataUnavailableException", Message: "CE not enabled"},
	}
	a := newTestAdapter(client)

	res := a.Fetch(context.Background(), ceQuery())
	if res.Failure == nil {
		t.Fatal("expected a failure result")
	}
	if res.Failure.Kind != models.FailureServiceDisabled {
		t.Errorf("kind = %q; want ServiceDisabled", res.Failure.Kind)
	}
}

func TestFetch_FilterScopesToAccounts(t *testing.T) {
	client := &mockCE{byService: map[string]string{}, byAccount: map[string]string{}}
	a := newTestAdapter(client)

	a.Fetch(context.Background(), ceQuery())
	if client.lastFilter == nil || client.lastFilter.Dimensions == nil {
		t.Fatal("query account scope did not reach the CE filter")
	}
	if got := client.lastFilter.Dimensions.Values; len(got) != 1 || got[0] != "111122223333" {
		t.Errorf("filter accounts = %v", got)
	}
}

func TestBuildFilter_CombinesAccountsAndTags(t *testing.T) {
	q := ceQuery()
	q.TagFilters = map[string]string{"team": "platform"}

	f := buildFilter(q)
	if f == nil || f.And == nil || len(f.And) != 2 {
		t.Fatalf("want And of 2 expressions, got %+v", f)
	}
}
