// Package ce is the Cost Explorer provider adapter.
package ce

import (
	"context"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	ceapi "github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"go.uber.org/zap"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
)

// ceCallsPerSecond bounds Cost Explorer request rate. CE enforces a low
// account-wide TPS and its calls are billed per request.
const ceCallsPerSecond = 4

// Adapter fetches account-level billing data from Cost Explorer.
type Adapter struct {
	client  common.CostExplorerClient
	retryer *common.Retryer
	log     *zap.SugaredLogger
}

// New returns a Cost Explorer adapter using client.
func New(client common.CostExplorerClient, log *zap.SugaredLogger) *Adapter {
	return &Adapter{
		client:  client,
		retryer: common.NewRetryer(ceCallsPerSecond, log),
		log:     log,
	}
}

// Provider implements common.Adapter.
func (a *Adapter) Provider() models.Provider { return models.ProviderCostExplorer }

// Fetch runs two monthly-granularity GetCostAndUsage queries over the
// query's absolute window: one grouped by service, one grouped by linked
// account. The account grouping failing is a partial success: the service
// breakdown alone still makes a renderable CE section.
func (a *Adapter) Fetch(ctx context.Context, q models.Query) models.Result {
	services, err := a.costsBy(ctx, q, "SERVICE")
	if err != nil {
		kind := common.Classify(err)
		return models.Failed(a.Provider(), kind, err.Error())
	}

	summary := &models.CostSummary{
		PeriodStart:      q.Start,
		PeriodEnd:        q.End,
		ServiceBreakdown: make([]models.ServiceCost, 0, len(services)),
	}
	for service, cost := range services {
		if cost <= 0 {
			continue
		}
		summary.TotalCostUSD += cost
		summary.ServiceBreakdown = append(summary.ServiceBreakdown, models.ServiceCost{
			Service: service,
			CostUSD: cost,
		})
	}
	// Most expensive first.
	sort.Slice(summary.ServiceBreakdown, func(i, j int) bool {
		return summary.ServiceBreakdown[i].CostUSD > summary.ServiceBreakdown[j].CostUSD
	})

	data := &models.ProviderData{CostSummary: summary}

	accounts, err := a.costsBy(ctx, q, "LINKED_ACCOUNT")
	if err != nil {
		a.log.Warnw("CE linked-account breakdown unavailable", "error", err)
		return models.PartialSuccess(a.Provider(), data,
			"linked-account breakdown unavailable: "+err.Error())
	}
	for account, cost := range accounts {
		summary.AccountBreakdown = append(summary.AccountBreakdown, models.AccountCost{
			AccountID: account,
			CostUSD:   cost,
		})
	}
	sort.Slice(summary.AccountBreakdown, func(i, j int) bool {
		return summary.AccountBreakdown[i].CostUSD > summary.AccountBreakdown[j].CostUSD
	})

	return models.Success(a.Provider(), data)
}

// costsBy pages through GetCostAndUsage grouped by the given dimension and
// returns key → summed cost across all returned time periods. Each page call
// goes through the retryer.
func (a *Adapter) costsBy(ctx context.Context, q models.Query, dimension string) (map[string]float64, error) {
	totals := make(map[string]float64)

	var nextToken *string
	for {
		input := &ceapi.GetCostAndUsageInput{
			TimePeriod: &cetypes.DateInterval{
				Start: aws.String(q.Start),
				End:   aws.String(q.End),
			},
			Granularity: cetypes.GranularityMonthly,
			Metrics:     []string{"UnblendedCost"},
			GroupBy: []cetypes.GroupDefinition{
				{
					Key:  aws.String(dimension),
					Type: cetypes.GroupDefinitionTypeDimension,
				},
			},
			Filter:        buildFilter(q),
			NextPageToken: nextToken,
		}

		var out *ceapi.GetCostAndUsageOutput
		_, err := a.retryer.Do(ctx, "GetCostAndUsage", func(ctx context.Context) error {
			var callErr error
			out, callErr = a.client.GetCostAndUsage(ctx, input)
			return callErr
		})
		if err != nil {
			return nil, err
		}

		for _, result := range out.ResultsByTime {
			for _, group := range result.Groups {
				if len(group.Keys) == 0 {
					continue
				}
				metric, ok := group.Metrics["UnblendedCost"]
				if !ok {
					continue
				}
				totals[group.Keys[0]] += parseCostFloat(metric.Amount)
			}
		}

		if out.NextPageToken == nil {
			break
		}
		nextToken = out.NextPageToken
	}

	return totals, nil
}

// buildFilter combines the query's account scope and tag filters into a CE
// expression. Returns nil when nothing is filtered.
func buildFilter(q models.Query) *cetypes.Expression {
	var exprs []cetypes.Expression

	if len(q.AccountIDs) > 0 {
		exprs = append(exprs, cetypes.Expression{
			Dimensions: &cetypes.DimensionValues{
				Key:    cetypes.DimensionLinkedAccount,
				Values: q.AccountIDs,
			},
		})
	}
	for key, value := range q.TagFilters {
		exprs = append(exprs, cetypes.Expression{
			Tags: &cetypes.TagValues{
				Key:    aws.String(key),
				Values: []string{value},
			},
		})
	}

	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return &exprs[0]
	default:
		return &cetypes.Expression{And: exprs}
	}
}

// parseCostFloat converts a CE amount string to a float64. Nil or malformed
// amounts count as zero.
func parseCostFloat(amount *string) float64 {
	if amount == nil {
		return 0
	}
	v, err := strconv.ParseFloat(*amount, 64)
	if err != nil {
		return 0
	}
	return v
}
