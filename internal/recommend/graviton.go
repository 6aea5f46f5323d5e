package recommend

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/costpilot/costpilot/internal/models"
)

// lambdaArmDiscount is the approximate price advantage of arm64 Lambda over
// x86_64 for the same GB-seconds.
var lambdaArmDiscount = decimal.NewFromFloat(0.20)

// GravitonEC2Rule estimates savings from moving x86 EC2 usage found in the
// CUR to the default Graviton equivalent of each instance family.
type GravitonEC2Rule struct{}

func (GravitonEC2Rule) ID() string   { return "GRAVITON_EC2" }
func (GravitonEC2Rule) Name() string { return "EC2 Graviton migration savings" }

// Evaluate walks CUR rows produced by the graviton-ec2 query (recognised by
// their product_instance_type column) and prices each instance type against
// its Graviton equivalent. Rows with no mapping or no pricing data are
// skipped silently: absent reference data must not produce noise.
func (GravitonEC2Rule) Evaluate(ctx RuleContext) []models.Recommendation {
	curData := ctx.Model.Section(models.ProviderCUR)
	if curData == nil || ctx.Pricing == nil {
		return nil
	}

	minSpend := decimal.NewFromInt(ctx.Scope.MinSpendUSD)

	var recs []models.Recommendation
	for _, row := range curData.CURRows {
		instanceType, ok := row.Value("product_instance_type")
		if !ok || instanceType == "" {
			continue
		}
		region, _ := row.Value("product_region")
		accountID, _ := row.Value("line_item_usage_account_id")

		cost := decimalColumn(row, "cost")
		if cost.LessThan(minSpend) {
			continue
		}

		hourlySaving, equivalent, err := ctx.Pricing.GravitonSavings(instanceType, region)
		if err != nil || !hourlySaving.IsPositive() {
			continue
		}

		hours := decimalColumn(row, "usage_hours")
		monthlySaving := hourlySaving.Mul(hours)
		if !monthlySaving.IsPositive() {
			continue
		}

		saving, _ := monthlySaving.Round(2).Float64()
		recs = append(recs, models.Recommendation{
			RuleID:     "GRAVITON_EC2",
			AccountID:  accountID,
			ResourceID: instanceType,
			Message: fmt.Sprintf("migrate %s usage in %s to %s (Graviton)",
				instanceType, region, equivalent),
			SavingsUSD: saving,
		})
	}
	return recs
}

// GravitonLambdaRule estimates savings from moving x86_64 Lambda usage to
// arm64, using the flat arm price advantage rather than per-region rates.
type GravitonLambdaRule struct{}

func (GravitonLambdaRule) ID() string   { return "GRAVITON_LAMBDA" }
func (GravitonLambdaRule) Name() string { return "Lambda arm64 migration savings" }

func (GravitonLambdaRule) Evaluate(ctx RuleContext) []models.Recommendation {
	curData := ctx.Model.Section(models.ProviderCUR)
	if curData == nil {
		return nil
	}

	minSpend := decimal.NewFromInt(ctx.Scope.MinSpendUSD)

	var recs []models.Recommendation
	for _, row := range curData.CURRows {
		// Lambda graviton rows carry gb_seconds; EC2 rows do not.
		if _, ok := row.Value("gb_seconds"); !ok {
			continue
		}
		region, _ := row.Value("product_region")
		accountID, _ := row.Value("line_item_usage_account_id")

		cost := decimalColumn(row, "cost")
		if cost.LessThan(minSpend) {
			continue
		}

		saving, _ := cost.Mul(lambdaArmDiscount).Round(2).Float64()
		if saving <= 0 {
			continue
		}
		recs = append(recs, models.Recommendation{
			RuleID:    "GRAVITON_LAMBDA",
			AccountID: accountID,
			Message: fmt.Sprintf("move x86_64 Lambda usage in %s to arm64 (~20%% cheaper per GB-second)",
				region),
			SavingsUSD: saving,
		})
	}
	return recs
}

// decimalColumn parses the named column as a decimal, zero when absent or
// malformed.
func decimalColumn(row models.CURRow, column string) decimal.Decimal {
	raw, ok := row.Value(column)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
