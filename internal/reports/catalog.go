// Package reports defines the report catalog and turns requested report
// names into an ordered, validated execution plan.
package reports

import (
	"fmt"

	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/store"
)

// CatalogEntry describes one report the tool can produce. The catalog is
// read-only reference data: the resolver validates requested names against
// it before any fetch is dispatched.
type CatalogEntry struct {
	// Name is the unique report name users request (e.g. "ce", "graviton-ec2").
	Name string

	// Provider is the data source that backs this report.
	Provider models.Provider

	// PartitionType labels the cache partition for this report's query shape.
	PartitionType string

	// Description is display metadata for `reports list`.
	Description string

	// DependsOn names a report whose fetch must complete before this one
	// runs. Empty for independent reports. Used for CUR-derived checks that
	// consume the CUR query result.
	DependsOn string
}

// Catalog is an ordered, name-unique set of catalog entries.
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// Register adds an entry. Panics on duplicate names or unknown providers to
// catch wiring mistakes at startup.
func (c *Catalog) Register(e CatalogEntry) {
	if _, exists := c.index[e.Name]; exists {
		panic(fmt.Sprintf("duplicate report name: %q", e.Name))
	}
	if !e.Provider.Valid() {
		panic(fmt.Sprintf("report %q has unknown provider %q", e.Name, e.Provider))
	}
	c.index[e.Name] = len(c.entries)
	c.entries = append(c.entries, e)
}

// Lookup returns the entry for name and whether it exists.
func (c *Catalog) Lookup(name string) (CatalogEntry, bool) {
	i, ok := c.index[name]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// All returns every entry in registration order.
func (c *Catalog) All() []CatalogEntry {
	return c.entries
}

// DefaultCatalog returns the built-in report set.
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register(CatalogEntry{
		Name:          "ce",
		Provider:      models.ProviderCostExplorer,
		PartitionType: "ce-monthly",
		Description:   "Cost Explorer monthly spend by service and account",
	})
	c.Register(CatalogEntry{
		Name:          "ta",
		Provider:      models.ProviderTrustedAdvisor,
		PartitionType: "ta-checks",
		Description:   "Trusted Advisor cost-optimization check summaries",
	})
	c.Register(CatalogEntry{
		Name:          "co",
		Provider:      models.ProviderComputeOptimizer,
		PartitionType: "co-ec2",
		Description:   "Compute Optimizer EC2 and Lambda rightsizing findings",
	})
	c.Register(CatalogEntry{
		Name:          "cur",
		Provider:      models.ProviderCUR,
		PartitionType: "cur-base",
		Description:   "Cost & Usage Report base query via Athena",
	})
	c.Register(CatalogEntry{
		Name:          "graviton-ec2",
		Provider:      models.ProviderCUR,
		PartitionType: "cur-graviton-ec2",
		Description:   "EC2 Graviton migration savings derived from CUR usage",
		DependsOn:     "cur",
	})
	c.Register(CatalogEntry{
		Name:          "graviton-lambda",
		Provider:      models.ProviderCUR,
		PartitionType: "cur-graviton-lambda",
		Description:   "Lambda Graviton (arm64) savings derived from CUR usage",
		DependsOn:     "cur",
	})
	return c
}

// StoreRows converts the catalog to available_reports rows for seeding the
// database copy of the catalog.
func (c *Catalog) StoreRows() []store.AvailableReport {
	rows := make([]store.AvailableReport, 0, len(c.entries))
	for _, e := range c.entries {
		rows = append(rows, store.AvailableReport{
			Name:        e.Name,
			Description: e.Description,
			Provider:    string(e.Provider),
			CommonName:  e.Name,
			Display:     true,
		})
	}
	return rows
}
