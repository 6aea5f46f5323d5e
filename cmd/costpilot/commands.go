package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/costpilot/costpilot/internal/cache"
	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/engine"
	"github.com/costpilot/costpilot/internal/logging"
	"github.com/costpilot/costpilot/internal/models"
	"github.com/costpilot/costpilot/internal/output"
	"github.com/costpilot/costpilot/internal/pricing"
	"github.com/costpilot/costpilot/internal/providers/aws/ce"
	"github.com/costpilot/costpilot/internal/providers/aws/co"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
	"github.com/costpilot/costpilot/internal/providers/aws/cur"
	"github.com/costpilot/costpilot/internal/providers/aws/ta"
	"github.com/costpilot/costpilot/internal/recommend"
	"github.com/costpilot/costpilot/internal/registry"
	"github.com/costpilot/costpilot/internal/reports"
	"github.com/costpilot/costpilot/internal/store"
	"github.com/costpilot/costpilot/internal/version"
)

// appEnv bundles the dependencies shared by every subcommand: the loaded
// configuration snapshot and the open local store.
type appEnv struct {
	cfg *config.Config
	st  *store.Store
}

func (e *appEnv) Close() {
	logging.Sync()
	_ = e.st.Close()
}

// openEnv loads configuration, initializes logging, opens the store, and
// seeds the report catalog. Every subcommand goes through here so a first run
// with no config file and no database still works.
func openEnv(configPath string) (*appEnv, error) {
	cfg, err := config.NewFileLoader(configPath).Load()
	if err != nil {
		return nil, err
	}
	logging.Initialize(cfg.Logging.Level, cfg.Logging.JSON)

	st, err := store.Open(config.DefaultDatabasePath(cfg))
	if err != nil {
		return nil, err
	}
	if err := st.SeedAvailableReports(reports.DefaultCatalog().StoreRows()); err != nil {
		st.Close()
		return nil, err
	}
	return &appEnv{cfg: cfg, st: st}, nil
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "costpilot",
		Short: "CostPilot: AWS cost report orchestration and caching engine",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/costpilot/config.yaml)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newReportCmd(&configPath))
	root.AddCommand(newReportsCmd(&configPath))
	root.AddCommand(newCustomerCmd(&configPath))
	root.AddCommand(newCacheCmd(&configPath))
	root.AddCommand(newAskCmd(&configPath))
	root.AddCommand(newDoctorCmd(&configPath))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}

func newReportCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate cost reports",
	}
	cmd.AddCommand(newReportRunCmd(configPath))
	return cmd
}

func newReportRunCmd(configPath *string) *cobra.Command {
	var (
		customer   string
		reportsArg []string
		region     string
		start      string
		end        string
		days       int
		reportFmt  string
		outPath    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the report plan for a customer and render the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			eng, err := buildEngine(cmd.Context(), env, customer, region)
			if err != nil {
				return err
			}

			model, err := eng.Run(cmd.Context(), engine.RunOptions{
				Customer:       customer,
				Reports:        reportsArg,
				RegionOverride: region,
				Start:          start,
				End:            end,
				DaysBack:       days,
			})
			if err != nil {
				return fmt.Errorf("report run failed: %w", err)
			}

			if outPath != "" {
				if err := output.WriteArtifact(outPath, model); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report artifact written to %s\n", outPath)
			}

			if reportFmt == "json" {
				return output.WriteJSON(cmd.OutOrStdout(), model)
			}
			printReport(cmd, model)
			return nil
		},
	}

	cmd.Flags().StringVar(&customer, "customer", "", "Customer name to run the report for (required)")
	cmd.Flags().StringSliceVar(&reportsArg, "reports", nil, "Report names to run (default: all catalog reports)")
	cmd.Flags().StringVar(&region, "region", "", "Region for regional providers (default: configured default region)")
	cmd.Flags().StringVar(&start, "start", "", "Window start date (YYYY-MM-DD); requires --end")
	cmd.Flags().StringVar(&end, "end", "", "Window end date (YYYY-MM-DD, exclusive); requires --start")
	cmd.Flags().IntVar(&days, "days", 30, "Lookback window in days when --start/--end are not given")
	cmd.Flags().StringVar(&reportFmt, "format", "table", "Output format: json or table")
	cmd.Flags().StringVar(&outPath, "output", "", "Write the full JSON report artifact to this path")
	_ = cmd.MarkFlagRequired("customer")

	return cmd
}

// clientRegions returns the regions the per-provider SDK clients are built
// for. Each one must match the region the resolver stamps into that
// provider's queries: a client pointed anywhere else would cache one
// region's data under another region's fingerprint.
func clientRegions(cfg *config.Config, scope *registry.CustomerScope, regionOverride string) (global, coRegion, curRegion string) {
	global = cfg.AWS.GlobalServiceRegion

	coRegion = regionOverride
	if coRegion == "" {
		coRegion = cfg.AWS.DefaultRegion
	}

	curRegion = scope.CURRegion
	if curRegion == "" {
		curRegion = cfg.AWS.GlobalServiceRegion
	}
	return global, coRegion, curRegion
}

// buildEngine wires the full orchestration stack for one customer. The
// customer scope is resolved up front because the service clients must be
// constructed for the same regions the resolver will put in the plan.
func buildEngine(ctx context.Context, env *appEnv, customer, regionOverride string) (engine.Engine, error) {
	log := logging.Sugar

	reg := registry.New(env.st)
	scope, err := reg.Resolve(customer)
	if err != nil {
		return nil, err
	}

	awsProvider := common.NewDefaultAWSClientProvider()
	profile := scope.Profile
	if profile == "" {
		profile = env.cfg.AWS.DefaultProfile
	}
	profileCfg, err := awsProvider.LoadProfile(ctx, profile)
	if err != nil {
		return nil, err
	}

	globalRegion, coRegion, curRegion := clientRegions(env.cfg, scope, regionOverride)
	globalClients := awsProvider.Factory()(awsProvider.ConfigForRegion(profileCfg, globalRegion))
	coClients := awsProvider.Factory()(awsProvider.ConfigForRegion(profileCfg, coRegion))
	curClients := awsProvider.Factory()(awsProvider.ConfigForRegion(profileCfg, curRegion))

	adapters := map[models.Provider]common.Adapter{
		models.ProviderCostExplorer:     ce.New(globalClients.CostExplorer, log),
		models.ProviderTrustedAdvisor:   ta.New(globalClients.Support, log),
		models.ProviderComputeOptimizer: co.New(coClients.ComputeOptimizer, log),
		models.ProviderCUR:              cur.New(curClients.Athena, curClients.S3, log),
	}

	// Non-interactive region policy: when no --region override is given,
	// regional providers fall back to the configured default region.
	selector := reports.RegionSelectorFunc(func(context.Context) (string, error) {
		return env.cfg.AWS.DefaultRegion, nil
	})

	return engine.New(
		reg,
		reports.NewResolver(reports.DefaultCatalog(), env.cfg),
		cache.New(env.st, log),
		adapters,
		selector,
		recommend.DefaultRegistry(pricing.NewService(env.st)),
		log,
	), nil
}

// printReport renders the human-readable view: manifest, cost summary,
// recommendations, and reconciliation warnings.
func printReport(cmd *cobra.Command, model *models.ReportModel) {
	w := cmd.OutOrStdout()
	opts := output.TableOptions{Colored: isTerminal()}

	fmt.Fprintf(w, "Customer: %s  Payer: %s  Run: %s\n\n",
		model.Customer, model.PayerAccountID, model.RunID)

	output.RenderManifest(w, model, opts)

	if ceData := model.Section(models.ProviderCostExplorer); ceData != nil {
		fmt.Fprintln(w)
		output.RenderCostSummary(w, ceData.CostSummary)
	}

	fmt.Fprintln(w)
	output.RenderRecommendations(w, model.Recommendations, opts)

	if len(model.ReconciliationWarnings) > 0 {
		fmt.Fprintln(w)
		output.RenderWarnings(w, model.ReconciliationWarnings)
	}
}

// isTerminal reports whether stdout is a character device, gating ANSI color.
func isTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func newReportsCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Inspect the report catalog",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every report the tool can produce",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			w := cmd.OutOrStdout()
			header := fmt.Sprintf("%-18s  %-10s  %-22s  %s", "NAME", "PROVIDER", "DEPENDS ON", "DESCRIPTION")
			fmt.Fprintln(w, header)
			fmt.Fprintln(w, strings.Repeat("-", len(header)+40))
			for _, e := range reports.DefaultCatalog().All() {
				dep := e.DependsOn
				if dep == "" {
					dep = "-"
				}
				fmt.Fprintf(w, "%-18s  %-10s  %-22s  %s\n", e.Name, e.Provider, dep, e.Description)
			}
			return nil
		},
	})
	return cmd
}

func newCustomerCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "Manage customer definitions",
	}
	cmd.AddCommand(newCustomerConfigureCmd(configPath))
	cmd.AddCommand(newCustomerListCmd(configPath))
	cmd.AddCommand(newCustomerDeleteCmd(configPath))
	return cmd
}

func newCustomerConfigureCmd(configPath *string) *cobra.Command {
	var (
		name      string
		email     string
		profile   string
		bucket    string
		curDB     string
		curTable  string
		curRegion string
		minSpend  int64
		accRegex  string
		payers    []string
	)

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Create or update a customer definition",
		Long: `Create or update a customer definition.

Payer mappings are given as --payer PAYER_ID=ACCOUNT_ID and may be repeated.
Re-configuring an existing customer updates its mutable fields; the internal
customer id, and with it the cache partition, is preserved.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			c := &store.Customer{
				Name:           name,
				Email:          email,
				AWSProfile:     profile,
				AthenaS3Bucket: bucket,
				CURDatabase:    curDB,
				CURTable:       curTable,
				CURRegion:      curRegion,
				MinSpend:       minSpend,
				AccountRegex:   accRegex,
			}
			id, err := env.st.UpsertCustomer(c)
			if err != nil {
				return err
			}

			for _, pair := range payers {
				payerID, accountID, ok := strings.Cut(pair, "=")
				if !ok || payerID == "" || accountID == "" {
					return fmt.Errorf("invalid --payer %q: expected PAYER_ID=ACCOUNT_ID", pair)
				}
				err := env.st.PutPayerAccount(&store.PayerAccount{
					PayerID:    payerID,
					AccountID:  accountID,
					CustomerID: id,
				})
				if err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Customer %q configured (id %d, %d payer mapping(s))\n",
				name, id, len(payers))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Unique customer name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Report delivery address")
	cmd.Flags().StringVar(&profile, "profile", "", "AWS profile for this customer's API calls")
	cmd.Flags().StringVar(&bucket, "athena-bucket", "", "S3 bucket for Athena query results")
	cmd.Flags().StringVar(&curDB, "cur-database", "", "Athena database holding the Cost & Usage Report")
	cmd.Flags().StringVar(&curTable, "cur-table", "", "Athena table holding the Cost & Usage Report")
	cmd.Flags().StringVar(&curRegion, "cur-region", "", "Region the CUR Athena workgroup runs in")
	cmd.Flags().Int64Var(&minSpend, "min-spend", 0, "Monthly USD threshold below which recommendations are suppressed")
	cmd.Flags().StringVar(&accRegex, "account-regex", "", "Regex filtering member accounts by name")
	cmd.Flags().StringSliceVar(&payers, "payer", nil, "Payer mapping PAYER_ID=ACCOUNT_ID (repeatable)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newCustomerListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured customers",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			customers, err := env.st.ListCustomers()
			if err != nil {
				return err
			}
			if len(customers) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No customers configured.")
				return nil
			}

			w := cmd.OutOrStdout()
			header := fmt.Sprintf("%-24s  %-16s  %-20s  %s", "NAME", "PROFILE", "CUR DATABASE", "LAST USED")
			fmt.Fprintln(w, header)
			fmt.Fprintln(w, strings.Repeat("-", len(header)))
			for _, c := range customers {
				fmt.Fprintf(w, "%-24s  %-16s  %-20s  %s\n",
					c.Name, c.AWSProfile, c.CURDatabase, c.LastUsedTime.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newCustomerDeleteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a customer and everything owned by it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.st.DeleteCustomer(args[0]); err != nil {
				return fmt.Errorf("delete customer %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Customer %q deleted.\n", args[0])
			return nil
		},
	}
}

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local result cache",
	}

	var customer string
	purge := &cobra.Command{
		Use:   "purge",
		Short: "Remove every cached result for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			reg := registry.New(env.st)
			scope, err := reg.Resolve(customer)
			if err != nil {
				return err
			}

			n, err := cache.New(env.st, logging.Sugar).Purge(scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cache entries for %q.\n", n, customer)
			return nil
		},
	}
	purge.Flags().StringVar(&customer, "customer", "", "Customer whose cache to purge (required)")
	_ = purge.MarkFlagRequired("customer")

	cmd.AddCommand(purge)
	return cmd
}
