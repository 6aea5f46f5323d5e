package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/providers/aws/common"
	"github.com/costpilot/costpilot/internal/store"
)

// DoctorResult is the structured output of costpilot doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable table
// (default).
type DoctorResult struct {
	Config struct {
		Path  string `json:"path"`
		Valid bool   `json:"valid"`
		Error string `json:"error,omitempty"`
	} `json:"config"`

	AWS struct {
		Profile     string `json:"profile,omitempty"`
		Credentials bool   `json:"credentials_ok"`
		AccountID   string `json:"account_id,omitempty"`
		Error       string `json:"error,omitempty"`
	} `json:"aws"`

	Database struct {
		Path      string `json:"path"`
		OK        bool   `json:"ok"`
		Customers int    `json:"customers"`
		Error     string `json:"error,omitempty"`
	} `json:"database"`

	GenAI struct {
		Enabled bool   `json:"enabled"`
		ModelID string `json:"model_id,omitempty"`
	} `json:"genai"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "doctor",
		Short:         "Run environment diagnostics",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			profile, _ := cmd.Flags().GetString("profile")
			result, err := runDoctor(
				cmd.Context(),
				common.NewDefaultAWSClientProvider(),
				cmd.OutOrStdout(),
				*configPath,
				format,
				profile,
			)
			if err != nil {
				// Rendering failure, let Cobra/main handle it.
				return err
			}
			if !result.OverallHealthy {
				// Exit directly so no error text reaches main.go's
				// fmt.Fprintln(os.Stderr, err) path.
				os.Exit(1)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	cmd.Flags().String("profile", "", "AWS profile to check (default: credential chain)")
	return cmd
}

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers must inspect result.OverallHealthy.
func runDoctor(ctx context.Context, awsProvider common.AWSClientProvider, w io.Writer, configPath, format, profile string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, awsProvider, configPath, profile)

	switch format {
	case "json":
		if err := json.NewEncoder(w).Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}

	return result, nil
}

// collectDoctorResult runs every environment check and populates a
// DoctorResult. It performs no rendering; callers decide presentation.
func collectDoctorResult(ctx context.Context, awsProvider common.AWSClientProvider, configPath, profile string) DoctorResult {
	var result DoctorResult

	// Config: load → parse. A missing file is healthy (defaults apply).
	loader := config.NewFileLoader(configPath)
	result.Config.Path = loader.ConfigPath()
	cfg, err := loader.Load()
	if err != nil {
		result.Config.Error = err.Error()
		cfg = config.Default()
	} else {
		result.Config.Valid = true
	}

	result.GenAI.Enabled = cfg.GenAI.Enabled
	if cfg.GenAI.Enabled {
		result.GenAI.ModelID = cfg.GenAI.ModelID
	}

	// AWS: credentials → STS account ID. An empty profile string selects the
	// default credential chain.
	if profile == "" {
		profile = cfg.AWS.DefaultProfile
	}
	if profile != "" {
		result.AWS.Profile = profile
	}
	profileCfg, err := awsProvider.LoadProfile(ctx, profile)
	if err != nil {
		result.AWS.Error = err.Error()
	} else {
		result.AWS.Credentials = true
		result.AWS.AccountID = profileCfg.AccountID
	}

	// Database: open → schema → customer count.
	result.Database.Path = config.DefaultDatabasePath(cfg)
	st, err := store.Open(result.Database.Path)
	if err != nil {
		result.Database.Error = err.Error()
	} else {
		defer st.Close()
		customers, err := st.ListCustomers()
		if err != nil {
			result.Database.Error = err.Error()
		} else {
			result.Database.OK = true
			result.Database.Customers = len(customers)
		}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.AWS.Credentials &&
		result.Database.OK

	return result
}

// renderDoctorTable writes the human-readable diagnostic output to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	if result.Config.Valid {
		doctorPrint(w, "File", "OK", result.Config.Path)
	} else {
		doctorPrint(w, "File", "FAIL", result.Config.Error)
	}

	if result.AWS.Profile != "" {
		fmt.Fprintf(w, "\nAWS (profile: %s):\n", result.AWS.Profile)
	} else {
		fmt.Fprintln(w, "\nAWS:")
	}
	if result.AWS.Credentials {
		doctorPrint(w, "Credentials", "OK", "")
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
	} else {
		doctorPrint(w, "Credentials", "FAIL", result.AWS.Error)
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	}

	fmt.Fprintln(w, "\nDatabase:")
	if result.Database.OK {
		doctorPrint(w, "Store", "OK", result.Database.Path)
		doctorPrint(w, "Customers", "OK", fmt.Sprintf("%d configured", result.Database.Customers))
	} else {
		doctorPrint(w, "Store", "FAIL", result.Database.Error)
	}

	fmt.Fprintln(w, "\nAI:")
	if result.GenAI.Enabled {
		doctorPrint(w, "Bedrock", "Enabled", result.GenAI.ModelID)
	} else {
		doctorPrint(w, "Bedrock", "Disabled (optional)", "")
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
