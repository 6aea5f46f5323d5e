package main

import (
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/spf13/cobra"

	"github.com/costpilot/costpilot/internal/genai"
	"github.com/costpilot/costpilot/internal/logging"
)

func newAskCmd(configPath *string) *cobra.Command {
	var artifact string

	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a natural-language question about a generated report",
		Long: `Ask a natural-language question about a generated report artifact.

The artifact is a JSON report written by "report run --output". The answer is
grounded in the artifact's data only; no new AWS data is fetched.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv(*configPath)
			if err != nil {
				return err
			}
			defer env.Close()

			report, err := genai.LoadArtifact(artifact)
			if err != nil {
				return err
			}

			genaiCfg := env.cfg.GenAI
			region := genaiCfg.Region
			if region == "" {
				region = env.cfg.AWS.DefaultRegion
			}
			awsCfg, err := awsconfig.LoadDefaultConfig(cmd.Context(), awsconfig.WithRegion(region))
			if err != nil {
				return fmt.Errorf("load AWS config for AI backend: %w", err)
			}

			client := genai.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), genaiCfg, logging.Sugar)
			if !client.IsAvailable(cmd.Context()) {
				return fmt.Errorf("AI answering is disabled; set genai.enabled and genai.model_id in the configuration file")
			}

			answer, err := client.Answer(cmd.Context(), strings.Join(args, " "), report)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&artifact, "artifact", "", "Path to a JSON report artifact (required)")
	_ = cmd.MarkFlagRequired("artifact")
	return cmd
}
