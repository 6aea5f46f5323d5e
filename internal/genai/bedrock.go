package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/models"
)

// ConverseAPI is the subset of Bedrock Runtime used by the client.
type ConverseAPI interface {
	Converse(
		ctx context.Context,
		params *bedrockruntime.ConverseInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient answers questions with a Bedrock Converse model.
type BedrockClient struct {
	api ConverseAPI
	cfg config.GenAIConfig
	log *zap.SugaredLogger
}

// NewBedrockClient returns a Client backed by api. The caller constructs api
// from an aws.Config pointed at cfg.Region.
func NewBedrockClient(api ConverseAPI, cfg config.GenAIConfig, log *zap.SugaredLogger) *BedrockClient {
	return &BedrockClient{api: api, cfg: cfg, log: log}
}

// IsAvailable reports whether AI answering is enabled and wired.
func (c *BedrockClient) IsAvailable(_ context.Context) bool {
	return c.cfg.Enabled && c.api != nil && c.cfg.ModelID != ""
}

// Answer implements Client. The report model is serialized into the prompt
// as grounding context; the model is instructed to answer only from it.
func (c *BedrockClient) Answer(ctx context.Context, question string, report *models.ReportModel) (string, error) {
	if !c.IsAvailable(ctx) {
		return "", ErrModelUnavailable
	}
	if report == nil {
		return "", fmt.Errorf("%w: nil report model", ErrArtifactUnreadable)
	}

	prompt, err := buildPrompt(question, report)
	if err != nil {
		return "", err
	}

	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.cfg.ModelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens: aws.Int32(int32(maxTokens)),
		},
	})
	if err != nil {
		c.log.Warnw("bedrock converse failed", "model", c.cfg.ModelID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	answer := extractText(out)
	if answer == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelUnavailable)
	}
	return answer, nil
}

// buildPrompt embeds a digest of the report as grounding context. The digest
// keeps the manifest, totals, and recommendations but drops raw CUR rows,
// which can be far larger than any model context.
func buildPrompt(question string, report *models.ReportModel) (string, error) {
	digest := struct {
		Customer        string                         `json:"customer"`
		GeneratedAt     string                         `json:"generated_at"`
		Manifest        []models.ManifestEntry         `json:"manifest"`
		CostSummary     *models.CostSummary            `json:"cost_summary,omitempty"`
		AdvisorChecks   []models.AdvisorCheck          `json:"advisor_checks,omitempty"`
		Optimizer       []models.OptimizerFinding      `json:"optimizer_findings,omitempty"`
		Recommendations []models.Recommendation        `json:"recommendations,omitempty"`
		Warnings        []models.ReconciliationWarning `json:"reconciliation_warnings,omitempty"`
	}{
		Customer:        report.Customer,
		GeneratedAt:     report.GeneratedAt.Format("2006-01-02"),
		Manifest:        report.Manifest,
		Recommendations: report.Recommendations,
		Warnings:        report.ReconciliationWarnings,
	}
	if ceData := report.Section(models.ProviderCostExplorer); ceData != nil {
		digest.CostSummary = ceData.CostSummary
	}
	if taData := report.Section(models.ProviderTrustedAdvisor); taData != nil {
		digest.AdvisorChecks = taData.AdvisorChecks
	}
	if coData := report.Section(models.ProviderComputeOptimizer); coData != nil {
		digest.Optimizer = coData.OptimizerFindings
	}

	context, err := json.Marshal(digest)
	if err != nil {
		return "", fmt.Errorf("encode report digest: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a FinOps analyst. Answer the question using only the AWS cost report data below. ")
	b.WriteString("If the data does not contain the answer, say so. Report data:\n\n")
	b.Write(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String(), nil
}

// extractText concatenates the text blocks of the first output message.
func extractText(out *bedrockruntime.ConverseOutput) string {
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}
