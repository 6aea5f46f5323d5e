package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	"github.com/costpilot/costpilot/internal/config"
	"github.com/costpilot/costpilot/internal/logging"
	"github.com/costpilot/costpilot/internal/models"
)

type mockConverse struct {
	err        error
	answer     string
	lastPrompt string
	lastModel  string
}

func (m *mockConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.lastModel = aws.ToString(params.ModelId)
	if len(params.Messages) > 0 && len(params.Messages[0].Content) > 0 {
		if text, ok := params.Messages[0].Content[0].(*brtypes.ContentBlockMemberText); ok {
			m.lastPrompt = text.Value
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: m.answer},
				},
			},
		},
	}, nil
}

func enabledConfig() config.GenAIConfig {
	return config.GenAIConfig{
		Enabled: true,
		ModelID: "anthropic.claude-3-5-sonnet-20240620-v1:0",
	}
}

func testReport() *models.ReportModel {
	return &models.ReportModel{
		RunID:    "run-1",
		Customer: "acme",
		Sections: map[models.Provider]*models.ProviderData{
			models.ProviderCostExplorer: {
				CostSummary: &models.CostSummary{
					TotalCostUSD: 150.75,
					ServiceBreakdown: []models.ServiceCost{
						{Service: "Amazon Elastic Compute Cloud - Compute", CostUSD: 120.50},
					},
				},
			},
		},
		Manifest: []models.ManifestEntry{
			{Provider: models.ProviderCostExplorer, Status: models.SectionSucceeded},
		},
	}
}

func TestIsAvailable(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.GenAIConfig
		api  ConverseAPI
		want bool
	}{
		{"enabled and wired", enabledConfig(), &mockConverse{}, true},
		{"disabled", config.GenAIConfig{ModelID: "m"}, &mockConverse{}, false},
		{"no model id", config.GenAIConfig{Enabled: true}, &mockConverse{}, false},
		{"nil api", enabledConfig(), nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewBedrockClient(tc.api, tc.cfg, logging.Sugar)
			if got := c.IsAvailable(context.Background()); got != tc.want {
				t.Errorf("IsAvailable() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestAnswer_GroundsPromptInReport(t *testing.T) {
	api := &mockConverse{answer: "EC2 is your top cost."}
	c := NewBedrockClient(api, enabledConfig(), logging.Sugar)

	answer, err := c.Answer(context.Background(), "what costs the most?", testReport())
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != "EC2 is your top cost." {
		t.Errorf("answer = %q", answer)
	}
	if api.lastModel != enabledConfig().ModelID {
		t.Errorf("model = %q", api.lastModel)
	}
	if !strings.Contains(api.lastPrompt, "what costs the most?") {
		t.Error("question missing from the prompt")
	}
	if !strings.Contains(api.lastPrompt, "150.75") {
		t.Error("cost digest missing from the prompt")
	}
}

func TestAnswer_DisabledBackend(t *testing.T) {
	c := NewBedrockClient(&mockConverse{}, config.GenAIConfig{}, logging.Sugar)

	_, err := c.Answer(context.Background(), "anything", testReport())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("err = %v; want ErrModelUnavailable", err)
	}
}

func TestAnswer_ConverseFailure(t *testing.T) {
	api := &mockConverse{err: &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"}}
	c := NewBedrockClient(api, enabledConfig(), logging.Sugar)

	_, err := c.Answer(context.Background(), "anything", testReport())
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("err = %v; want ErrModelUnavailable", err)
	}
}

func TestAnswer_NilReport(t *testing.T) {
	c := NewBedrockClient(&mockConverse{}, enabledConfig(), logging.Sugar)

	_, err := c.Answer(context.Background(), "anything", nil)
	if !errors.Is(err, ErrArtifactUnreadable) {
		t.Errorf("err = %v; want ErrArtifactUnreadable", err)
	}
}
