// Package genai answers natural-language questions against an already
// generated report model. It is downstream of the orchestration path and
// never triggers new AWS data fetches.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/costpilot/costpilot/internal/models"
)

var (
	// ErrModelUnavailable means the AI backend is disabled or unreachable.
	ErrModelUnavailable = errors.New("AI model unavailable")

	// ErrArtifactUnreadable means the supplied report artifact could not be
	// parsed into the expected schema.
	ErrArtifactUnreadable = errors.New("report artifact unreadable")
)

// Client is the interface for AI-assisted question answering.
// Implementations are optional; the engine and renderers function without one.
//
// The model is only for answering questions about already-aggregated report
// data. It must never:
//   - Execute shell commands
//   - Control program flow
//   - Make AWS SDK calls
type Client interface {
	// Answer returns free-text grounded in report, responding to question.
	// Stateless per call. Returns ErrModelUnavailable when the backend
	// cannot be reached; no retry is attempted.
	Answer(ctx context.Context, question string, report *models.ReportModel) (string, error)

	// IsAvailable reports whether the backend is configured and reachable.
	// Use this to gate calls and provide graceful degradation.
	IsAvailable(ctx context.Context) bool
}

// ParseArtifact decodes a serialized report model. Returns
// ErrArtifactUnreadable when the bytes are not a report artifact.
func ParseArtifact(raw []byte) (*models.ReportModel, error) {
	var report models.ReportModel
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnreadable, err)
	}
	// A report without a run id or customer is some other JSON document.
	if report.RunID == "" || report.Customer == "" {
		return nil, fmt.Errorf("%w: missing run_id or customer", ErrArtifactUnreadable)
	}
	return &report, nil
}

// LoadArtifact reads and parses a report artifact file.
func LoadArtifact(path string) (*models.ReportModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return ParseArtifact(raw)
}
