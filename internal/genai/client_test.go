package genai

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/costpilot/costpilot/internal/models"
)

func TestParseArtifact(t *testing.T) {
	raw, err := json.Marshal(testReport())
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}

	report, err := ParseArtifact(raw)
	if err != nil {
		t.Fatalf("ParseArtifact: %v", err)
	}
	if report.RunID != "run-1" || report.Customer != "acme" {
		t.Errorf("identity fields = %q/%q", report.RunID, report.Customer)
	}
	if report.Section(models.ProviderCostExplorer) == nil {
		t.Error("cost section lost in the round trip")
	}
}

func TestParseArtifact_RejectsForeignJSON(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       "{",
		"other document": `{"foo": "bar"}`,
		"missing run_id": `{"customer": "acme"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseArtifact([]byte(raw)); !errors.Is(err, ErrArtifactUnreadable) {
				t.Errorf("err = %v; want ErrArtifactUnreadable", err)
			}
		})
	}
}

func TestLoadArtifact(t *testing.T) {
	raw, _ := json.Marshal(testReport())
	path := filepath.Join(t.TempDir(), "report.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	report, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if report.Customer != "acme" {
		t.Errorf("Customer = %q", report.Customer)
	}

	if _, err := LoadArtifact(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
