package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/costpilot/costpilot/internal/models"
)

func artifactModel() *models.ReportModel {
	return &models.ReportModel{
		RunID:    "run-1",
		Customer: "acme",
		Manifest: []models.ManifestEntry{
			{Provider: models.ProviderCostExplorer, PartitionType: "ce-monthly", Status: models.SectionSucceeded},
		},
	}
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, artifactModel()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded models.ReportModel
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-1" || decoded.Customer != "acme" {
		t.Errorf("round trip lost identity fields: %+v", decoded)
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Error("output not indented")
	}
}

func TestWriteArtifact_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "2026-08", "acme.json")

	if err := WriteArtifact(path, artifactModel()); err != nil {
		t.Fatalf("WriteArtifact: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var decoded models.ReportModel
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if decoded.RunID != "run-1" {
		t.Errorf("RunID = %q", decoded.RunID)
	}
}
