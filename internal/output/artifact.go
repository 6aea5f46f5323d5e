package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/costpilot/costpilot/internal/models"
)

// WriteJSON writes the report model to w as indented JSON.
func WriteJSON(w io.Writer, report *models.ReportModel) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteArtifact persists the report model as a JSON artifact at path, creating
// parent directories as needed. The artifact round-trips through the question
// answering flow, so it must stay schema-compatible with ReportModel.
func WriteArtifact(path string, report *models.ReportModel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteJSON(f, report); err != nil {
		return err
	}
	return f.Close()
}
