// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/genegap/pkg/types"
)

// Format selects the export encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

const exportLimit = 100000

// Export writes the full results selected by opts to w.
func (s *Store) Export(ctx context.Context, w io.Writer, format Format, opts ListOptions) error {
	results, err := s.exportResults(ctx, opts)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
	}
	return nil
}

// ExportFile writes the export to export.yaml or export.json inside the
// archive directory and returns the path.
func (s *Store) ExportFile(ctx context.Context, format Format, opts ListOptions) (string, error) {
	if format != FormatJSON {
		format = FormatYAML
	}
	path := filepath.Join(s.dir, "export."+string(format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating export file: %w", err)
	}
	if err := s.Export(ctx, f, format, opts); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func (s *Store) exportResults(ctx context.Context, opts ListOptions) ([]types.AnalysisResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = exportLimit
	}
	entries, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	results := make([]types.AnalysisResult, 0, len(entries))
	for _, e := range entries {
		r, err := s.Get(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
