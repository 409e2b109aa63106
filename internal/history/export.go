package history

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "parquet":
		return FormatParquet, nil
	}
	return "", fmt.Errorf("unknown export format %q", value)
}

// Export writes the current list, newest first.
func (s *Store) Export(w io.Writer, format Format) error {
	items := s.List()

	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(items); err != nil {
			return fmt.Errorf("export yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("export yaml: %w", err)
		}
		return nil
	case FormatParquet:
		pw := parquet.NewGenericWriter[Item](w)
		if _, err := pw.Write(items); err != nil {
			return fmt.Errorf("export parquet: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("export parquet: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown export format %q", format)
}
