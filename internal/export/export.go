package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/alvmarrod/forum-weaver/internal/storage"
	"github.com/alvmarrod/forum-weaver/internal/thread"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Supported output formats
const (
	FormatJSON   = "json"
	FormatYAML   = "yaml"
	FormatGEXF   = "gexf"
	FormatSQLite = "sqlite"
)

// RunInfo describes the analysis that produced a graph
type RunInfo struct {
	SourceURL string
	Direction thread.Direction
	Metrics   *storage.Metrics // optional, stored with the run
}

// Write exports g to path in the given format
func Write(path, format string, g *thread.Graph, info RunInfo) error {
	if format == FormatSQLite {
		runID, err := WriteSQLite(path, g, info)
		if err != nil {
			return err
		}
		logrus.Infof("Graph written to %s (run %s)", path, runID)
		return nil
	}

	var encode func(io.Writer, *thread.Graph) error
	switch format {
	case FormatJSON:
		encode = WriteJSON
	case FormatYAML:
		encode = WriteYAML
	case FormatGEXF:
		encode = WriteGEXF
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := encode(f, g); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	logrus.Infof("Graph written to %s (%d nodes, %d edges)", path, len(g.Nodes), len(g.Edges))
	return nil
}

// WriteJSON encodes the graph as indented JSON
func WriteJSON(w io.Writer, g *thread.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}
	return nil
}

// WriteYAML encodes the graph as YAML
func WriteYAML(w io.Writer, g *thread.Graph) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
