// Package cli provides CLI output helpers for umekomi.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/umekomi/internal/api"
	"github.com/hyperjump/umekomi/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the server's JSON body, indented, for machine consumption.
	OutputJSON OutputFormat = "json"
)

// previewValues is how many leading components the text format prints per vector.
const previewValues = 8

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// WriteEmbeddings writes resp to w. texts are the inputs, used only to label
// vectors in text format.
func WriteEmbeddings(w io.Writer, texts []string, resp *api.EmbedResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	dims := 0
	if len(resp.Embeddings) > 0 {
		dims = len(resp.Embeddings[0])
	}
	fmt.Fprintf(w, "%d embedding(s), %d dimensions\n", len(resp.Embeddings), dims)
	for i, vec := range resp.Embeddings {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		label := ""
		if i < len(texts) {
			label = utils.Truncate(texts[i], 60)
		}
		fmt.Fprintf(w, "[%d] %q | norm: %.4f\n", i, label, utils.L2Norm(vec))
		fmt.Fprintf(w, "%s\n", FormatVector(vec, previewValues))
	}
	return nil
}

// WriteInfo writes the /info body to w.
func WriteInfo(w io.Writer, info *api.InfoResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, info)
	}
	fmt.Fprintf(w, "model:       %s\n", info.Model)
	fmt.Fprintf(w, "backend:     %s\n", info.Backend)
	fmt.Fprintf(w, "dimensions:  %d\n", info.Dimensions)
	if info.Version != "" {
		fmt.Fprintf(w, "version:     %s\n", info.Version)
	}
	if !info.LoadedAt.IsZero() {
		fmt.Fprintf(w, "loaded_at:   %s\n", info.LoadedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}

// FormatVector renders up to maxValues components, eliding the rest.
func FormatVector(vec []float32, maxValues int) string {
	n := len(vec)
	if maxValues > 0 && n > maxValues {
		n = maxValues
	}
	parts := make([]string, 0, n+1)
	for _, v := range vec[:n] {
		parts = append(parts, fmt.Sprintf("%.4f", v))
	}
	if n < len(vec) {
		parts = append(parts, fmt.Sprintf("... (%d more)", len(vec)-n))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
