package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/umekomi/internal/api"
)

func TestWriteEmbeddings_JSON(t *testing.T) {
	resp := &api.EmbedResponse{Embeddings: [][]float32{{0.6, 0.8}, {1, 0}}}
	var buf bytes.Buffer
	if err := WriteEmbeddings(&buf, []string{"a", "b"}, resp, OutputJSON); err != nil {
		t.Fatalf("WriteEmbeddings(json): %v", err)
	}
	var decoded api.EmbedResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(decoded.Embeddings) != 2 || decoded.Embeddings[0][1] != 0.8 {
		t.Errorf("decoded embeddings = %v", decoded.Embeddings)
	}
}

func TestWriteEmbeddings_text(t *testing.T) {
	resp := &api.EmbedResponse{Embeddings: [][]float32{{0.6, 0.8}}}
	var buf bytes.Buffer
	if err := WriteEmbeddings(&buf, []string{"hello world"}, resp, OutputText); err != nil {
		t.Fatalf("WriteEmbeddings(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"1 embedding(s), 2 dimensions", `[0] "hello world"`, "norm: 1.0000", "[0.6000, 0.8000]"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteEmbeddings_text_truncatesLabel(t *testing.T) {
	long := strings.Repeat("word ", 40)
	resp := &api.EmbedResponse{Embeddings: [][]float32{{1}}}
	var buf bytes.Buffer
	if err := WriteEmbeddings(&buf, []string{long}, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), long) {
		t.Errorf("long text should be truncated:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "...") {
		t.Errorf("expected ellipsis in label:\n%s", buf.String())
	}
}

func TestWriteEmbeddings_text_empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEmbeddings(&buf, nil, &api.EmbedResponse{}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "0 embedding(s), 0 dimensions") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestWriteInfo(t *testing.T) {
	info := &api.InfoResponse{
		Model:      "sentence-transformers/all-MiniLM-L6-v2",
		Backend:    "onnx",
		Dimensions: 384,
		Version:    "1.2.3",
		LoadedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	var buf bytes.Buffer
	if err := WriteInfo(&buf, info, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"all-MiniLM-L6-v2", "onnx", "384", "1.2.3", "2024-01-02T03:04:05Z"} {
		if !strings.Contains(out, sub) {
			t.Errorf("info output missing %q:\n%s", sub, out)
		}
	}

	buf.Reset()
	if err := WriteInfo(&buf, info, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded api.InfoResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("info JSON: %v", err)
	}
	if decoded.Dimensions != 384 || decoded.Backend != "onnx" {
		t.Errorf("decoded info = %+v", decoded)
	}
}

func TestFormatVector(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
		max  int
		want string
	}{
		{"empty", nil, 3, "[]"},
		{"fits", []float32{1, 0.5}, 3, "[1.0000, 0.5000]"},
		{"elided", []float32{1, 2, 3, 4}, 2, "[1.0000, 2.0000, ... (2 more)]"},
		{"no limit", []float32{1, 2}, 0, "[1.0000, 2.0000]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatVector(tt.vec, tt.max); got != tt.want {
				t.Errorf("FormatVector() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	for _, s := range []string{"text", "json"} {
		if f, err := ParseOutputFormat(s); err != nil || string(f) != s {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", s, f, err)
		}
	}
	if _, err := ParseOutputFormat("compact"); err == nil {
		t.Error("expected error for unknown format")
	}
}
