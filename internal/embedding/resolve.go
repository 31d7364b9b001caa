package embedding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ModelFiles are the on-disk artifacts of an ONNX sentence-embedding model.
type ModelFiles struct {
	Model string
	// Vocab is empty when the model ships without vocab.txt.
	Vocab string
}

// ResolveONNXModel maps a model identifier to files on disk.
//
// An explicit modelFile wins. Otherwise an identifier ending in ".onnx" is a
// file path, an identifier naming an existing directory is used as-is, and
// anything else (e.g. "sentence-transformers/all-MiniLM-L6-v2") is looked up
// under modelsDir. Inside the model directory, onnx/model.onnx is preferred
// over model.onnx. vocab.txt is searched next to the model file and one level up.
func ResolveONNXModel(id, modelsDir, modelFile, vocabFile string) (ModelFiles, error) {
	var files ModelFiles

	switch {
	case modelFile != "":
		if !isFile(modelFile) {
			return files, fmt.Errorf("model file %s not found", modelFile)
		}
		files.Model = modelFile
	case strings.HasSuffix(id, ".onnx"):
		if !isFile(id) {
			return files, fmt.Errorf("model file %s not found", id)
		}
		files.Model = id
	default:
		if id == "" {
			return files, fmt.Errorf("model identifier is empty")
		}
		base := id
		if !isDir(base) {
			base = filepath.Join(modelsDir, filepath.FromSlash(id))
		}
		candidates := []string{
			filepath.Join(base, "onnx", "model.onnx"),
			filepath.Join(base, "model.onnx"),
		}
		for _, c := range candidates {
			if isFile(c) {
				files.Model = c
				break
			}
		}
		if files.Model == "" {
			return files, fmt.Errorf("no ONNX model found for %q (looked in %s)", id, strings.Join(candidates, ", "))
		}
	}

	if vocabFile != "" {
		if !isFile(vocabFile) {
			return files, fmt.Errorf("vocab file %s not found", vocabFile)
		}
		files.Vocab = vocabFile
		return files, nil
	}
	dir := filepath.Dir(files.Model)
	for _, c := range []string{filepath.Join(dir, "vocab.txt"), filepath.Join(filepath.Dir(dir), "vocab.txt")} {
		if isFile(c) {
			files.Vocab = c
			break
		}
	}
	return files, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
