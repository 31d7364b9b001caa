package embedding

// ONNXOptions configures an ONNXEmbedder.
type ONNXOptions struct {
	ModelPath string
	// RuntimeLibrary is the onnxruntime shared library; empty uses the platform default.
	RuntimeLibrary string
	// Tokenizer defaults to SimpleTokenizer.
	Tokenizer  Tokenizer
	Dimensions int
	MaxTokens  int
	Pooling    Pooling
	// OutputName is the graph output to read, e.g. "last_hidden_state".
	OutputName string
	Normalize  bool
	CacheSize  int
}

func (o *ONNXOptions) applyDefaults() {
	if o.Tokenizer == nil {
		o.Tokenizer = &SimpleTokenizer{}
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = defaultMaxTokens
	}
	if o.Pooling == "" {
		o.Pooling = PoolingMean
	}
	if o.OutputName == "" {
		if o.Pooling == PoolingNone {
			o.OutputName = "output"
		} else {
			o.OutputName = "last_hidden_state"
		}
	}
}
