// Package onnx scores headlines with a three-class sentiment model
// (negative, neutral, positive) exported to ONNX.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode"

	ort "github.com/yalue/onnxruntime_go"
)

const outputClasses = 3

var (
	envOnce sync.Once
	envErr  error
)

func defaultLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "/usr/lib/libonnxruntime.so"
	}
}

func initializeEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath == "" {
			libPath = defaultLibraryPath()
		}
		ort.SetSharedLibraryPath(libPath)
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// ModelScorer runs one headline at a time through a shared session.
type ModelScorer struct {
	mu      sync.Mutex
	cfg     Config
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func NewModelScorer(cfg Config) (*ModelScorer, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("onnx model path not set")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("onnx model: %w", err)
	}
	if cfg.InputDim <= 0 {
		return nil, fmt.Errorf("onnx input dim must be positive, got %d", cfg.InputDim)
	}
	if err := initializeEnvironment(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	input, err := ort.NewTensor(ort.NewShape(1, int64(cfg.InputDim)), make([]float32, cfg.InputDim))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, outputClasses))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName},
		[]ort.Value{input}, []ort.Value{output}, nil)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &ModelScorer{cfg: cfg, session: session, input: input, output: output}, nil
}

func (m *ModelScorer) Name() string {
	return "onnx"
}

// Score averages P(positive) - P(negative) over the headlines.
func (m *ModelScorer) Score(ctx context.Context, texts []string) (float64, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return 0, errors.New("onnx scorer closed")
	}

	var total float64
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		copy(m.input.GetData(), Featurize(text, m.cfg.InputDim))
		if err := m.session.Run(); err != nil {
			return 0, fmt.Errorf("inference failed: %w", err)
		}
		probs := m.output.GetData()
		if m.cfg.ApplySoftmax {
			probs = Softmax(probs)
		}
		total += float64(probs[2] - probs[0])
	}
	return total / float64(len(texts)), nil
}

func (m *ModelScorer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
}

// Featurize hashes lower-cased word tokens into an L2-normalised bag of words.
func Featurize(text string, dim int) []float32 {
	vec := make([]float32, dim)
	if dim <= 0 {
		return vec
	}
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(dim)]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func Softmax(logits []float32) []float32 {
	out := make([]float32, len(logits))
	if len(logits) == 0 {
		return out
	}
	maxV := logits[0]
	for _, v := range logits[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
