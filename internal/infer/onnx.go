// Package infer runs an exported ONNX text classifier over processed batches.
package infer

import (
	"fmt"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/corpora/internal/process"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Classifier wraps an ONNX session taking input_ids (plus optional
// attention_mask and token_type_ids) and producing [batch, classes] logits.
type Classifier struct {
	session    *ort.DynamicAdvancedSession
	inputNames []string
	classes    int64
}

// Open loads modelPath using the ONNX Runtime shared library at libPath.
// The runtime is initialized once per process; later libPath values are
// ignored.
func Open(modelPath, libPath string) (*Classifier, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	inputNames, err := selectInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}
	dims := outputs[0].Dimensions
	if len(dims) != 2 || dims[1] <= 0 {
		return nil, fmt.Errorf("onnx: expected [batch, classes] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(4)
	opts.SetInterOpNumThreads(1)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}
	return &Classifier{session: session, inputNames: inputNames, classes: dims[1]}, nil
}

// selectInputs returns the model's inputs in feed order. input_ids is
// required; the others are fed when the model declares them.
func selectInputs(inputs []ort.InputOutputInfo) ([]string, error) {
	var have []string
	for _, inp := range inputs {
		have = append(have, inp.Name)
	}
	if !slices.Contains(have, "input_ids") {
		return nil, fmt.Errorf("onnx: model missing required input %q", "input_ids")
	}
	names := []string{"input_ids"}
	for _, opt := range []string{"attention_mask", "token_type_ids"} {
		if slices.Contains(have, opt) {
			names = append(names, opt)
		}
	}
	if len(names) != len(have) {
		return nil, fmt.Errorf("onnx: model has unsupported inputs %v", have)
	}
	return names, nil
}

// Classes returns the width of the model output.
func (c *Classifier) Classes() int { return int(c.classes) }

// Logits runs one batch and returns flat [Size * Classes] scores.
func (c *Classifier) Logits(b process.Batch) ([]float32, error) {
	shape := ort.NewShape(b.Size, b.SeqLen)
	feeds := make([]ort.Value, 0, len(c.inputNames))
	defer func() {
		for _, v := range feeds {
			v.Destroy()
		}
	}()
	for _, name := range c.inputNames {
		var data []int64
		switch name {
		case "input_ids":
			data = b.IDs
		case "attention_mask":
			data = b.Mask
		default:
			data = make([]int64, len(b.IDs))
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("onnx: failed to create %s tensor: %w", name, err)
		}
		feeds = append(feeds, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(b.Size, c.classes))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := c.session.Run(feeds, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}
	return slices.Clone(out.GetData()), nil
}

// Predict returns the predicted class of every example in b.
func (c *Classifier) Predict(b process.Batch) ([]int, error) {
	logits, err := c.Logits(b)
	if err != nil {
		return nil, err
	}
	return Argmax(logits, int(c.classes)), nil
}

// Close releases the session.
func (c *Classifier) Close() error {
	return c.session.Destroy()
}
