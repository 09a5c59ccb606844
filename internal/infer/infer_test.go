package infer

import (
	"math"
	"os"
	"reflect"
	"testing"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/crimson-sun/corpora/internal/process"
)

const (
	testModelPath = "../../models/classifier.onnx"
	testLibPath   = "../../models/libonnxruntime.so"
)

func skipIfNoModel(t *testing.T) {
	t.Helper()
	for _, p := range []string{testModelPath, testLibPath} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Skip("model files not found; export a classifier to models/classifier.onnx first")
		}
	}
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name    string
		logits  []float32
		classes int
		want    []int
	}{
		{"two classes", []float32{0.1, 0.9, 2.0, -1.0}, 2, []int{1, 0}},
		{"three classes", []float32{0, 0, 5, 1, 0, 0}, 3, []int{2, 0}},
		{"ties pick first", []float32{1, 1}, 2, []int{0}},
		{"binary logit", []float32{0.3, -0.3, 0}, 1, []int{1, 0, 0}},
		{"no classes", []float32{1}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Argmax(tt.logits, tt.classes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Argmax = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSoftmax(t *testing.T) {
	p := Softmax([]float32{1000, 1000})
	if math.Abs(p[0]-0.5) > 1e-9 || math.Abs(p[1]-0.5) > 1e-9 {
		t.Fatalf("Softmax of equal large logits = %v", p)
	}
	p = Softmax([]float32{0, float32(math.Log(3))})
	if math.Abs(p[1]-0.75) > 1e-6 {
		t.Fatalf("p[1] = %v, want 0.75", p[1])
	}
	if Softmax(nil) != nil {
		t.Fatal("Softmax(nil) should be nil")
	}
}

func TestSelectInputs(t *testing.T) {
	tests := []struct {
		have    []string
		want    []string
		wantErr bool
	}{
		{[]string{"input_ids"}, []string{"input_ids"}, false},
		{[]string{"attention_mask", "input_ids"}, []string{"input_ids", "attention_mask"}, false},
		{[]string{"token_type_ids", "attention_mask", "input_ids"}, []string{"input_ids", "attention_mask", "token_type_ids"}, false},
		{[]string{"attention_mask"}, nil, true},
		{[]string{"input_ids", "pixel_values"}, nil, true},
	}
	for _, tt := range tests {
		var infos []ort.InputOutputInfo
		for _, n := range tt.have {
			infos = append(infos, ort.InputOutputInfo{Name: n})
		}
		got, err := selectInputs(infos)
		if (err != nil) != tt.wantErr {
			t.Errorf("selectInputs(%v) err = %v", tt.have, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("selectInputs(%v) = %v, want %v", tt.have, got, tt.want)
		}
	}
}

func TestPredict(t *testing.T) {
	skipIfNoModel(t)
	c, err := Open(testModelPath, testLibPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ds := []process.Example{{Label: 1, IDs: []int64{2, 3, 4}}, {Label: 0, IDs: []int64{5}}}
	for b := range process.Batches(exampleSource(ds), 2, 16, 0) {
		preds, err := c.Predict(b)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if len(preds) != int(b.Size) {
			t.Fatalf("got %d predictions for %d examples", len(preds), b.Size)
		}
		for _, p := range preds {
			if p < 0 || p >= max(c.Classes(), 2) {
				t.Errorf("prediction %d outside class range", p)
			}
		}
	}
}

type exampleSource []process.Example

func (s exampleSource) Len() int                 { return len(s) }
func (s exampleSource) At(i int) process.Example { return s[i] }
