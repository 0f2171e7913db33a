package evaluator

import (
	"fmt"
	"sync"

	gonnx "github.com/advancedclimatesystems/gonnx"
	"gorgonia.org/tensor"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

// NumStateFeatures is the width of the encoded state the value model reads.
const NumStateFeatures = 8

// OnnxValueModel runs an ONNX value network over encoded states.
type OnnxValueModel struct {
	model *gonnx.Model
	input string
	mu    sync.Mutex
}

// LoadValueModel loads an ONNX model whose single input is a
// (1, NumStateFeatures) float32 tensor named "state".
func LoadValueModel(path string) (*OnnxValueModel, error) {
	m, err := gonnx.NewModelFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load value model %s: %w", path, err)
	}
	return &OnnxValueModel{model: m, input: "state"}, nil
}

// EncodeState turns a predicted state into model features, scaled to
// roughly [-1, 1].
func EncodeState(s chain.State) []float32 {
	selfHolds := float32(0)
	if s.BallHolder != 0 && s.BallHolder == s.Self {
		selfHolds = 1
	}
	return []float32{
		float32(s.BallPos.X / field.PitchHalfLength),
		float32(s.BallPos.Y / field.PitchHalfWidth),
		float32(s.BallVel.X / field.BallSpeedMax),
		float32(s.BallVel.Y / field.BallSpeedMax),
		float32(s.OffenseLineX / field.PitchHalfLength),
		float32(s.DefenseLineX / field.PitchHalfLength),
		float32(s.SpendTime) / 50,
		selfHolds,
	}
}

// Value implements ValueModel.
func (m *OnnxValueModel) Value(s chain.State) (float64, error) {
	in := tensor.New(
		tensor.WithShape(1, NumStateFeatures),
		tensor.Of(tensor.Float32),
		tensor.WithBacking(EncodeState(s)),
	)

	m.mu.Lock()
	outputs, err := m.model.Run(gonnx.Tensors{m.input: in})
	m.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("value run: %w", err)
	}

	return decodeValue(outputs)
}

// decodeValue reads the scalar from the "value" output, or from the only
// output when the model names it differently.
func decodeValue(outputs gonnx.Tensors) (float64, error) {
	out, ok := outputs["value"]
	if !ok {
		for _, v := range outputs {
			out = v
			break
		}
	}
	if out == nil {
		return 0, fmt.Errorf("no output tensor from value model")
	}
	switch d := out.Data().(type) {
	case []float32:
		if len(d) == 0 {
			return 0, fmt.Errorf("empty value output")
		}
		return float64(d[0]), nil
	case []float64:
		if len(d) == 0 {
			return 0, fmt.Errorf("empty value output")
		}
		return d[0], nil
	case float32:
		return float64(d), nil
	case float64:
		return d, nil
	default:
		return 0, fmt.Errorf("unexpected value output type %T", d)
	}
}
