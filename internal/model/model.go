// Package model drives a chain of layers: it orders and builds the graph,
// then runs training, evaluation and prediction over mini-batches.
//
// A model is defined by its input and output layers. Build walks the chain
// between them once and stores it as an arena of layers addressed by index;
// every later pass iterates that arena.
//
// Example:
//
//	in := nn.NewInput(tensor.Shape{2}, backend)
//	out, _ := nn.Connect[B](in, nn.NewDense(8, true, backend), nn.NewReLU(backend), nn.NewDense(1, true, backend))
//
//	m := model.New[B](in, out, model.Config{Name: "adder"})
//	if err := m.Build(); err != nil { ... }
//	if err := m.Compile(optim.NewAdam[B](optim.AdamConfig{LR: 0.01}), nn.NewMSELoss[B]()); err != nil { ... }
//	history, err := m.Fit(x, y, model.FitConfig{Epochs: 20, BatchSize: 8})
package model

import (
	"fmt"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/metrics"
	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/optim"
	"github.com/born-ml/strata/internal/tensor"
)

var (
	// ErrNotBuilt is returned by operations that need Build to have succeeded.
	ErrNotBuilt = errors.New("model is not built")

	// ErrNotCompiled is returned by Fit and Evaluate before Compile.
	ErrNotCompiled = errors.New("model is not compiled")
)

// Config holds model-wide settings.
type Config struct {
	Name    string       // Model name (default: "model")
	Logger  *slog.Logger // Receives build and training records (default: discarded)
	Verbose bool         // Log one Info record per epoch
}

// Model owns the ordered layer arena, the training collaborators and the
// per-layer output cache of the last forward pass.
type Model[B tensor.Backend] struct {
	config Config
	logger *slog.Logger

	input  nn.Layer[B]
	output nn.Layer[B]

	layers []nn.Layer[B]  // forward order, input first
	index  map[string]int // layer name -> arena index
	built  bool

	trainableParams    int
	nonTrainableParams int
	trainableBytes     int
	nonTrainableBytes  int

	optimizer optim.Optimizer[B]
	loss      nn.Loss[B]
	metrics   []metrics.Metric[B]
	lossMean  *metrics.Mean[B]
	compiled  bool

	cache   [][]*tensor.Tensor[float32, B] // [layer][batch element] outputs of the last forward pass
	history *History
}

// New creates a model spanning the chain from input to output.
// The layers must already be connected; Build orders and validates them.
func New[B tensor.Backend](input, output nn.Layer[B], config Config) *Model[B] {
	if config.Name == "" {
		config.Name = "model"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Model[B]{
		config:  config,
		logger:  logger.With("model", config.Name),
		input:   input,
		output:  output,
		history: NewHistory(),
	}
}

// Name returns the model name.
func (m *Model[B]) Name() string {
	return m.config.Name
}

// Build orders the layer chain and prepares it for training.
//
// Starting at the input layer it follows the first successor of each layer
// until a layer without successors. The output layer must be on that chain;
// a layer met twice is a cycle. Unbuilt layers are built against their
// predecessor's output shape, duplicate names get a numeric suffix
// ("dense", "dense_1", ...) and the parameter totals are computed.
//
// Only linear chains are supported: extra successors are ignored.
// Building a built model is a no-op.
func (m *Model[B]) Build() error {
	if m.built {
		return nil
	}
	if m.input == nil || m.output == nil {
		return errors.Wrap(tensor.ErrInvalidArgument, "model needs an input and an output layer")
	}
	if !m.input.Built() {
		return errors.Wrapf(tensor.ErrInvalidArgument, "input layer %s is not built", m.input.Name())
	}

	chain := []nn.Layer[B]{m.input}
	seen := map[nn.Layer[B]]bool{m.input: true}
	end := -1
	if m.input == m.output {
		end = 0
	}
	for cur := m.input; len(cur.Outputs()) > 0; {
		next := cur.Outputs()[0]
		if seen[next] {
			return errors.Wrapf(tensor.ErrInvalidArgument, "cycle: %s leads back to %s", cur.Name(), next.Name())
		}
		seen[next] = true
		if !next.Built() {
			if err := next.Build(cur.OutputShape()); err != nil {
				return errors.Wrapf(err, "build %s", next.Name())
			}
		}
		if next == m.output {
			end = len(chain)
		}
		chain = append(chain, next)
		cur = next
	}
	if end < 0 {
		return errors.Wrapf(tensor.ErrInvalidArgument, "output layer %s is not reachable from input %s",
			m.output.Name(), m.input.Name())
	}

	m.layers = chain[:end+1]
	m.index = make(map[string]int, len(m.layers))
	for i, l := range m.layers {
		name := uniqueName(l.Name(), m.index)
		l.SetName(name)
		m.index[name] = i
	}

	m.trainableParams, m.nonTrainableParams = 0, 0
	for _, l := range m.layers {
		for _, p := range l.TrainableWeights() {
			m.trainableParams += p.NumElements()
		}
		for _, p := range l.Variables() {
			m.nonTrainableParams += p.NumElements()
		}
	}
	elemSize := tensor.Float32.Size()
	m.trainableBytes = m.trainableParams * elemSize
	m.nonTrainableBytes = m.nonTrainableParams * elemSize

	m.cache = make([][]*tensor.Tensor[float32, B], len(m.layers))
	m.built = true
	m.logger.Debug("model built",
		"layers", len(m.layers),
		"trainable_params", m.trainableParams,
		"non_trainable_params", m.nonTrainableParams)
	return nil
}

// uniqueName returns name, or name_k with the smallest k >= 1 not in taken.
func uniqueName(name string, taken map[string]int) string {
	if _, ok := taken[name]; !ok {
		return name
	}
	for k := 1; ; k++ {
		candidate := fmt.Sprintf("%s_%d", name, k)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// Compile sets the optimizer, the loss and any metrics used by Fit and Evaluate.
func (m *Model[B]) Compile(opt optim.Optimizer[B], loss nn.Loss[B], ms ...metrics.Metric[B]) error {
	if opt == nil || loss == nil {
		return errors.Wrap(tensor.ErrInvalidArgument, "compile needs an optimizer and a loss")
	}
	for _, metric := range ms {
		if metric.Name() == "loss" {
			return errors.Wrap(tensor.ErrInvalidArgument, `metric name "loss" is reserved`)
		}
	}
	m.optimizer = opt
	m.loss = loss
	m.metrics = ms
	m.lossMean = metrics.NewMean("loss", m.input.Backend())
	m.compiled = true
	return nil
}

// Built reports whether Build has succeeded.
func (m *Model[B]) Built() bool {
	return m.built
}

// Layers returns the layers in forward order.
func (m *Model[B]) Layers() []nn.Layer[B] {
	return append([]nn.Layer[B](nil), m.layers...)
}

// Layer returns the layer with the given name.
func (m *Model[B]) Layer(name string) (nn.Layer[B], error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	i, ok := m.index[name]
	if !ok {
		return nil, errors.Wrapf(tensor.ErrInvalidArgument, "no layer named %q", name)
	}
	return m.layers[i], nil
}

// TrainableParams returns the number of trainable parameter elements.
func (m *Model[B]) TrainableParams() int {
	return m.trainableParams
}

// NonTrainableParams returns the number of non-trainable variable elements.
func (m *Model[B]) NonTrainableParams() int {
	return m.nonTrainableParams
}

// History returns the per-epoch results of every Fit call so far.
func (m *Model[B]) History() *History {
	return m.history
}

// Optimizer returns the optimizer set by Compile.
func (m *Model[B]) Optimizer() optim.Optimizer[B] {
	return m.optimizer
}
