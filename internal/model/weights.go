package model

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/internal/nn"
	"github.com/born-ml/strata/internal/serialization"
	"github.com/born-ml/strata/internal/tensor"
)

// weightName is the checkpoint key of a layer parameter.
func weightName(layer, param string) string {
	return layer + "/" + param
}

// StateDict returns every trainable weight and variable keyed "<layer>/<param>".
// The tensors are the live parameter tensors, not copies.
func (m *Model[B]) StateDict() (map[string]*tensor.RawTensor, error) {
	if !m.built {
		return nil, ErrNotBuilt
	}
	state := make(map[string]*tensor.RawTensor)
	for _, l := range m.layers {
		for _, p := range params(l) {
			state[weightName(l.Name(), p.Name())] = p.Tensor().Raw()
		}
	}
	return state, nil
}

// LoadStateDict copies values into the parameters. Every parameter must be
// present with a matching shape; extra entries are ignored.
func (m *Model[B]) LoadStateDict(state map[string]*tensor.RawTensor) error {
	if !m.built {
		return ErrNotBuilt
	}
	for _, l := range m.layers {
		for _, p := range params(l) {
			key := weightName(l.Name(), p.Name())
			raw, ok := state[key]
			if !ok {
				return errors.Wrapf(tensor.ErrInvalidArgument, "missing weight %s", key)
			}
			if err := p.Load(raw); err != nil {
				return err
			}
		}
	}
	return nil
}

// SaveWeights writes the state dictionary to a SafeTensors file.
func (m *Model[B]) SaveWeights(path string) error {
	state, err := m.StateDict()
	if err != nil {
		return err
	}
	metadata := map[string]string{
		"format": "strata",
		"model":  m.config.Name,
	}
	if err := serialization.WriteSafeTensors(path, state, metadata); err != nil {
		return errors.Wrapf(err, "save weights to %s", path)
	}
	m.logger.Debug("weights saved", "path", path, "tensors", len(state))
	return nil
}

// LoadWeights reads a SafeTensors file written by SaveWeights into the parameters.
func (m *Model[B]) LoadWeights(path string) error {
	if !m.built {
		return ErrNotBuilt
	}
	state, _, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return errors.Wrapf(err, "load weights from %s", path)
	}
	return m.LoadStateDict(state)
}

func params[B tensor.Backend](l nn.Layer[B]) []*nn.Parameter[B] {
	return slices.Concat(l.TrainableWeights(), l.Variables())
}
