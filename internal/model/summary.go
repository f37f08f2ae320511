package model

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Summary renders the layer table and parameter totals:
//
//	Model: adder
//	Layer (type)         Output Shape   Param #
//	input (input)        [2]            0
//	dense (dense)        [1]            3
//	...
func (m *Model[B]) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Model: %s\n", m.config.Name)
	if !m.built {
		sb.WriteString("(not built)\n")
		return sb.String()
	}

	tw := tabwriter.NewWriter(&sb, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "Layer (type)\tOutput Shape\tParam #")
	for _, l := range m.layers {
		params := 0
		for _, p := range l.TrainableWeights() {
			params += p.NumElements()
		}
		for _, p := range l.Variables() {
			params += p.NumElements()
		}
		fmt.Fprintf(tw, "%s (%s)\t%v\t%d\n", l.Name(), l.Kind(), l.OutputShape(), params)
	}
	_ = tw.Flush()

	total := m.trainableParams + m.nonTrainableParams
	fmt.Fprintf(&sb, "Total params: %d (%s)\n", total, formatBytes(m.trainableBytes+m.nonTrainableBytes))
	fmt.Fprintf(&sb, "Trainable params: %d (%s)\n", m.trainableParams, formatBytes(m.trainableBytes))
	fmt.Fprintf(&sb, "Non-trainable params: %d (%s)\n", m.nonTrainableParams, formatBytes(m.nonTrainableBytes))
	return sb.String()
}

// formatBytes renders n with a binary unit.
func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
