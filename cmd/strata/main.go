// Package main provides the strata CLI.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"

	"github.com/pkg/errors"

	"github.com/born-ml/strata/backend/cpu"
	"github.com/born-ml/strata/metrics"
	"github.com/born-ml/strata/model"
	"github.com/born-ml/strata/nn"
	"github.com/born-ml/strata/optim"
	"github.com/born-ml/strata/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "strata: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return nil
	}
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "strata %s\n", version)
		return nil
	case "demo":
		return demo(args[1:], stdout)
	default:
		usage(stdout)
		return errors.Errorf("unknown command %q", args[0])
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "strata - layer-graph neural networks for Go")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  demo       Train a small regressor on x + y")
}

// demo trains input[2] -> dense(8) -> relu -> dense(1) to add two numbers.
func demo(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.SetOutput(stdout)
	samples := fs.Int("samples", 256, "Number of synthetic samples")
	epochs := fs.Int("epochs", 20, "Number of training epochs")
	batchSize := fs.Int("batch", 16, "Batch size for training")
	lr := fs.Float64("lr", 0.01, "Learning rate for Adam optimizer")
	seed := fs.Int64("seed", 1, "Seed for data, weights and shuffling")
	weights := fs.String("save", "", "Write the trained weights to this SafeTensors file")
	verbose := fs.Bool("v", false, "Log every epoch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{Level: level}))

	backend := cpu.New()
	//nolint:gosec // Using math/rand for synthetic data (not security-critical)
	rng := rand.New(rand.NewSource(*seed))
	x, y, err := sumData(*samples, rng, backend)
	if err != nil {
		return err
	}

	in := nn.NewInput(tensor.Shape{2}, backend)
	out, err := nn.Connect[*cpu.Backend](in,
		nn.NewDense(8, true, backend).SetInitializer(nn.HeNormal(rng)),
		nn.NewReLU(backend),
		nn.NewDense(1, true, backend).SetInitializer(nn.XavierUniform(rng)),
	)
	if err != nil {
		return err
	}
	m := model.New[*cpu.Backend](in, out, model.Config{Name: "adder", Logger: logger, Verbose: *verbose})
	if err := m.Build(); err != nil {
		return err
	}
	if err := m.Compile(
		optim.NewAdam[*cpu.Backend](optim.AdamConfig{LR: float32(*lr)}),
		nn.NewMSELoss[*cpu.Backend](),
		metrics.NewMeanAbsoluteError(backend),
	); err != nil {
		return err
	}
	fmt.Fprint(stdout, m.Summary())

	history, err := m.Fit(x, y, model.FitConfig{
		Epochs:          *epochs,
		BatchSize:       *batchSize,
		ValidationSplit: 0.2,
		Shuffle:         true,
		Seed:            uint64(*seed),
	})
	if err != nil {
		return errors.Wrap(err, "train")
	}
	loss, _ := history.Last("loss")
	valLoss, _ := history.Last("val_loss")
	fmt.Fprintf(stdout, "final loss %.6f, val_loss %.6f\n", loss, valLoss)

	probe, err := tensor.FromSlice([]float32{0.25, 0.5}, tensor.Shape{1, 2}, backend)
	if err != nil {
		return err
	}
	pred, err := m.Predict(probe, 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "0.25 + 0.5 = %.4f\n", pred.Data()[0])

	if *weights != "" {
		if err := m.SaveWeights(*weights); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "weights saved to %s\n", *weights)
	}
	return nil
}

// sumData returns n samples drawn from [0, 1)^2 with targets x0 + x1.
func sumData(n int, rng *rand.Rand, backend *cpu.Backend) (x, y *tensor.Tensor[float32, *cpu.Backend], err error) {
	x = tensor.Uniform[float32](tensor.Shape{n, 2}, 0, 1, rng, backend)
	ys := make([]float32, n)
	xs := x.Data()
	for i := range ys {
		ys[i] = xs[2*i] + xs[2*i+1]
	}
	y, err = tensor.FromSlice(ys, tensor.Shape{n, 1}, backend)
	return x, y, err
}
