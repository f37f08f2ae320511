// Package parallel provides the data-parallel loop helpers used by tensor kernels.
//
// Only independent element-wise work is fanned out. Reductions are computed as
// per-chunk partials that are combined in chunk order, so a given Config always
// produces the same floating-point result.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 1024,
	}
}

// Sequential returns a Config that never spawns goroutines.
func Sequential() Config {
	return Config{Enabled: false, NumWorkers: 1, MinChunkSize: 1}
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	for _, r := range ranges(n, cfg) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(r[0], r[1])
	}
	wg.Wait()
}

// ForBatch optimized for batch*channels iteration pattern.
// Common in CNN operations like Conv2D.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	n := batch * channels
	For(n, func(k int) {
		f(k/channels, k%channels)
	}, cfg)
}

// Range splits [0, n) into contiguous ranges and runs f on each of them.
// It is the infallible form of Chunks.
func Range(n int, cfg Config, f func(start, end int)) {
	if n <= 0 {
		return
	}
	if !cfg.Enabled || n < cfg.MinChunkSize {
		f(0, n)
		return
	}
	rs := ranges(n, cfg)
	For(len(rs), func(i int) {
		f(rs[i][0], rs[i][1])
	}, Config{Enabled: true, NumWorkers: len(rs), MinChunkSize: 1})
}

// Chunks splits [0, n) into contiguous ranges and runs f on each of them.
// The first error returned by any chunk is returned; remaining chunks still
// run to completion.
func Chunks(n int, cfg Config, f func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	if !cfg.Enabled || n < cfg.MinChunkSize {
		return f(0, n)
	}

	var g errgroup.Group
	g.SetLimit(max(cfg.NumWorkers, 1))
	for _, r := range ranges(n, cfg) {
		s, e := r[0], r[1]
		g.Go(func() error {
			return f(s, e)
		})
	}
	return g.Wait()
}

// Sum reduces [0, n) by summing the partial results of each chunk.
// Partials are added in chunk order, never in completion order.
func Sum(n int, cfg Config, partial func(start, end int) float64) float64 {
	if n <= 0 {
		return 0
	}
	if !cfg.Enabled || n < cfg.MinChunkSize {
		return partial(0, n)
	}

	rs := ranges(n, cfg)
	partials := make([]float64, len(rs))
	For(len(rs), func(i int) {
		partials[i] = partial(rs[i][0], rs[i][1])
	}, Config{Enabled: true, NumWorkers: len(rs), MinChunkSize: 1})

	var total float64
	for _, p := range partials {
		total += p
	}
	return total
}

// ranges returns the [start, end) chunks For and Chunks iterate over.
func ranges(n int, cfg Config) [][2]int {
	workers := max(cfg.NumWorkers, 1)
	chunkSize := max((n+workers-1)/workers, cfg.MinChunkSize, 1)

	out := make([][2]int, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		out = append(out, [2]int{start, min(start+chunkSize, n)})
	}
	return out
}
