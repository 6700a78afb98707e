// Package convert runs a complete call tree to dot conversion.
package convert

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"calltree2dot/internal/calltree"
	"calltree2dot/internal/chain"
	"calltree2dot/internal/dot"
	"calltree2dot/internal/policy"
)

// OutputExtension is appended to the input path to name the graph file.
const OutputExtension = ".dot"

// Result describes a finished conversion.
type Result struct {
	OutputPath string
	Nodes      int
	Edges      int
	chain.Stats
}

// OutputPath returns the graph path written for inputPath.
func OutputPath(inputPath string) string {
	return inputPath + OutputExtension
}

// Convert reads a call-tree export from in and writes the reduced graph to out.
// On error the content written to out is incomplete.
func Convert(in io.Reader, out io.Writer, p *policy.Policy, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	root := calltree.Root()
	emitter := dot.NewEmitter(out, p)
	emitter.Header(root)

	reconstructor := chain.New(root, p, emitter, logger)
	reader := calltree.NewReader(in)
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}
		reconstructor.Consume(entry)
	}
	reconstructor.Finish()

	if err := emitter.Footer(); err != nil {
		return Result{}, fmt.Errorf("failed to write graph: %w", err)
	}

	return Result{
		Nodes: emitter.Nodes(),
		Edges: emitter.Edges(),
		Stats: reconstructor.Stats(),
	}, nil
}

// ConvertFile converts the export at inputPath into inputPath + ".dot".
func ConvertFile(inputPath string, p *policy.Policy, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	in, err := calltree.Open(inputPath)
	if err != nil {
		return Result{}, err
	}
	defer in.Close()

	outputPath := OutputPath(inputPath)
	out, err := os.Create(outputPath)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create graph file: %w", err)
	}
	defer out.Close()

	logger.Info("Converting call tree", zap.String("input", inputPath), zap.String("output", outputPath))
	result, err := Convert(in, out, p, logger)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert %s: %w", inputPath, err)
	}
	if err := out.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close graph file: %w", err)
	}
	result.OutputPath = outputPath

	logger.Info("Call tree converted",
		zap.Int("rows", result.Rows),
		zap.Int("max_level", result.MaxLevel),
		zap.Int("nodes", result.Nodes),
		zap.Int("edges", result.Edges),
		zap.Int("chains", result.Chains),
		zap.Int("aborted_chains", result.AbortedChains),
		zap.Int("elided_frames", result.ElidedFrames),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}
