package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"
	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/Noofbiz/mobiledetect/config"
	"github.com/Noofbiz/mobiledetect/datasets"
	"github.com/Noofbiz/mobiledetect/encode"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	logger, err := logs.NewLog()
	check(err)

	parser := argparse.NewParser("mdbatch", "Build detection-target batches from a KITTI-labelled image directory")
	dataDir := parser.String("d", "data", &argparse.Options{Help: "Dataset root containing images/ and labels/", Required: true})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file (.json, .yaml or .yml)"})
	stage := parser.String("s", "stage", &argparse.Options{Help: "Augmentation stage: train, validation or test"})
	model := parser.String("m", "model", &argparse.Options{Help: "Output assembly: complete, coverage, region or pooling"})
	batchSize := parser.Int("b", "batch-size", &argparse.Options{Help: "Samples per batch"})
	numBatches := parser.Int("n", "batches", &argparse.Options{Help: "Number of batches to build (0 = all)", Default: 0})
	seed := parser.Int("", "seed", &argparse.Options{Help: "Augmentation seed"})
	workers := parser.Int("w", "workers", &argparse.Options{Help: "Concurrent samples per batch"})
	shuffle := parser.Int("", "shuffle", &argparse.Options{Help: "Shuffle sample order with this seed (0 = keep order)"})
	preview := parser.String("p", "preview", &argparse.Options{Help: "Write coverage and box previews into this directory"})
	err = parser.Parse(os.Args)
	if err != nil {
		logger.Errorf("%v", parser.Usage(err))
		os.Exit(1)
	}

	cfg := config.Default()
	if *configFile != "" {
		cfg, err = config.Load(*configFile)
		if err != nil {
			logger.Errorf("Failed to load config: %v", err)
			os.Exit(1)
		}
	}
	if *stage != "" {
		cfg.Stage = *stage
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *batchSize != 0 {
		cfg.BatchSize = *batchSize
	}
	if *seed != 0 {
		cfg.Seed = uint64(*seed)
	}
	if *workers != 0 {
		cfg.Workers = *workers
	}
	if *shuffle != 0 {
		cfg.Shuffle = int64(*shuffle)
	}

	opts, err := cfg.SequenceOptions(logger)
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	seq, err := datasets.NewSequence(*dataDir, opts)
	if err != nil {
		logger.Errorf("Failed to open dataset '%v': %v", *dataDir, err)
		os.Exit(1)
	}
	if cfg.Shuffle != 0 {
		seq.Shuffle(cfg.Shuffle)
	}
	if *preview != "" {
		check(os.MkdirAll(*preview, 0o755))
	}

	if err := run(logger, seq, *numBatches, *preview); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(log logs.Log, seq *datasets.Sequence, limit int, previewDir string) error {
	n := seq.Len()
	if limit > 0 {
		n = min(n, limit)
	}
	start := time.Now()
	for i := range n {
		b, err := seq.Batch(i)
		if err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		inputs, labels, err := b.ToGomlxTensors(seq.Mode())
		if err != nil {
			return fmt.Errorf("batch %d: %w", i, err)
		}
		st := summarize(b)
		log.Infof("Batch %d: coverage mean %.4f, %d box cells, %d center cells, inputs %v, labels %v",
			i, st.coverage, st.boxCells, st.centerCells, shapes(inputs), shapes(labels))

		if previewDir != "" {
			for j := range b.Size {
				path := filepath.Join(previewDir, fmt.Sprintf("batch-%d-%d.png", i, j))
				if err := savePreview(path, seq.Encoder(), b, j); err != nil {
					return err
				}
			}
		}
	}
	log.Infof("Built %d batches in %v", n, time.Since(start))

	// Drain the training-loop interface once to check it stops cleanly.
	seq.Reset()
	if n == seq.Len() {
		for {
			_, _, _, err := seq.Yield()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return err
			}
		}
		log.Debugf("Epoch %d streamed", seq.Epoch())
	}
	return nil
}

type stats struct {
	coverage    float64
	boxCells    int
	centerCells int
}

func summarize(b *datasets.Batch) stats {
	var st stats
	for _, v := range b.CoverageValues {
		st.coverage += float64(v)
	}
	if len(b.CoverageValues) > 0 {
		st.coverage /= float64(len(b.CoverageValues))
	}
	st.boxCells = occupied(b.Boxes)
	st.centerCells = occupied(b.Centers)
	return st
}

// occupied counts grid cells holding a non-zero box.
func occupied(grid []float32) int {
	n := 0
	for i := 0; i+encode.BoxChannels <= len(grid); i += encode.BoxChannels {
		for _, v := range grid[i : i+encode.BoxChannels] {
			if v != 0 {
				n++
				break
			}
		}
	}
	return n
}

func shapes(ts []*tensors.Tensor) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Shape().String()
	}
	return out
}
