package main

// Example command that builds the first batch of a KITTI-labelled image
// directory and converts it into gomlx tensors for every model mode.
//
// The dataset uses lazy loading - it only stores file paths and reads the
// images and labels of a batch when that batch is requested.
//
// Usage:
//   go run ./datasets/example [root]
//
// root defaults to ../assets/kitti and must contain images/ and labels/.

import (
	"fmt"
	"log"
	"os"

	"github.com/Noofbiz/mobiledetect/augment"
	"github.com/Noofbiz/mobiledetect/datasets"
	"github.com/Noofbiz/mobiledetect/encode"
)

func main() {
	root := "../assets/kitti"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	opts := datasets.SequenceOptions{
		Image:     encode.Shape{Height: 224, Width: 224},
		Coverage:  encode.Shape{Height: 7, Width: 7},
		Grid:      encode.Shape{Height: 7, Width: 7},
		BatchSize: 4,
		Stage:     augment.StageValidation,
		Seed:      1,
	}
	seq, err := datasets.NewSequence(root, opts)
	if err != nil {
		log.Fatalf("failed to open dataset: %v", err)
	}
	fmt.Printf("Samples: %d, batches of %d: %d\n", seq.NumSamples(), seq.BatchSize(), seq.Len())
	if seq.Len() == 0 {
		fmt.Println("Not enough samples for a single batch.")
		return
	}

	b, err := seq.Batch(0)
	if err != nil {
		log.Fatalf("failed to build batch: %v", err)
	}

	for _, mode := range []datasets.Mode{datasets.ModeComplete, datasets.ModeCoverage, datasets.ModeRegion, datasets.ModePooling} {
		inputs, labels, err := b.ToGomlxTensors(mode)
		if err != nil {
			log.Fatalf("failed to convert batch for %v: %v", mode, err)
		}
		fmt.Printf("%-8v inputs:", mode)
		for _, t := range inputs {
			fmt.Printf(" %v", t.Shape())
		}
		fmt.Printf("  labels:")
		for _, t := range labels {
			fmt.Printf(" %v", t.Shape())
		}
		fmt.Println()
	}

	// Decode the claimed cells of the first sample back into pixels.
	enc := seq.Encoder()
	grid := b.Targets(0).Boxes
	for y := range enc.Grid().Height {
		for x := range enc.Grid().Width {
			if box := enc.DecodeCell(grid, x, y); box.Area() > 0 {
				fmt.Printf("  cell (%d,%d): %v\n", x, y, box)
			}
		}
	}
}
