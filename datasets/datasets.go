package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// This package turns a directory of images and KITTI labels into fixed-shape
// training batches for a grid detector.
//
// The dataset uses lazy loading - it stores file paths and only reads the
// images and labels when a batch is requested, so memory use is bounded by
// one batch.
//
// Layout and intended usage:
//
// Sequence
//   - Walks <root>/images recursively; every image name.ext is paired with
//     <root>/labels/name.txt
//   - Per sample: load, resize to the working resolution, parse labels,
//     augment, encode into coverage / box / box-center grids
//   - Batches are contiguous float32 buffers (Batch) converted to gomlx
//     tensors in one step (Batch.ToGomlxTensors), selected by Mode
//
// The dataset implements this interface in order to interact with GoMLX
// training loops.
type Dataset interface {
	// Len is the number of complete batches.
	Len() int
	Batch(index int) (*Batch, error)
	Shuffle(seed int64)

	// To implement gomlx's train.Dataset interface
	Name() string
	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
	Reset()
}

var _ Dataset = (*Sequence)(nil)
