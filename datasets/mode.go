package datasets

import (
	"fmt"
	"strings"

	"github.com/Noofbiz/mobiledetect/errs"
)

// Mode selects which tensors a batch hands to the training loop, matching
// the sub-network being trained.
type Mode int

const (
	// ModeComplete: image -> [coverage, boxes, centers].
	ModeComplete Mode = iota
	// ModeCoverage: image -> [coverage].
	ModeCoverage
	// ModeRegion: [coverage] -> [boxes].
	ModeRegion
	// ModePooling: [boxes] -> [centers].
	ModePooling
)

// output names one tensor of a batch.
type output int

const (
	outImage output = iota
	outCoverage
	outBoxes
	outCenters
)

// assembly lists the input and label tensors a mode returns.
type assembly struct {
	inputs []output
	labels []output
}

var assemblies = map[Mode]assembly{
	ModeComplete: {inputs: []output{outImage}, labels: []output{outCoverage, outBoxes, outCenters}},
	ModeCoverage: {inputs: []output{outImage}, labels: []output{outCoverage}},
	ModeRegion:   {inputs: []output{outCoverage}, labels: []output{outBoxes}},
	ModePooling:  {inputs: []output{outBoxes}, labels: []output{outCenters}},
}

var modeNames = map[Mode]string{
	ModeComplete: "complete",
	ModeCoverage: "coverage",
	ModeRegion:   "region",
	ModePooling:  "pooling",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts "complete" (also the empty string), "coverage",
// "region" (or "regions") and "pooling".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "complete":
		return ModeComplete, nil
	case "coverage":
		return ModeCoverage, nil
	case "region", "regions":
		return ModeRegion, nil
	case "pooling":
		return ModePooling, nil
	}
	return 0, fmt.Errorf("%w: unsupported model mode %q", errs.ErrInvalidArgument, s)
}

func (m Mode) assembly() (assembly, error) {
	a, ok := assemblies[m]
	if !ok {
		return assembly{}, fmt.Errorf("%w: unsupported model mode %v", errs.ErrInvalidArgument, m)
	}
	return a, nil
}
