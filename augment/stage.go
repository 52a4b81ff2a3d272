package augment

import (
	"fmt"
	"strings"

	"github.com/Noofbiz/mobiledetect/errs"
)

// Stage selects which augmentations a Pipeline applies.
type Stage int

const (
	StageTrain Stage = iota
	StageValidation
	StageTest
)

var stageNames = map[Stage]string{
	StageTrain:      "train",
	StageValidation: "validation",
	StageTest:       "test",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ParseStage accepts "train", "validation" (or "val") and "test".
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "train":
		return StageTrain, nil
	case "validation", "val":
		return StageValidation, nil
	case "test":
		return StageTest, nil
	}
	return 0, fmt.Errorf("%w: unsupported stage %q", errs.ErrInvalidArgument, s)
}
