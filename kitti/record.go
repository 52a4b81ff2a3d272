// Package kitti reads KITTI-style object labels and turns them into boxes
// and an object mask sized to the working image.
//
// A label file has one object per line, space delimited:
//
//	class truncated occluded alpha x1 y1 x2 y2 [h w l x y z rotation_y ...]
//
// Only the first eight columns are parsed. The trailing 3-D fields are
// tolerated but not validated.
package kitti

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Noofbiz/mobiledetect/errs"
	"github.com/Noofbiz/mobiledetect/geom"
)

// minFields is the number of leading columns every record must carry.
const minFields = 8

// Record is one parsed label line.
type Record struct {
	Class     string
	Truncated float64
	Occluded  int
	Alpha     float64

	// Box is in the pixel coordinates of the original, un-resized image.
	Box geom.Box
}

// ParseRecord parses a single non-empty label line.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		return Record{}, fmt.Errorf("%w: expected at least %d fields, got %d", errs.ErrFormat, minFields, len(fields))
	}

	var (
		rec Record
		err error
	)
	rec.Class = fields[0]
	if rec.Truncated, err = parseFloat("truncated", fields[1]); err != nil {
		return Record{}, err
	}
	if rec.Occluded, err = strconv.Atoi(fields[2]); err != nil {
		return Record{}, fmt.Errorf("%w: failed to parse occluded %q", errs.ErrFormat, fields[2])
	}
	if rec.Alpha, err = parseFloat("alpha", fields[3]); err != nil {
		return Record{}, err
	}

	var coords [4]float64
	for i, name := range []string{"x1", "y1", "x2", "y2"} {
		if coords[i], err = parseFloat(name, fields[4+i]); err != nil {
			return Record{}, err
		}
	}
	rec.Box = geom.NewBox(coords[0], coords[1], coords[2], coords[3], rec.Class)
	return rec, nil
}

// ParseLabels reads every record from r. Blank lines are skipped.
func ParseLabels(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return records, nil
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to parse %s %q", errs.ErrFormat, name, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s %q is not finite", errs.ErrFormat, name, s)
	}
	return v, nil
}
