package monitor

import (
	"time"

	"github.com/resumify/docflow/internal/domain/recordModel"
	"github.com/resumify/docflow/internal/extract"
)

// A stage profile is display-side guesswork: the backend never exposes real
// progress, so the monitor maps elapsed time onto an ordered list of expected
// phases with nominal durations. Percentages derived from it are estimates
// and are capped below 100 until Completed is actually observed.
type stage struct {
	Name    string
	Nominal time.Duration
}

type Profile struct {
	stages []stage
	total  time.Duration
}

var asyncStages = []stage{
	{"upload", 3 * time.Second},
	{"queued", 10 * time.Second},
	{"ocr", 45 * time.Second},
	{"finalizing", 7 * time.Second},
}

var syncStages = []stage{
	{"upload", 2 * time.Second},
	{"extracting", 4 * time.Second},
}

// ProfileFor picks the stage table for a format and scales the nominal
// durations by artifact size: a 5mb scan legitimately takes longer than a
// 50kb one, and the display should not stall at 99% for the big ones.
func ProfileFor(format string, sizeBytes int64) Profile {
	base := syncStages
	if kind, ok := extract.Classify(format); ok && kind == recordModel.SourceAsynchronousJob {
		base = asyncStages
	}

	// 1x at <=1mb, growing linearly, capped at 6x
	factor := 1.0 + float64(sizeBytes)/float64(1<<20)/2.0
	if factor > 6 {
		factor = 6
	}

	p := Profile{stages: make([]stage, len(base))}
	for i, s := range base {
		scaled := time.Duration(float64(s.Nominal) * factor)
		p.stages[i] = stage{Name: s.Name, Nominal: scaled}
		p.total += scaled
	}
	return p
}

// Estimate maps elapsed time to (percent, stage name). The result is capped
// at 99: only an observed Completed status may ever display 100.
func (p Profile) Estimate(elapsed time.Duration) (float64, string) {
	if p.total <= 0 || len(p.stages) == 0 {
		return 0, ""
	}

	current := p.stages[len(p.stages)-1].Name
	var passed time.Duration
	for _, s := range p.stages {
		if elapsed < passed+s.Nominal {
			current = s.Name
			break
		}
		passed += s.Nominal
	}

	percent := float64(elapsed) / float64(p.total) * 100
	if percent > 99 {
		percent = 99
	}
	if percent < 0 {
		percent = 0
	}
	return percent, current
}
