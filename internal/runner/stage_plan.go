package runner

import (
	"math"
	"time"
)

type stagePlan struct {
	segments []stageSegment
	duration time.Duration
	maxVUs   int
}

type stageSegment struct {
	start    time.Duration
	duration time.Duration
	fromVUs  int
	toVUs    int
}

func compileStagePlan(startVUs int, stages []Stage) *stagePlan {
	if len(stages) == 0 {
		return nil
	}

	plan := &stagePlan{maxVUs: startVUs}
	from := startVUs
	var offset time.Duration
	for _, stage := range stages {
		target := stage.Target
		if target < 0 {
			target = 0
		}
		// A zero-length stage jumps straight to its target.
		if stage.Duration <= 0 {
			from = target
			plan.maxVUs = max(plan.maxVUs, target)
			continue
		}
		plan.segments = append(plan.segments, stageSegment{
			start:    offset,
			duration: stage.Duration,
			fromVUs:  from,
			toVUs:    target,
		})
		plan.maxVUs = max(plan.maxVUs, target)
		offset += stage.Duration
		from = target
	}

	if len(plan.segments) == 0 {
		return nil
	}
	plan.duration = offset
	return plan
}

// vusAt returns the virtual user target at elapsed. Ramping up rounds down
// and ramping down rounds up, so the target never overshoots either end.
func (p *stagePlan) vusAt(elapsed time.Duration) (int, bool) {
	if p == nil || len(p.segments) == 0 {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	for _, seg := range p.segments {
		end := seg.start + seg.duration
		if elapsed < seg.start || elapsed >= end {
			continue
		}
		if seg.fromVUs == seg.toVUs {
			return seg.toVUs, true
		}
		progress := float64(elapsed-seg.start) / float64(seg.duration)
		value := float64(seg.fromVUs) + float64(seg.toVUs-seg.fromVUs)*progress
		if seg.toVUs > seg.fromVUs {
			return int(math.Floor(value)), true
		}
		return int(math.Ceil(value)), true
	}
	return 0, false
}

func (p *stagePlan) totalDuration() time.Duration {
	if p == nil {
		return 0
	}
	return p.duration
}
