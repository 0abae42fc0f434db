package resolver

import (
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// Optimize applies OptimizeMkdirs followed by OptimizeCopies.
func Optimize(steps []step.Step) []step.Step {
	return OptimizeCopies(OptimizeMkdirs(steps))
}

// OptimizeMkdirs collapses each run of consecutive MKDIR steps sharing the
// same allow_failure and show_output flags, dropping repeated paths inside
// the run.
func OptimizeMkdirs(steps []step.Step) []step.Step {
	if len(steps) == 0 {
		return steps
	}

	optimized := make([]step.Step, 0, len(steps))
	for i := 0; i < len(steps); {
		head := steps[i]
		if head.Type != step.TypeMkdir || len(head.Cmd) == 0 {
			optimized = append(optimized, head)
			i++
			continue
		}

		seen := map[string]struct{}{}
		j := i
		for ; j < len(steps); j++ {
			cur := steps[j]
			if cur.Type != step.TypeMkdir || len(cur.Cmd) == 0 ||
				cur.AllowFailure != head.AllowFailure || cur.ShowOutput != head.ShowOutput {
				break
			}
			if _, dup := seen[cur.Cmd[0]]; dup {
				continue
			}
			seen[cur.Cmd[0]] = struct{}{}
			optimized = append(optimized, cur)
		}
		i = j
	}
	return optimized
}

type copyKey struct {
	kind step.StepType
	src  string
	dst  string
}

// OptimizeCopies removes repeated identical COPY, MOVE, COPYTREE and MOVETREE
// operations. When a later duplicate must not fail, it replaces the earlier
// allow_failure occurrence in place.
func OptimizeCopies(steps []step.Step) []step.Step {
	if len(steps) == 0 {
		return steps
	}

	optimized := make([]step.Step, 0, len(steps))
	firstAt := map[copyKey]int{}
	for _, s := range steps {
		if !isTransfer(s.Type) || len(s.Cmd) < 2 {
			optimized = append(optimized, s)
			continue
		}

		key := copyKey{kind: s.Type, src: s.Cmd[0], dst: s.Cmd[1]}
		idx, dup := firstAt[key]
		if !dup {
			firstAt[key] = len(optimized)
			optimized = append(optimized, s)
			continue
		}
		if !s.AllowFailure && optimized[idx].AllowFailure {
			optimized[idx] = s
		}
	}
	return optimized
}

func isTransfer(t step.StepType) bool {
	switch t {
	case step.TypeCopy, step.TypeMove, step.TypeCopyTree, step.TypeMoveTree:
		return true
	}
	return false
}
