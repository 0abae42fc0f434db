package resolver

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/alexisbeaulieu97/cph/internal/logger"
	"github.com/alexisbeaulieu97/cph/internal/step"
)

// Resolver inserts directory preparation steps in front of steps that need a
// directory nobody has created yet.
type Resolver struct {
	logger *logger.Logger
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for debug output.
func WithLogger(l *logger.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// New constructs a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// tracker is the logical view of what earlier steps produced. It is seeded
// empty and never consults the real filesystem.
type tracker struct {
	dirs  mapset.Set[string]
	files mapset.Set[string]
}

func newTracker() *tracker {
	return &tracker{
		dirs:  mapset.NewThreadUnsafeSet[string](),
		files: mapset.NewThreadUnsafeSet[string](),
	}
}

// Resolve walks steps left to right and returns a new list in which every
// original step is preceded by the MKDIR steps it needs. Original order is
// preserved and the input slice is not modified.
func (r *Resolver) Resolve(steps []step.Step) []step.Step {
	state := newTracker()
	resolved := make([]step.Step, 0, len(steps))

	for i, s := range steps {
		for _, dir := range state.missingDirs(s) {
			r.logger.WithFields(map[string]any{"step_index": i, "dir": dir}).Debug("inserting directory preparation step")
			resolved = append(resolved, step.NewMkdir(dir))
			state.dirs.Add(dir)
		}
		resolved = append(resolved, s)
		state.apply(s)
	}
	return resolved
}

// Resolve runs a default Resolver over steps.
func Resolve(steps []step.Step) []step.Step {
	return New().Resolve(steps)
}

// missingDirs lists the directories s needs that are not tracked yet, in the
// order they must be created. Duplicates are reported once.
func (t *tracker) missingDirs(s step.Step) []string {
	var needed []string
	add := func(dir string) {
		if dir == "" || t.dirs.Contains(dir) {
			return
		}
		for _, seen := range needed {
			if seen == dir {
				return
			}
		}
		needed = append(needed, dir)
	}

	switch s.Type {
	case step.TypeCopy, step.TypeMove, step.TypeMoveTree:
		if len(s.Cmd) >= 2 {
			if dir, ok := step.ParentDir(s.Cmd[1]); ok {
				add(dir)
			}
		}
	case step.TypeTouch:
		if len(s.Cmd) >= 1 {
			if dir, ok := step.ParentDir(s.Cmd[0]); ok {
				add(dir)
			}
		}
	}

	if s.Cwd != "" && s.Cwd != "." {
		add(s.Cwd)
	}
	return needed
}

// apply records what s itself creates or removes.
func (t *tracker) apply(s step.Step) {
	switch s.Type {
	case step.TypeMkdir:
		if len(s.Cmd) >= 1 {
			t.dirs.Add(s.Cmd[0])
		}
	case step.TypeTouch:
		if len(s.Cmd) >= 1 {
			t.files.Add(s.Cmd[0])
			t.addParent(s.Cmd[0])
		}
	case step.TypeCopy, step.TypeMove:
		if len(s.Cmd) >= 2 {
			t.files.Add(s.Cmd[1])
			t.addParent(s.Cmd[1])
		}
	case step.TypeMoveTree:
		if len(s.Cmd) >= 2 {
			t.dirs.Add(s.Cmd[1])
			t.addParent(s.Cmd[1])
		}
	case step.TypeRemove, step.TypeRmTree:
		if len(s.Cmd) >= 1 {
			t.files.Remove(s.Cmd[0])
			t.dirs.Remove(s.Cmd[0])
		}
	}
}

func (t *tracker) addParent(p string) {
	if dir, ok := step.ParentDir(p); ok {
		t.dirs.Add(dir)
	}
}
