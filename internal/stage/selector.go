package stage

import "slices"

// Selector decides, for any stage name, whether the run executes it. It is a
// pure function of the immutable run configuration: evaluation has no side
// effects and is re-done per call rather than cached.
type Selector struct {
	run      []string
	skip     []string
	commands []string
}

// NewSelector builds a selector from the --run, --skip and --commands
// values.
func NewSelector(run, skip, commands []string) Selector {
	return Selector{run: run, skip: skip, commands: commands}
}

// ShouldRun applies the selection rules in precedence order; the first
// matching rule decides:
//  1. literal command overrides disable every named stage
//  2. skip containing the all sentinel disables every stage
//  3. an explicit skip entry disables that stage
//  4. run containing the all sentinel enables everything not skipped
//  5. otherwise only explicit run entries are enabled
func (s Selector) ShouldRun(name Name) bool {
	if len(s.commands) > 0 {
		return false
	}
	if slices.Contains(s.skip, All) {
		return false
	}
	if slices.Contains(s.skip, string(name)) {
		return false
	}
	if slices.Contains(s.run, All) {
		return true
	}
	return slices.Contains(s.run, string(name))
}

// Selected returns the subset of all stages that would run, in pipeline
// order.
func (s Selector) Selected() []Name {
	var out []Name
	for _, n := range Names() {
		if s.ShouldRun(n) {
			out = append(out, n)
		}
	}
	return out
}
