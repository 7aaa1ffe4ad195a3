// Package stage defines the closed set of test stages and the selection
// logic that decides which of them a run executes.
package stage

import (
	"fmt"
	"slices"
)

// Name identifies a test stage.
type Name string

const (
	PHPUnit      Name = "phpunit"
	NPMTest      Name = "npm-test"
	ComposerTest Name = "composer-test"
	QUnit        Name = "qunit"
	Selenium     Name = "selenium"
)

// All is the reserved selector value meaning every stage. It is valid in
// both the run and the skip sets.
const All = "all"

// Names lists every stage in pipeline order.
func Names() []Name {
	return []Name{PHPUnit, NPMTest, ComposerTest, QUnit, Selenium}
}

// Validate rejects selector values that are neither a stage name nor the
// all sentinel, so typos fail at configuration time instead of silently
// never matching.
func Validate(values []string) error {
	for _, v := range values {
		if v == All {
			continue
		}
		if !slices.Contains(Names(), Name(v)) {
			return fmt.Errorf("unknown stage %q (stages: %v)", v, Names())
		}
	}
	return nil
}
