package stage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldRunDefaultsRunEverything(t *testing.T) {
	s := NewSelector([]string{All}, nil, nil)
	for _, name := range Names() {
		assert.True(t, s.ShouldRun(name), "stage %s should run by default", name)
	}
}

func TestShouldRunSkipAllWinsOverExplicitRun(t *testing.T) {
	s := NewSelector([]string{All, string(PHPUnit)}, []string{All}, nil)
	for _, name := range Names() {
		assert.False(t, s.ShouldRun(name), "skip=all must disable %s", name)
	}
}

func TestShouldRunCommandsDisableEveryStage(t *testing.T) {
	s := NewSelector([]string{All}, nil, []string{"composer phpunit"})
	for _, name := range Names() {
		assert.False(t, s.ShouldRun(name), "commands must disable %s", name)
	}
}

func TestShouldRunExplicitRequestedSet(t *testing.T) {
	s := NewSelector([]string{string(PHPUnit)}, nil, nil)
	assert.True(t, s.ShouldRun(PHPUnit))
	assert.False(t, s.ShouldRun(QUnit))
	assert.False(t, s.ShouldRun(Selenium))
}

func TestShouldRunExplicitSkipUnderRunAll(t *testing.T) {
	s := NewSelector([]string{All}, []string{string(PHPUnit)}, nil)
	assert.False(t, s.ShouldRun(PHPUnit))
	assert.True(t, s.ShouldRun(QUnit))
	assert.True(t, s.ShouldRun(NPMTest))
}

func TestShouldRunSkipBeatsExplicitRequest(t *testing.T) {
	s := NewSelector([]string{string(QUnit)}, []string{string(QUnit)}, nil)
	assert.False(t, s.ShouldRun(QUnit))
}

func TestSelectedPreservesPipelineOrder(t *testing.T) {
	s := NewSelector([]string{string(Selenium), string(PHPUnit)}, nil, nil)
	assert.Equal(t, []Name{PHPUnit, Selenium}, s.Selected())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]string{"all"}))
	assert.NoError(t, Validate([]string{"phpunit", "qunit"}))
	assert.NoError(t, Validate(nil))

	err := Validate([]string{"phpunit", "browser"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown stage "browser"`)
}
