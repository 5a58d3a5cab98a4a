package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *[]string {
	t.Helper()
	original := Logf
	t.Cleanup(func() { Logf = original })

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)
	Logf("%d strides", 4)
	assert.Equal(t, []string{"4 strides"}, *lines)

	SetLogger(nil)
	assert.NotPanics(t, func() { Logf("dropped") })
	assert.Len(t, *lines, 1)
}

func TestWithPrefixFollowsLaterSetLogger(t *testing.T) {
	logf := WithPrefix("[gait]")
	lines := capture(t)

	logf("skipped %s", "Back Angle")
	assert.Equal(t, []string{"[gait] skipped Back Angle"}, *lines)
}
