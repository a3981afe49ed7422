package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobSpec(t *testing.T) {
	spec, err := ParseJobSpec([]byte(`
rosters:
  activities: data/activities.csv
  courses: data/courses.csv
scope_delay_ms: 250
jobs:
  - name: math-course
    scope: course
    value: Matemática I
  - name: flores-feedback
    scope: instructor
    value: R. Flores
    with_feedback: true
`))
	require.NoError(t, err)

	assert.Equal(t, "data/activities.csv", spec.Rosters.Activities)
	assert.Equal(t, 250, spec.ScopeDelayMs)
	// Cache paths default when omitted.
	assert.Equal(t, "cache.csv", spec.Cache.Individual)
	assert.Equal(t, "cache_bulk.csv", spec.Cache.Bulk)

	require.Len(t, spec.Jobs, 2)
	assert.False(t, spec.Jobs[0].WithFeedback)
	assert.True(t, spec.Jobs[1].WithFeedback)
}

func TestParseJobSpec_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing rosters": `
jobs:
  - name: j
    scope: course
    value: x
`,
		"no jobs": `
rosters:
  activities: a.csv
  courses: c.csv
`,
		"bad scope": `
rosters:
  activities: a.csv
  courses: c.csv
jobs:
  - name: j
    scope: campus
    value: x
`,
		"missing value": `
rosters:
  activities: a.csv
  courses: c.csv
jobs:
  - name: j
    scope: course
`,
	}

	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJobSpec([]byte(yml))
			require.Error(t, err)
		})
	}
}
