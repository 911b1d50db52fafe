package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	s, err := Parse([]byte(`
duration_ticks: 100
threads:
  - name: a
    priority: 10
  - name: b
    priority: 20
    behavior: sleeper
`))
	require.NoError(t, err)
	require.Equal(t, "unnamed", s.Name)
	require.Equal(t, 1000, s.TickMicros)
	require.Equal(t, 32, s.Frames)
	require.Equal(t, BehaviorSpin, s.Threads[0].Behavior)
	require.Equal(t, int64(10), s.Threads[1].SleepTicks)
}

func TestParseRejectsBadScenarios(t *testing.T) {
	cases := map[string]string{
		"no duration": `
threads:
  - {name: a, priority: 1}
`,
		"no threads": `
duration_ticks: 10
`,
		"empty name": `
duration_ticks: 10
threads:
  - {priority: 1}
`,
		"priority out of range": `
duration_ticks: 10
threads:
  - {name: a, priority: 99}
`,
		"nice out of range": `
duration_ticks: 10
threads:
  - {name: a, priority: 1, nice: 30}
`,
		"unknown behavior": `
duration_ticks: 10
threads:
  - {name: a, priority: 1, behavior: dance}
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("{threads: ["))
	require.Error(t, err)
}

func TestDefaultValidates(t *testing.T) {
	s := Default()
	require.NoError(t, s.validate())
	require.NotEmpty(t, s.Threads)
}
