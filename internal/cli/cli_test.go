package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return buf.String()
}

func TestVersionCmd(t *testing.T) {
	out := execute(t, "version")
	require.Contains(t, out, "schedsim")
}

func TestRunCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quick.yaml")
	doc := `
name: quick
duration_ticks: 50
tick_micros: 200
threads:
  - {name: spinner, priority: 40}
  - {name: napper, priority: 35, behavior: sleeper, sleep_ticks: 5}
  - {name: locker-a, priority: 45, behavior: locker}
  - {name: locker-b, priority: 30, behavior: locker}
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out := execute(t, "--log-level", "error", "run", path)
	require.Contains(t, out, "scenario quick")
	require.Contains(t, out, "ticks:")
}

func TestRunCmdRejectsBadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("duration_ticks: -1\nthreads: [{name: a, priority: 1}]\n"), 0o644))

	root := NewRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"run", path})
	require.Error(t, root.Execute())
}
