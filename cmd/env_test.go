// Testing Strategy Design Decision:
//
// The cmd/ package contains CLI integration tests that exercise the full stack:
// command parsing -> inventory service -> store -> encrypted vault.
//
// Each test gets its own HOME, so the audit log and global config never
// touch the real user directory, and a local config with the lowest scrypt
// work factor so creating and saving stores stays fast.

package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// buildBinary compiles the vpnutils binary once for all tests.
func buildBinary(t *testing.T) string {
	t.Helper()

	buildOnce.Do(func() {
		tmpDir, err := os.MkdirTemp("", "vpnutils-test-bin-*")
		if err != nil {
			buildErr = err
			return
		}

		binaryName := "vpnutils"
		if os.PathSeparator == '\\' {
			binaryName = "vpnutils.exe"
		}
		binaryPath = filepath.Join(tmpDir, binaryName)

		// Find project root (parent of cmd/)
		wd := mustGetwd()
		projectRoot := filepath.Dir(wd)

		cmd := exec.Command("go", "build", "-o", binaryPath, ".")
		cmd.Dir = projectRoot
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = &buildError{err: err, output: string(out)}
			return
		}
	})

	if buildErr != nil {
		t.Fatalf("failed to build binary: %v", buildErr)
	}
	return binaryPath
}

type buildError struct {
	err    error
	output string
}

func (e *buildError) Error() string {
	return e.err.Error() + "\n" + e.output
}

func mustGetwd() string {
	dir, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return dir
}

const (
	testStore    = "office.vpn"
	testPassword = "supersafe"
)

// testEnv holds test environment state.
type testEnv struct {
	t        *testing.T
	dir      string
	home     string
	binary   string
	password string
	store    string
	tmp      string
}

// newTestEnv creates a temporary directory holding a fresh encrypted store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := newBareEnv(t)
	env.run("create")
	return env
}

// newBareEnv is newTestEnv without the store.
func newBareEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		t:        t,
		dir:      t.TempDir(),
		home:     t.TempDir(),
		binary:   buildBinary(t),
		password: testPassword,
		store:    testStore,
		tmp:      t.TempDir(),
	}
	env.run("config", "--local", "cipher.work_factor", "10")
	return env
}

// environ is the child process environment.
func (e *testEnv) environ() []string {
	return append(os.Environ(),
		"HOME="+e.home,
		"USERPROFILE="+e.home,
		EnvPassword+"="+e.password,
		EnvStore+"="+e.store,
		EnvDatabase+"=",
		"TMPDIR="+e.tmp,
	)
}

// run executes vpnutils with the given args and returns combined output.
func (e *testEnv) run(args ...string) string {
	e.t.Helper()
	out, err := e.runErr(args...)
	if err != nil {
		e.t.Fatalf("vpnutils %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runErr executes vpnutils and returns output and any error.
func (e *testEnv) runErr(args ...string) (string, error) {
	e.t.Helper()
	return e.runStdinErr("", args...)
}

// runStdin executes vpnutils with stdin input.
func (e *testEnv) runStdin(input string, args ...string) string {
	e.t.Helper()
	out, err := e.runStdinErr(input, args...)
	if err != nil {
		e.t.Fatalf("vpnutils %v failed: %v\noutput: %s", args, err, out)
	}
	return out
}

// runStdinErr executes vpnutils with stdin input and returns any error.
func (e *testEnv) runStdinErr(input string, args ...string) (string, error) {
	e.t.Helper()

	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = e.environ()
	cmd.Stdin = strings.NewReader(input)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// interrupt starts vpnutils, sends it an interrupt after delay and waits
// for it to exit. The exit code is -1 when the process ended by the signal.
func (e *testEnv) interrupt(delay time.Duration, args ...string) (string, int) {
	e.t.Helper()

	var out bytes.Buffer
	cmd := exec.Command(e.binary, args...)
	cmd.Dir = e.dir
	cmd.Env = e.environ()
	cmd.Stdout = &out
	cmd.Stderr = &out
	require.NoError(e.t, cmd.Start())

	time.Sleep(delay)
	_ = cmd.Process.Signal(os.Interrupt)
	_ = cmd.Wait()
	return out.String(), cmd.ProcessState.ExitCode()
}

// stagingDirs lists staging directories left in the child's temp dir.
func (e *testEnv) stagingDirs() []string {
	e.t.Helper()
	matches, err := filepath.Glob(filepath.Join(e.tmp, "vpnutils-*"))
	require.NoError(e.t, err)
	return matches
}

// runJSON executes vpnutils with -o json and decodes the output into v.
func (e *testEnv) runJSON(v any, args ...string) {
	e.t.Helper()
	out := e.run(append(args, "-o", "json")...)
	require.NoError(e.t, json.Unmarshal([]byte(out), v), "output: %s", out)
}

// storePath is the encrypted store file.
func (e *testEnv) storePath() string {
	return filepath.Join(e.dir, testStore)
}

// contains checks if output contains expected string.
func (e *testEnv) contains(output, expected string) {
	e.t.Helper()
	assert.Contains(e.t, output, expected)
}

// equals checks if output equals expected string (trimmed).
func (e *testEnv) equals(output, expected string) {
	e.t.Helper()
	assert.Equal(e.t, strings.TrimSpace(expected), strings.TrimSpace(output))
}

// seed adds network corp, vpn office and peers alice and bob.
func (e *testEnv) seed() {
	e.t.Helper()
	e.run("network", "add", "corp", "-4", "10.0.0.0/8", "-6", "fd00::/8")
	e.run("vpn", "add", "corp", "office")
	e.run("peer", "add", "office", "alice")
	e.run("peer", "add", "office", "bob")
}
