package cmd

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTerminal makes prompts read the given answers in order.
func fakeTerminal(t *testing.T, answers ...string) *bytes.Buffer {
	t.Helper()
	// t.Setenv restores the variable afterwards; unset it for the test body.
	t.Setenv(EnvPassword, "")
	require.NoError(t, os.Unsetenv(EnvPassword))

	var buf bytes.Buffer
	oldTerm, oldRead, oldPrompt := stdinIsTerminal, readPassword, prompt
	t.Cleanup(func() { stdinIsTerminal, readPassword, prompt = oldTerm, oldRead, oldPrompt })

	stdinIsTerminal = func() bool { return true }
	prompt = &buf
	readPassword = func() ([]byte, error) {
		if len(answers) == 0 {
			return nil, errors.New("no more input")
		}
		a := answers[0]
		answers = answers[1:]
		return []byte(a), nil
	}
	return &buf
}

func TestPassphrase_FromEnvironment(t *testing.T) {
	t.Setenv(EnvPassword, "from-env")

	p, err := Passphrase("x.vpn")
	require.NoError(t, err)
	assert.Equal(t, "from-env", p)

	p, err = NewPassphrase("x.vpn")
	require.NoError(t, err)
	assert.Equal(t, "from-env", p)
}

func TestPassphrase_EmptyEnvironmentIsUsed(t *testing.T) {
	t.Setenv(EnvPassword, "")

	p, err := Passphrase("x.vpn")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestPassphrase_NoTerminal(t *testing.T) {
	fakeTerminal(t)
	stdinIsTerminal = func() bool { return false }

	_, err := Passphrase("x.vpn")
	assert.ErrorIs(t, err, ErrNoTerminal)
	_, err = NewPassphrase("x.vpn")
	assert.ErrorIs(t, err, ErrNoTerminal)
	assert.False(t, Confirm("sure?"))
}

func TestPassphrase_Prompt(t *testing.T) {
	buf := fakeTerminal(t, "hunter2")

	p, err := Passphrase("office.vpn")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", p)
	assert.Contains(t, buf.String(), "Passphrase for office.vpn")
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestNewPassphrase(t *testing.T) {
	t.Run("confirmed", func(t *testing.T) {
		buf := fakeTerminal(t, "s3cret", "s3cret")
		p, err := NewPassphrase("office.vpn")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", p)
		assert.Contains(t, buf.String(), "Repeat passphrase")
	})

	t.Run("mismatch", func(t *testing.T) {
		fakeTerminal(t, "one", "two")
		_, err := NewPassphrase("office.vpn")
		assert.ErrorIs(t, err, ErrPassphraseMismatch)
	})

	t.Run("read error", func(t *testing.T) {
		fakeTerminal(t, "only-once")
		_, err := NewPassphrase("office.vpn")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrPassphraseMismatch)
	})
}

func TestReportError(t *testing.T) {
	var buf bytes.Buffer
	reportError(&buf, errors.New("boom"))
	assert.Equal(t, "Error: boom\n", buf.String())

	buf.Reset()
	reportError(&buf, errPrinted{errors.New("boom")})
	assert.Empty(t, buf.String())
}

func TestPrintJSONError(t *testing.T) {
	var buf bytes.Buffer
	oldOut, oldOutput := out, output
	t.Cleanup(func() { out, output = oldOut, oldOutput })
	out = &buf

	output = ""
	err := errors.New("boom")
	assert.Same(t, err, PrintJSONError(err))
	assert.Empty(t, buf.String())

	output = "json"
	got := PrintJSONError(err)
	assert.ErrorIs(t, got, err)
	assert.JSONEq(t, `{"error":"boom"}`, buf.String())
}

func TestDatabasePriority(t *testing.T) {
	oldDB := database
	t.Cleanup(func() { database = oldDB })
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvStore, "")
	t.Setenv(EnvDatabase, "")
	database = ""

	t.Setenv(EnvDatabase, "url.vpn")
	assert.Equal(t, "url.vpn", Database())

	t.Setenv(EnvStore, "env.vpn")
	assert.Equal(t, "env.vpn", Database())

	database = "flag.vpn"
	assert.Equal(t, "flag.vpn", Database())
}
