package guide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_Default(t *testing.T) {
	md, err := Get("")
	require.NoError(t, err)
	assert.Contains(t, md, "# vpnutils")
}

func TestGet_Missing(t *testing.T) {
	_, err := Get("nope")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	names, err := List()
	require.NoError(t, err)
	assert.Equal(t, []string{"allocation", "keys", "shell"}, names)
	for _, n := range names {
		md, err := Get(n)
		require.NoError(t, err)
		assert.NotEmpty(t, md)
	}
}
