package hotkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescribeRoundTrip(t *testing.T) {
	specs := []string{
		"Ctrl+Shift+P",
		"Ctrl+P",
		"Alt+F4",
		"Super+Space",
		"Ctrl+Shift+Alt+Super+Esc",
		"F12",
		"Ctrl+,",
		"Ctrl+Plus",
		"Plus",
	}

	for _, spec := range specs {
		hk, err := Parse(spec)
		require.NoError(t, err, spec)

		again, err := Parse(hk.Describe())
		require.NoError(t, err, spec)
		assert.Equal(t, hk, again, spec)
	}
}

func TestParseSynonymsNormalize(t *testing.T) {
	a, err := Parse("Control+p")
	require.NoError(t, err)
	b, err := Parse("Ctrl+P")
	require.NoError(t, err)
	assert.Equal(t, b, a)

	c, err := Parse("meta+option+return")
	require.NoError(t, err)
	assert.Equal(t, Hotkey{Alt: true, Super: true, Key: "Enter"}, c)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("Ctrl+Shift")
	assert.Error(t, err, "no key token")

	_, err = Parse("")
	assert.Error(t, err)

	_, err = Parse("Ctrl+A+B")
	assert.Error(t, err, "two key tokens")
}

func TestParseIgnoresEmptyTokens(t *testing.T) {
	hk, err := Parse(" Ctrl + P ")
	require.NoError(t, err)
	assert.Equal(t, Hotkey{Ctrl: true, Key: "P"}, hk)
}

func TestMatchesExactModifiers(t *testing.T) {
	hk, err := Parse("Ctrl+P")
	require.NoError(t, err)

	assert.True(t, hk.Matches(Mods{Ctrl: true}, "P"))
	assert.False(t, hk.Matches(Mods{Ctrl: true, Shift: true}, "P"), "extra modifier must not match")
	assert.False(t, hk.Matches(Mods{}, "P"), "missing modifier must not match")
	assert.False(t, hk.Matches(Mods{Ctrl: true}, "Q"))
}

func TestMatchesNormalizesKeyLabel(t *testing.T) {
	hk, err := Parse("Ctrl+Escape")
	require.NoError(t, err)

	assert.True(t, hk.Matches(Mods{Ctrl: true}, "Esc"))
	assert.False(t, hk.Matches(Mods{Ctrl: true}, ""))
}

func TestDescribePlusKeyUsesNamedToken(t *testing.T) {
	hk, err := Parse("Ctrl+Plus")
	require.NoError(t, err)
	assert.Equal(t, Hotkey{Ctrl: true, Key: "+"}, hk)
	assert.Equal(t, "Ctrl+Plus", hk.Describe())

	again, err := Parse(hk.Describe())
	require.NoError(t, err)
	assert.Equal(t, hk, again)
}

func TestDescribeOrder(t *testing.T) {
	hk, err := Parse("p+super+alt+shift+ctrl")
	require.NoError(t, err)
	assert.Equal(t, "Ctrl+Shift+Alt+Super+P", hk.Describe())
}
