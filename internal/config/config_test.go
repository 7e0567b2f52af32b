package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tusk-notation/tusk/internal/config"
)

func TestDefaultIsLenient(t *testing.T) {
	o := config.Default()
	assert.True(t, o.Lenient)
	assert.Equal(t, config.CanonicalMEIVersion, o.MEI.Ceiling)
}

func TestStrictOverridesLenientOnly(t *testing.T) {
	o := config.Strict()
	assert.False(t, o.Lenient)
	assert.Equal(t, config.Default().MusicXML, o.MusicXML)
}

func TestLoadPartialOverride(t *testing.T) {
	o, err := config.Load([]byte("lenient: false\n"))
	require.NoError(t, err)
	assert.False(t, o.Lenient)
	assert.Equal(t, config.CanonicalMusicXMLVersion, o.MusicXML.Ceiling)
}

func TestMarshalRoundTrip(t *testing.T) {
	orig := config.Strict()
	data, err := orig.Marshal()
	require.NoError(t, err)
	back, err := config.Load(data)
	require.NoError(t, err)
	assert.Equal(t, orig, back)
}
