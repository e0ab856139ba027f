package cmdutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name      string        `env:"CMDUTIL_TEST_NAME,required"`
	Workers   int           `env:"CMDUTIL_TEST_WORKERS,default=4"`
	Chunk     ByteSize      `env:"CMDUTIL_TEST_CHUNK,default=10MiB"`
	Timeout   time.Duration `env:"CMDUTIL_TEST_TIMEOUT,default=1m"`
	Verbose   bool          `env:"CMDUTIL_TEST_VERBOSE"`
	Untouched string
	Nested    struct {
		Ratio float64 `env:"CMDUTIL_TEST_RATIO,default=0.5"`
	}
}

func TestPopulate(t *testing.T) {
	t.Setenv("CMDUTIL_TEST_WORKERS", "8")
	var c testConfig
	require.NoError(t, Populate(&c, MapDecoder{"CMDUTIL_TEST_NAME": "galaxy", "CMDUTIL_TEST_WORKERS": "2"}))
	require.Equal(t, "galaxy", c.Name)
	require.Equal(t, 8, c.Workers, "environment takes precedence over decoders")
	require.Equal(t, ByteSize(10<<20), c.Chunk)
	require.Equal(t, time.Minute, c.Timeout)
	require.False(t, c.Verbose)
	require.Equal(t, 0.5, c.Nested.Ratio)
}

func TestPopulateErrors(t *testing.T) {
	var c testConfig
	err := Populate(&c)
	require.ErrorContains(t, err, envKeyNotSetWhenRequiredErr)

	err = Populate(c, MapDecoder{"CMDUTIL_TEST_NAME": "x"})
	require.ErrorContains(t, err, expectedPointerErr)

	err = Populate(&c, MapDecoder{"CMDUTIL_TEST_NAME": "x", "CMDUTIL_TEST_WORKERS": "many"})
	require.ErrorContains(t, err, cannotParseErr)

	err = Populate(&c, MapDecoder{"CMDUTIL_TEST_NAME": "x", "CMDUTIL_TEST_CHUNK": "lots"})
	require.ErrorContains(t, err, "CMDUTIL_TEST_CHUNK")
}
