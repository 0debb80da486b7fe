package gtsample

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPloidyFileTabs(t *testing.T) {
	in := "# sample\tploidy\nHG00096\t1\nHG00097\t2\n\nHG00099\t1\n"

	got, err := ReadPloidyFile(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, map[string]Ploidy{
		"HG00096": Haploid,
		"HG00097": Diploid,
		"HG00099": Haploid,
	}, got)
}

func TestReadPloidyFileCommas(t *testing.T) {
	got, err := ReadPloidyFile(strings.NewReader("a,1\nb,2\nc,2\n"))
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, Haploid, got["a"])
}

func TestReadPloidyFileErrors(t *testing.T) {
	for name, in := range map[string]string{
		"bad ploidy":  "a\t3\n",
		"not integer": "a\tmale\n",
		"duplicate":   "a\t1\na\t2\n",
		"one column":  "a\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadPloidyFile(strings.NewReader(in))
			var cerr *ConfigError
			assert.True(t, errors.As(err, &cerr), "got %v", err)
		})
	}
}

func TestPloidyFileFeedsRegistry(t *testing.T) {
	overrides, err := ReadPloidyFile(strings.NewReader("m1\t1\nf1\t2\n"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.PloidyOverrides = overrides
	require.NoError(t, cfg.Validate())

	reg, err := cfg.Registry([]string{"f1", "m1", "f2"})
	require.NoError(t, err)
	assert.Equal(t, 1, reg.NHaploid())
	assert.Equal(t, 2, reg.NDiploid())
}
