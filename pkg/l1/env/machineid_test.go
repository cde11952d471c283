package env

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortID(t *testing.T) {
	require.Equal(t, "0123456789ab", ShortID(" 0123456789ABCDEF\n"))
	require.Equal(t, "abc", ShortID("ABC"))
}

func TestLabelsFlag(t *testing.T) {
	labels := Labels{}
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(labels, "label", "")
	require.NoError(t, fs.Parse([]string{"-label", "flight=lower, side=east", "-label", "level="}))
	require.Equal(t, Labels{"flight": "lower", "side": "east", "level": ""}, labels)
	require.Equal(t, "flight=lower,level=,side=east", labels.String())

	require.Error(t, labels.Set("flight"))
	require.Error(t, labels.Set("=lower"))
}

func TestParseLabels(t *testing.T) {
	labels, err := ParseLabels()
	require.NoError(t, err)
	require.Nil(t, labels)

	labels, err = ParseLabels("flight=lower", "side=")
	require.NoError(t, err)
	require.Equal(t, Labels{"flight": "lower", "side": ""}, labels)

	_, err = ParseLabels("flight")
	require.Error(t, err)
}
