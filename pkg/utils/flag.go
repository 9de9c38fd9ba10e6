package utils

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
)

// SetTestFlag sets the flag `name` to `value` and restores its previous value once the test is done.
func SetTestFlag(t *testing.T, name, value string) {
	t.Helper()
	flagHolder := flag.Lookup(name)
	require.NotNilf(t, flagHolder, "Flag %s not found", name)
	prevValue := flagHolder.Value.String()
	t.Cleanup(func() { require.NoError(t, flag.Set(name, prevValue)) })
	require.NoErrorf(t, flag.Set(name, value), "Failed to set flag %s", name)
}

// SetTestFlags is SetTestFlag over several flags at once.
func SetTestFlags(t *testing.T, values map[ /*flagName*/ string] /*flagValue*/ string) {
	t.Helper()
	for name, value := range values {
		SetTestFlag(t, name, value)
	}
}
