package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseID_DefaultsToOne(t *testing.T) {
	id, err := parseID(nil)
	require.NoError(t, err)
	require.Equal(t, 1, id)
}

func TestParseID_UsesGivenArgument(t *testing.T) {
	id, err := parseID([]string{"7"})
	require.NoError(t, err)
	require.Equal(t, 7, id)
}

func TestParseID_RejectsNonNumeric(t *testing.T) {
	_, err := parseID([]string{"not-a-number"})
	require.Error(t, err)
}
