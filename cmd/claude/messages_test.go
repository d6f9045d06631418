package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFirstLine(t *testing.T) {
	t.Run("single line", func(t *testing.T) {
		require.Equal(t, "line", firstLine("line"))
	})
	t.Run("single line ending with \n", func(t *testing.T) {
		require.Equal(t, "line", firstLine("line\n"))
	})
	t.Run("multiple lines", func(t *testing.T) {
		require.Equal(t, "line", firstLine("line\nsomething else\nline3\nfoo\nends with a double \n\n"))
	})
}

func TestShortID(t *testing.T) {
	require.Equal(t, "df31ae23", shortID("df31ae23-ab8b-75b5-643c-2f846c570997"))
	require.Equal(t, "abc", shortID("abc"))
}
