package handlers

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStdioConn_ReadAndWrite(t *testing.T) {
	var out bytes.Buffer
	conn := NewStdioConn(strings.NewReader("first\r\nsecond\n"), &out)

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "first", line)
	line, err = conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "second", line)
	_, err = conn.ReadLine()
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, conn.WritePrompt("> "))
	require.NoError(t, conn.WriteLine("hello"))
	assert.Equal(t, "> hello\n", out.String())
}

func TestStdioConn_ConsoleSession(t *testing.T) {
	f := newFixture(t, testNarrator)
	var out bytes.Buffer
	conn := NewStdioConn(strings.NewReader("Wanderer\nexits\nquit\n"), &out)

	require.NoError(t, f.handler.Serve(context.Background(), conn))
	assert.Contains(t, out.String(), "Exits: A alley")
	assert.Contains(t, out.String(), FarewellText)
}
