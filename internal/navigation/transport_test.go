package navigation

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeMessage(&buf, notification{JSONRPC: "2.0", Method: "exit"}))
	require.NoError(t, writeMessage(&buf, request{JSONRPC: "2.0", ID: 7, Method: "shutdown"}))

	assert.True(t, strings.HasPrefix(buf.String(), "Content-Length: "))

	r := bufio.NewReader(&buf)
	first, err := readMessage(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"exit"}`, string(first))

	second, err := readMessage(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"method":"shutdown"}`, string(second))
}

func TestReadMessageHeaders(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"extra header", "Content-Type: application/vscode-jsonrpc\r\ncontent-length: 2\r\n\r\n{}", "{}", false},
		{"missing length", "Content-Type: x\r\n\r\n{}", "", true},
		{"bad length", "Content-Length: abc\r\n\r\n{}", "", true},
		{"short body", "Content-Length: 10\r\n\r\n{}", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := readMessage(bufio.NewReader(strings.NewReader(tt.input)))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(body))
		})
	}
}
