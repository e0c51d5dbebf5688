package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// DefaultTimeout bounds each read in the TelnetClient convenience helpers.
const DefaultTimeout = 2 * time.Second

// TelnetClient is a line-oriented Telnet client for integration tests.
// Output accumulates across reads so Expect can match text that arrived
// before it was called.
type TelnetClient struct {
	conn    net.Conn
	t       *testing.T
	pending string
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{conn: conn, t: t}
}

// ReadUntil reads until substr appears, then returns everything read up to
// and including it with Telnet commands removed. Text after the match is
// kept for the next call.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the accumulated output containing substr, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	tmp := make([]byte, 1024)
	for {
		if i := strings.Index(c.pending, substr); i >= 0 {
			out := c.pending[:i+len(substr)]
			c.pending = c.pending[i+len(substr):]
			return out
		}
		n, err := c.conn.Read(tmp)
		if n > 0 {
			c.pending += string(stripTelnet(tmp[:n]))
		}
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, c.pending, err)
		}
	}
}

// Expect reads until substr appears within DefaultTimeout.
func (c *TelnetClient) Expect(substr string) string {
	c.t.Helper()
	return c.ReadUntil(substr, DefaultTimeout)
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \r\n is written to the connection.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := fmt.Fprintf(c.conn, "%s\r\n", text)
	if err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Command sends text and returns the output up to and including want.
func (c *TelnetClient) Command(text, want string) string {
	c.t.Helper()
	c.Send(text)
	return c.Expect(want)
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	c.conn.Close()
}

// stripTelnet drops the 3-byte option negotiations servers send on connect.
func stripTelnet(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == 0xFF && i+2 < len(b) && b[i+1] >= 0xFB {
			i += 2
			continue
		}
		out = append(out, b[i])
	}
	return out
}
