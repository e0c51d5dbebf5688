package handlers

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// StdioConn is a LineConn over a reader and a writer, used for the local
// console mode.
type StdioConn struct {
	scanner *bufio.Scanner
	mu      sync.Mutex
	out     io.Writer
}

// NewStdioConn reads lines from in and writes to out.
func NewStdioConn(in io.Reader, out io.Writer) *StdioConn {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 4096), 1<<16)
	return &StdioConn{scanner: scanner, out: out}
}

// ReadLine returns the next line without its terminator, or io.EOF.
func (c *StdioConn) ReadLine() (string, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return c.scanner.Text(), nil
}

// WriteLine writes text and a newline.
func (c *StdioConn) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, text)
	return err
}

// WritePrompt writes prompt with no newline.
func (c *StdioConn) WritePrompt(prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, prompt)
	return err
}
