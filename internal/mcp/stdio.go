package mcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"financemcp/internal/provider"
)

const maxLine = 4 << 20

// ServeStdio reads newline-delimited JSON-RPC messages from r and writes replies to w
// until r is exhausted or ctx is done. Credentials come from the process environment only.
// Cancelling ctx returns at once even while r is blocked; the reader goroutine then exits
// on its next line or when r is closed.
func (s *Server) ServeStdio(ctx context.Context, creds provider.Credentials, r io.Reader, w io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64<<10), maxLine)
		for sc.Scan() {
			line := bytes.TrimSpace(sc.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- bytes.Clone(line):
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				return nil
			}
			out := s.HandleMessage(ctx, creds, line)
			if out == nil {
				continue
			}
			if _, err := w.Write(out); err != nil {
				return fmt.Errorf("write reply: %w", err)
			}
		}
	}
}
