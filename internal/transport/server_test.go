package transport

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
)

// lineServer is a scripted line-based mail server: greeting is written on
// accept, then every client line is passed to handle, which returns the
// reply lines. A nil reply closes the connection.
type lineServer struct {
	ln    net.Listener
	mu    sync.Mutex
	lines []string
}

func newLineServer(t *testing.T, greeting string, handle func(line string) []string) *lineServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &lineServer{ln: ln}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, greeting, handle)
		}
	}()
	return s
}

func (s *lineServer) serve(conn net.Conn, greeting string, handle func(string) []string) {
	defer conn.Close()
	w := bufio.NewWriter(conn)
	w.WriteString(greeting + "\r\n")
	w.Flush()

	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		s.mu.Lock()
		s.lines = append(s.lines, line)
		s.mu.Unlock()

		reply := handle(line)
		if reply == nil {
			return
		}
		for _, l := range reply {
			w.WriteString(l + "\r\n")
		}
		w.Flush()
	}
}

func (s *lineServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *lineServer) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}
