package navigation

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"testing"
)

// pipeConn is one end of an in-process connection
type pipeConn struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeConn) Close() error {
	_ = p.w.Close()
	return p.r.Close()
}

type handler func(params json.RawMessage) (any, *RPCError)

// fakeServer answers framed JSON-RPC requests from a handler table
type fakeServer struct {
	t        *testing.T
	handlers map[string]handler

	mu      sync.Mutex
	calls   map[string]int
	methods []string
}

func newFakeServer(t *testing.T, handlers map[string]handler) (*fakeServer, io.ReadWriteCloser) {
	t.Helper()
	c2sR, c2sW := io.Pipe()
	s2cR, s2cW := io.Pipe()

	s := &fakeServer{t: t, handlers: handlers, calls: make(map[string]int)}
	if _, ok := s.handlers["initialize"]; !ok {
		s.handlers["initialize"] = func(json.RawMessage) (any, *RPCError) {
			return map[string]any{"capabilities": map[string]any{}}, nil
		}
	}
	if _, ok := s.handlers["shutdown"]; !ok {
		s.handlers["shutdown"] = func(json.RawMessage) (any, *RPCError) { return nil, nil }
	}

	go s.serve(c2sR, s2cW)
	t.Cleanup(func() {
		_ = c2sR.Close()
		_ = s2cW.Close()
	})
	return s, &pipeConn{r: s2cR, w: c2sW}
}

func (s *fakeServer) serve(in *io.PipeReader, out *io.PipeWriter) {
	r := bufio.NewReader(in)
	for {
		body, err := readMessage(r)
		if err != nil {
			return
		}
		var msg message
		if err := json.Unmarshal(body, &msg); err != nil {
			continue
		}

		s.mu.Lock()
		s.calls[msg.Method]++
		s.methods = append(s.methods, msg.Method)
		s.mu.Unlock()

		if len(msg.ID) == 0 {
			continue
		}

		reply := map[string]any{"jsonrpc": "2.0", "id": msg.ID}
		if h, ok := s.handlers[msg.Method]; ok {
			result, rpcErr := h(msg.Params)
			if rpcErr != nil {
				reply["error"] = rpcErr
			} else {
				reply["result"] = result
			}
		} else {
			reply["error"] = &RPCError{Code: CodeMethodNotFound, Message: "method not found: " + msg.Method}
		}
		if err := writeMessage(out, reply); err != nil {
			return
		}
	}
}

func (s *fakeServer) count(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}
