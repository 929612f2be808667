// Package transport provides a JSON-RPC 2.0 server over newline-delimited
// streams, the framing MCP uses on stdio.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
)

// Request represents a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents a JSON-RPC 2.0 error.
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// Standard error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Notification represents a JSON-RPC 2.0 notification (no ID).
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Handler handles JSON-RPC requests. Returning a *Error sends that exact
// code to the client; any other error becomes an internal error response.
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error)
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (interface{}, error)

func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	return f(ctx, method, params)
}

// Server is a JSON-RPC 2.0 server over newline-delimited JSON.
type Server struct {
	reader  *bufio.Reader
	writer  io.Writer
	handler Handler
	mu      sync.Mutex
}

// NewServer creates a new JSON-RPC server.
func NewServer(r io.Reader, w io.Writer, handler Handler) *Server {
	return &Server{
		reader:  bufio.NewReader(r),
		writer:  w,
		handler: handler,
	}
}

// Serve reads and handles requests until EOF or error. Notifications
// (requests without an ID) get no response, per JSON-RPC 2.0.
func (s *Server) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(nil, &Error{Code: ParseError, Message: "Parse error", Data: err.Error()})
			continue
		}

		if req.JSONRPC != "2.0" {
			s.sendError(req.ID, &Error{Code: InvalidRequest, Message: "Invalid Request", Data: "jsonrpc must be 2.0"})
			continue
		}

		result, err := s.handler.Handle(ctx, req.Method, req.Params)

		if req.ID == nil {
			continue // notification: no response either way
		}

		if err != nil {
			var rpcErr *Error
			if stderrors.As(err, &rpcErr) {
				s.sendError(req.ID, rpcErr)
			} else {
				s.sendError(req.ID, &Error{Code: InternalError, Message: "Internal error", Data: err.Error()})
			}
			continue
		}

		s.sendResult(req.ID, result)
	}
}

// Notify sends a notification to the client.
func (s *Server) Notify(method string, params interface{}) error {
	return s.send(Notification{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	})
}

// sendResult sends a successful response.
func (s *Server) sendResult(id interface{}, result interface{}) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	})
}

// sendError sends an error response.
func (s *Server) sendError(id interface{}, rpcErr *Error) {
	s.send(Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   rpcErr,
	})
}

// send writes a JSON message followed by a newline.
func (s *Server) send(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = s.writer.Write(append(data, '\n'))
	return err
}
