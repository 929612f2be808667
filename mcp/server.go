package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/waymcp/waymcp/logging"
	"github.com/waymcp/waymcp/tools"
	"github.com/waymcp/waymcp/transport"
)

// Server exposes a tool registry over the Model Context Protocol. It owns
// stdout for the protocol; everything else logs to stderr.
type Server struct {
	name         string
	version      string
	instructions string
	registry     *tools.Registry
	logger       *logging.Logger

	initialized atomic.Bool
}

// NewServer creates an MCP server for the given registry.
func NewServer(name, version, instructions string, registry *tools.Registry, logger *logging.Logger) *Server {
	return &Server{
		name:         name,
		version:      version,
		instructions: instructions,
		registry:     registry,
		logger:       logger.WithComponent("mcp"),
	}
}

// Serve runs the protocol loop over the given streams until EOF or context
// cancellation. Pass os.Stdin and os.Stdout for a standard MCP stdio server.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.logger.ServerStart(s.name, s.version)
	defer s.logger.ServerStop("stream closed")
	return transport.NewServer(r, w, s).Serve(ctx)
}

// Handle dispatches one JSON-RPC method. Implements transport.Handler.
func (s *Server) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "initialize":
		return s.handleInitialize(params)

	case "notifications/initialized":
		s.initialized.Store(true)
		return nil, nil

	case "ping":
		return struct{}{}, nil

	case "tools/list":
		return s.handleToolsList()

	case "tools/call":
		return s.handleToolsCall(ctx, params)

	default:
		return nil, &transport.Error{
			Code:    transport.MethodNotFound,
			Message: fmt.Sprintf("method not found: %s", method),
		}
	}
}

func (s *Server) handleInitialize(params json.RawMessage) (interface{}, error) {
	var p InitializeParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, &transport.Error{Code: transport.InvalidParams, Message: "invalid initialize params", Data: err.Error()}
		}
	}
	s.logger.Info("client connected", map[string]interface{}{
		"client":           p.ClientInfo.Name,
		"client_version":   p.ClientInfo.Version,
		"protocol_version": p.ProtocolVersion,
	})

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    Capabilities{Tools: &ToolsCapability{}},
		ServerInfo:      PeerInfo{Name: s.name, Version: s.version},
		Instructions:    s.instructions,
	}, nil
}

func (s *Server) handleToolsList() (interface{}, error) {
	defs := s.registry.Definitions()
	list := make([]Tool, 0, len(defs))
	for _, d := range defs {
		list = append(list, Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Parameters,
		})
	}
	return ToolsListResult{Tools: list}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p ToolCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, &transport.Error{Code: transport.InvalidParams, Message: "invalid tools/call params", Data: err.Error()}
	}

	tool := s.registry.Get(p.Name)
	if tool == nil {
		return nil, &transport.Error{
			Code:    transport.InvalidParams,
			Message: fmt.Sprintf("unknown tool: %s", p.Name),
		}
	}

	traceID := uuid.NewString()[:8]
	logger := s.logger.WithTraceID(traceID)
	logger.Info("tool call", map[string]interface{}{"tool": p.Name})

	result, err := tool.Execute(ctx, p.Arguments)
	if err != nil {
		// Tool failures go back in-band so the calling model can react;
		// only protocol-level problems become JSON-RPC errors.
		logger.Warn("tool call failed", map[string]interface{}{
			"tool":  p.Name,
			"error": err.Error(),
		})
		return ToolCallResult{
			Content: TextContent(fmt.Sprintf("Error: %s", err.Error())),
			IsError: true,
		}, nil
	}

	text, err := renderResult(result)
	if err != nil {
		return nil, &transport.Error{Code: transport.InternalError, Message: "encoding tool result", Data: err.Error()}
	}
	return ToolCallResult{Content: TextContent(text)}, nil
}

// renderResult turns a tool's return value into text content. Strings pass
// through; anything else is JSON.
func renderResult(result interface{}) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
