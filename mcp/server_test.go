package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/waymcp/waymcp/logging"
	"github.com/waymcp/waymcp/tools"
	"github.com/waymcp/waymcp/transport"
)

// echoTool returns its "msg" argument, or fails when "fail" is set.
type echoTool struct{}

func (echoTool) Name() string        { return "echo" }
func (echoTool) Description() string { return "Echoes the msg argument." }
func (echoTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"msg": map[string]interface{}{"type": "string"},
		},
		"required": []string{"msg"},
	}
}
func (echoTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if args["fail"] == true {
		return nil, fmt.Errorf("echo exploded")
	}
	return args["msg"], nil
}

func newTestServer() *Server {
	logger := logging.New()
	logger.SetLevel(logging.LevelError)
	reg := tools.NewRegistry()
	reg.Register(echoTool{})
	return NewServer("webarchive", "1.0.0", "Test instructions.", reg, logger)
}

// roundTrip runs newline-delimited requests through Serve and returns the
// response lines.
func roundTrip(t *testing.T, s *Server, requests ...string) []string {
	t.Helper()
	input := strings.Join(requests, "\n") + "\n"
	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("serve failed: %v", err)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func TestServer_Initialize(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test-client","version":"0.1"}}}`)

	if len(lines) != 1 {
		t.Fatalf("expected 1 response, got %d", len(lines))
	}

	var resp struct {
		Result InitializeResult `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if resp.Result.ProtocolVersion != ProtocolVersion {
		t.Errorf("unexpected protocol version: %s", resp.Result.ProtocolVersion)
	}
	if resp.Result.ServerInfo.Name != "webarchive" {
		t.Errorf("unexpected server name: %s", resp.Result.ServerInfo.Name)
	}
	if resp.Result.Capabilities.Tools == nil {
		t.Error("tools capability should be advertised")
	}
	if resp.Result.Instructions != "Test instructions." {
		t.Errorf("unexpected instructions: %s", resp.Result.Instructions)
	}
}

func TestServer_InitializedNotificationSilent(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if len(lines) != 0 {
		t.Errorf("notifications get no response, got %v", lines)
	}
}

func TestServer_Ping(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":7,"method":"ping"}`)

	var resp struct {
		ID     interface{}            `json:"id"`
		Result map[string]interface{} `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ID != float64(7) {
		t.Errorf("unexpected id: %v", resp.ID)
	}
	if resp.Result == nil {
		t.Error("ping should return an empty object, not null")
	}
}

func TestServer_ToolsList(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)

	var resp struct {
		Result ToolsListResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Result.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(resp.Result.Tools))
	}
	tool := resp.Result.Tools[0]
	if tool.Name != "echo" || tool.Description == "" {
		t.Errorf("unexpected tool: %+v", tool)
	}
	if tool.InputSchema["type"] != "object" {
		t.Errorf("input schema should be the tool's parameters: %v", tool.InputSchema)
	}
}

func TestServer_ToolsCall(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"echo","arguments":{"msg":"hello"}}}`)

	var resp struct {
		Result ToolCallResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Result.IsError {
		t.Error("unexpected isError")
	}
	if len(resp.Result.Content) != 1 || resp.Result.Content[0].Text != "hello" {
		t.Errorf("unexpected content: %+v", resp.Result.Content)
	}
	if resp.Result.Content[0].Type != "text" {
		t.Errorf("expected text content, got %s", resp.Result.Content[0].Type)
	}
}

func TestServer_ToolsCall_ErrorInBand(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"echo","arguments":{"fail":true}}}`)

	var resp struct {
		Result ToolCallResult   `json:"result"`
		Error  *transport.Error `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error != nil {
		t.Fatalf("tool failures are in-band, not JSON-RPC errors: %v", resp.Error)
	}
	if !resp.Result.IsError {
		t.Error("expected isError=true")
	}
	if !strings.Contains(resp.Result.Content[0].Text, "echo exploded") {
		t.Errorf("error text should reach the client, got %s", resp.Result.Content[0].Text)
	}
}

func TestServer_ToolsCall_UnknownTool(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"nope"}}`)

	var resp struct {
		Error *transport.Error `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != transport.InvalidParams {
		t.Errorf("unknown tool should be InvalidParams, got %v", resp.Error)
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	lines := roundTrip(t, newTestServer(),
		`{"jsonrpc":"2.0","id":6,"method":"resources/list"}`)

	var resp struct {
		Error *transport.Error `json:"error"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != transport.MethodNotFound {
		t.Errorf("expected MethodNotFound, got %v", resp.Error)
	}
}

func TestRenderResult(t *testing.T) {
	if got, _ := renderResult("plain"); got != "plain" {
		t.Errorf("strings pass through, got %q", got)
	}
	if got, _ := renderResult(nil); got != "" {
		t.Errorf("nil renders empty, got %q", got)
	}
	got, err := renderResult(map[string]int{"a": 1})
	if err != nil || got != `{"a":1}` {
		t.Errorf("non-strings render as JSON, got %q, %v", got, err)
	}
}
