package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"stationflow/internal/action"
)

// MCPServerConfig names an MCP server to connect over stdio.
type MCPServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// ConnectMCPServer starts cfg's process, completes the MCP handshake,
// and merges every tool it advertises into r under its own name.
// Connections are not pooled or retried here: one process per
// configured server for the lifetime of the registry.
func ConnectMCPServer(ctx context.Context, r *Registry, cfg MCPServerConfig) (func() error, error) {
	var envSlice []string
	for k, v := range cfg.Env {
		envSlice = append(envSlice, fmt.Sprintf("%s=%s", k, v))
	}

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stdioTransport := transport.NewStdio(cfg.Command, envSlice, cfg.Args...)
	mcpClient := client.NewClient(stdioTransport)
	if err := mcpClient.Start(startCtx); err != nil {
		return nil, fmt.Errorf("start mcp server %q: %w", cfg.Name, err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{Name: "stationflow", Version: "1.0.0"}
	initRequest.Params.Capabilities = mcp.ClientCapabilities{}
	if _, err := mcpClient.Initialize(startCtx, initRequest); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("initialize mcp server %q: %w", cfg.Name, err)
	}

	toolsResult, err := mcpClient.ListTools(startCtx, mcp.ListToolsRequest{})
	if err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("list tools on mcp server %q: %w", cfg.Name, err)
	}

	specs := make(map[string]action.ToolSpec, len(toolsResult.Tools))
	for _, t := range toolsResult.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			schema = nil
		}
		specs[t.Name] = action.ToolSpec{Name: t.Name, Description: t.Description, InputSchema: schema}
	}

	r.Merge(specs, func(name string) Func {
		return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return callMCPTool(ctx, mcpClient, name, args)
		}
	})

	return mcpClient.Close, nil
}

func callMCPTool(ctx context.Context, mcpClient *client.Client, name string, args map[string]interface{}) (interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := mcpClient.CallTool(callCtx, req)
	if err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}
	if result.IsError {
		if len(result.Content) > 0 {
			if text, ok := mcp.AsTextContent(result.Content[0]); ok {
				return nil, fmt.Errorf("tool %q failed: %s", name, text.Text)
			}
		}
		return nil, fmt.Errorf("tool %q failed", name)
	}
	if len(result.Content) == 0 {
		return nil, nil
	}
	text, ok := mcp.AsTextContent(result.Content[0])
	if !ok {
		return result.Content[0], nil
	}
	var parsed interface{}
	if err := json.Unmarshal([]byte(text.Text), &parsed); err != nil {
		return text.Text, nil
	}
	return parsed, nil
}
