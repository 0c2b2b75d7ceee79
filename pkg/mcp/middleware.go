package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gandtscales/scalesite/pkg/mcplog"
)

// loggingMiddleware records every tool call in the JSONL call log.
// NewServer only installs it when a logger is configured.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := mcplog.Now()
			result, err := next(ctx, req)
			elapsed := time.Since(start)

			entry := mcplog.NewEntry(req.Params.Name, req.GetArguments(), start, elapsed, result, countResults(result), err)
			_ = s.logger.Write(entry)

			return result, err
		}
	}
}

// countResults reports how many catalog records a result carries: the
// length of a JSON array, of an "items" or "products" array, or 1 for any
// other object.
func countResults(result *mcp.CallToolResult) int {
	if result == nil || result.IsError || len(result.Content) == 0 {
		return 0
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return 0
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(text.Text), &list); err == nil {
		return len(list)
	}

	var obj struct {
		Items    []json.RawMessage `json:"items"`
		Products []json.RawMessage `json:"products"`
	}
	if err := json.Unmarshal([]byte(text.Text), &obj); err != nil {
		return 0
	}
	switch {
	case obj.Items != nil:
		return len(obj.Items)
	case obj.Products != nil:
		return len(obj.Products)
	}
	return 1
}
