// Package api embeds the MCP tool contract for the steve-mcp service.
package api

import _ "embed"

// ToolsContract contains the raw MCP tool contract YAML.
//
//go:embed tools.yaml
var ToolsContract []byte
