package mcpserver

import (
	"encoding/json"
	"strings"
)

const manifestSchema = "https://static.modelcontextprotocol.io/schemas/2025-10-17/server.schema.json"

// Manifest is the registry entry printed by `pqinspect mcp manifest`.
type Manifest struct {
	Schema      string   `json:"$schema"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Tools       []string `json:"tools"`
}

// GenerateManifest renders the manifest for version. The description and
// tool list come from the registered tools.
func GenerateManifest(version string) ([]byte, error) {
	if version == "" {
		version = "0.0.0"
	}
	return json.MarshalIndent(Manifest{
		Schema:      manifestSchema,
		Name:        "io.github.panbanda/pqinspect",
		Description: "Power Query M inspection over stdio: " + strings.Join(toolNames, ", "),
		Version:     version,
		Tools:       append([]string(nil), toolNames...),
	}, "", "  ")
}
