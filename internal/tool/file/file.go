// Package file provides the workspace file tools: read_file, write_file,
// list_directory and search_content. Every path is confined to the workspace root of the call.
package file

import (
	"github.com/Cyclone1070/agentgate/internal/config"
	"github.com/Cyclone1070/agentgate/internal/tool"
)

// Tools returns all file tools configured from cfg.
func Tools(cfg *config.Config) []tool.Tool {
	return []tool.Tool{
		NewReadFile(cfg),
		NewWriteFile(cfg),
		NewListDirectory(cfg),
		NewSearchContent(cfg),
	}
}
