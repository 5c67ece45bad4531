// Package cmd provides list of commands for tools
package cmd

import (
	"github.com/relex/gotils/config"
)

func init() {
	config.AddParentCmdWithArgs("", "Streaming telemetry ingestion receiver", nil, nil, nil)
	config.AddCmdWithArgs("dump <path-to-files-or-dirs>...", "Dump captured Receiver State snapshots as JSON", &dumpCmd, dumpCmd.Run)
	config.AddCmdWithArgs("server", "Accept streaming connections from child nodes", &serverCmd, serverCmd.Run)
}

// Execute parses command-line and executes the root command
func Execute() {
	// trigger init

	config.Execute()
}
