package cmd

import (
	"github.com/relex/gotils/logger"

	"github.com/ndstream/receiver/dump"
)

type dumpCmdState struct {
	IgnoreError bool `help:"Ignore errors"`
}

var dumpCmd = dumpCmdState{}

func (cmd *dumpCmdState) Run(args []string) {
	if len(args) < 1 {
		logger.Fatal("requires at least one file or directory")
	}
	err := dump.PrintFileOrDirectories(args, cmd.IgnoreError)
	if err != nil {
		logger.Fatal(err)
	}
}
