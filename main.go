package main

import (
	"github.com/relex/gotils/logger"

	"github.com/ndstream/receiver/cmd"
	"github.com/ndstream/receiver/util"
)

var version string

func main() {
	util.SeedRand() // seed rand properly for all rand.* calls

	logger.Infof("version: %s", version)

	cmd.Execute()

	logger.Exit(0)
}
