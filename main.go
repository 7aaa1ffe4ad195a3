package main

import "mwrunner/cmd"

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	cmd.SetVersion(version)
	cmd.Execute()
}
