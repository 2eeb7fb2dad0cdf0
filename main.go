package main

import (
	"github.com/twoseats/twoseats/cmd"
	"github.com/twoseats/twoseats/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cmd.Execute()
}
