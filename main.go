package main

import (
	"os"

	"powconsensus/cmd"
	"powconsensus/logger"
)

func main() {
	defer logger.Close()

	if err := cmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
