package main

import (
	_ "bridge-keeper/cmd"
	"bridge-keeper/cmd/root"
	"bridge-keeper/internal/config"
	"bridge-keeper/internal/logger"
	"os"
)

func main() {
	// server mode mirrors logs to stdout in addition to the log file
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"

	logger.InitLoggerWithMode(&config.Config.Log, isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
