package main

import (
	"github.com/tubemap/backend/internal/server"
	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/logger"
	"github.com/tubemap/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
