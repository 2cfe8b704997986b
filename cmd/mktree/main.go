package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tyemirov/mktree/internal/app"
	"github.com/tyemirov/mktree/internal/cli"
	"github.com/tyemirov/mktree/internal/utils"
)

const checkFailedExitCode = 1

// main is the entry point for the mktree command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(false)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applicationExecutionError := cli.Execute(ctx, loggerInstance)
	if applicationExecutionError == nil {
		return
	}
	if errors.Is(applicationExecutionError, app.ErrCheckFailed) {
		stop()
		_ = loggerInstance.Sync()
		os.Exit(checkFailedExitCode)
	}
	loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
}
