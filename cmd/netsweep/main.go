package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/projectdiscovery/gologger"

	"github.com/marcuoli/go-netsweep/internal/runner"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/report"
)

func main() {
	options := runner.ParseOptions()

	netsweepRunner, err := runner.New(options)
	if err != nil {
		_ = report.WriteError(os.Stdout, err.Error())
		gologger.Error().Msgf("Could not create runner: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = netsweepRunner.Run(ctx)
	stop()
	if err != nil {
		gologger.Error().Msgf("Could not run sweep: %s\n", err)
		os.Exit(1)
	}
}
