package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wesleyorama2/shopload/internal/cli"
)

// Main runs the command line in args and returns the exit status.
// Interrupt and SIGTERM stop a running load; the summary is still printed.
func Main(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.RootCmd.SetArgs(args)
	if err := cli.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(Main(os.Args[1:]))
}
