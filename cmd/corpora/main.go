package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Register dataset implementations.
	_ "github.com/crimson-sun/corpora/internal/datasets/amazonreviewpolarity"
	_ "github.com/crimson-sun/corpora/internal/datasets/imdb"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "corpora: %v\n", err)
		stop()
		os.Exit(1)
	}
}
