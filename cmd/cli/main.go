package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/himanishpuri/ChromaDNA/internal/cli"
	"github.com/himanishpuri/ChromaDNA/pkg/chromadna/video/opencv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx, opencv.Open); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
