// Package main — точка входа трекера.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"serotonyl.ru/pullups/internal/cli"
)

func main() {
	// Контекст отменяется сигналом (Ctrl+C, docker stop) — serve завершится штатно
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
