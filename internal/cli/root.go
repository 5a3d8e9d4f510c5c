// Package cli — командная строка трекера на cobra.
// Каждая команда открывает приложение, выполняет одну операцию и закрывает его;
// serve держит приложение открытым до сигнала остановки.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"serotonyl.ru/pullups/internal/app"
	"serotonyl.ru/pullups/internal/config"
	"serotonyl.ru/pullups/internal/logging"
)

// Loader открывает приложение для команды. verbose — подробные логи.
type Loader func(ctx context.Context, verbose bool) (*app.App, io.Closer, error)

type cli struct {
	load    Loader
	app     *app.App
	closer  io.Closer
	verbose bool
	asJSON  bool
}

// NewRootCommand собирает дерево команд.
func NewRootCommand(load Loader) *cobra.Command {
	c := &cli{load: load}

	root := &cobra.Command{
		Use:           "pullups",
		Short:         "Трекер подтягиваний с монетами, сундуками и рангами",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !needsApp(cmd) {
				return nil
			}
			a, closer, err := c.load(cmd.Context(), c.verbose || cmd.Name() == "serve")
			if err != nil {
				return err
			}
			c.app, c.closer = a, closer
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "подробные логи")
	root.PersistentFlags().BoolVar(&c.asJSON, "json", false, "вывод в JSON")

	root.AddCommand(
		c.logCmd(),
		c.openCmd(),
		c.balanceCmd(),
		c.historyCmd(),
		c.rankCmd(),
		c.streakCmd(),
		c.recordsCmd(),
		c.milestonesCmd(),
		c.achievementsCmd(),
		c.walletCmd(),
		c.modifiersCmd(),
		c.oddsCmd(),
		c.exportCmd(),
		c.importCmd(),
		c.resetCmd(),
		c.serveCmd(),
	)

	// PostRun не вызывается при ошибке RunE, поэтому приложение закрываем здесь
	for _, sub := range root.Commands() {
		run := sub.RunE
		sub.RunE = func(cmd *cobra.Command, args []string) error {
			return multierr.Append(run(cmd, args), c.close())
		}
	}
	return root
}

// needsApp — встроенным командам cobra (help, completion) хранилище не нужно.
func needsApp(cmd *cobra.Command) bool {
	for ; cmd != nil; cmd = cmd.Parent() {
		switch cmd.Name() {
		case "help", "completion":
			return false
		}
	}
	return true
}

func (c *cli) close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.app, c.closer = nil, nil
	return err
}

// Execute запускает CLI с конфигурацией из окружения.
func Execute(ctx context.Context) error {
	root := NewRootCommand(LoadFromEnv)
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
	}
	return err
}

// LoadFromEnv читает конфигурацию, настраивает логи и открывает приложение.
// Логи CLI идут в stderr, чтобы не смешиваться с выводом команд.
func LoadFromEnv(ctx context.Context, verbose bool) (*app.App, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	level := cfg.AppLogLevel
	if !verbose {
		level = log.WarnLevel.String()
	}
	logFile := logging.Setup(logging.Params{
		Level:    level,
		FileName: cfg.AppLogFile,
		ToStdout: cfg.AppLogStdout,
		Console:  os.Stderr,
	})

	a, err := app.New(ctx, cfg)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, nil, err
	}
	return a, closers{a, logFile}, nil
}

// closers закрывает всё по порядку и собирает ошибки.
type closers []io.Closer

func (cs closers) Close() error {
	var err error
	for _, c := range cs {
		if c != nil {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// printJSON печатает v в JSON с отступами.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
