package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tchap/anonbattle/internal/app"
	"github.com/tchap/anonbattle/internal/logging"
)

type CLI struct {
	Inputs    []string      `kong:"name='input',short='i',required,type='path',help='Directory of battle logs to anonymize. Repeatable.'"`
	OutputDir string        `kong:"name='output',short='o',required,type='path',help='Directory to write anonymized battle logs into.'"`
	Format    string        `kong:"name='format',short='f',required,help='Format id to anonymize, e.g. gen8ou.'"`
	Strict    bool          `kong:"name='strict',help='Abort the run when a player identity survives anonymization.'"`
	BatchSize int           `kong:"name='batch-size',default='100',help='Number of battle logs read and written at once.'"`
	LogLevel  zapcore.Level `kong:"name='log-level',default='info',help='Log level.'"`
	LogFile   string        `kong:"name='log-file',type='path',help='Also write JSON logs into this file.'"`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("anonbattle"),
		kong.Description("Anonymize battle logs for publication."),
		kong.UsageOnError(),
	)
	if err := run(&cli); err != nil {
		os.Exit(1)
	}
}

func run(cli *CLI) error {
	// Init logging.
	logger, err := logging.New(cli.LogLevel, cli.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %+v", err)
		return err
	}
	defer logger.Sync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	anonymizer, err := app.NewDirectoryRun(app.DirectoryOptions{
		Inputs:    cli.Inputs,
		OutputDir: cli.OutputDir,
		Format:    cli.Format,
		Strict:    cli.Strict,
		BatchSize: cli.BatchSize,
	}, logger.Named("anonbattle"))
	if err != nil {
		logger.Error("Failed to start anonymization.", zap.Error(err))
		return err
	}

	go func() {
		if _, ok := <-sigCh; ok {
			logger.Info("Signal received, terminating...")
			anonymizer.Stop()
		}
	}()
	if err := anonymizer.Wait(); err != nil {
		logger.Error("Anonymization failed.", zap.Error(err))
		return err
	}

	stats := anonymizer.Stats()
	logger.Info(
		"Anonymization finished.",
		zap.String("output_dir", cli.OutputDir),
		zap.Uint64("battles", stats.Processed),
		zap.Uint64("leaks", stats.Leaks),
	)
	return nil
}
