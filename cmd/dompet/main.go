package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/mattn/go-isatty"

	"dompet/internal/backend"
	"dompet/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	var plain bool
	flag.BoolVar(&plain, "plain", false, "print raw markdown instead of styled output")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	env := &cli.Env{}
	for _, c := range cli.Commands(env) {
		commander.Register(c, "")
	}

	flag.Parse()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel)

	env.Config = cfg
	env.Logger = logger
	env.Out = cli.NewPrinter(os.Stdout, os.Stderr, !plain && isatty.IsTerminal(os.Stdout.Fd()))
	env.Open = func(ctx context.Context) (*backend.App, error) {
		return cli.OpenApp(ctx, cfg, logger)
	}

	status := commander.Execute(context.Background())
	_ = env.Close()
	os.Exit(int(status))
}
