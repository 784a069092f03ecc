package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"

	"github.com/mentycs/docbrew/commands"
)

type CLI struct {
	Scrape commands.Scrape `cmd:"" help:"Crawl a documentation source into the store"`
	Search commands.Search `cmd:"" help:"Run a hybrid search against an indexed library"`
	Serve  commands.Serve  `cmd:"" help:"Keep a job pipeline resident against a store file"`

	LogLevel  slog.Level `default:"info" env:"DOCBREW_LOG_LEVEL"  help:"Set the log level (debug, info, warn, error)"`
	AddSource bool       `env:"DOCBREW_ADD_SOURCE"                help:"Add source code location to log messages"`
	LogFormat string     `default:"text" env:"DOCBREW_LOG_FORMAT" enum:"text,json" help:"Set the log format (text, json)"`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli)

	if cli.LogFormat == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level:     cli.LogLevel,
			AddSource: cli.AddSource,
		})))
	} else {
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:     cli.LogLevel,
			AddSource: cli.AddSource,
		})))
	}

	err := ctx.Run(slog.Default())
	ctx.FatalIfErrorf(err)
}
