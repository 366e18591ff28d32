package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-tab-session/internal/config"
	"github.com/jrsteele09/go-tab-session/internal/utils"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Error().Err(err).Msg("sessionctl failed")
		os.Exit(1)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	fs := flag.NewFlagSet("sessionctl", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("TABSESSION_CONFIG"), "optional YAML config file")
	tabID := fs.String("tab", os.Getenv("TABSESSION_TAB"), "tab identity to act as; empty starts a new tab")
	quiet := fs.Bool("quiet", false, "do not print the banner")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("no command given")
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", rest[0])
	}

	c, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	setupLogging(c.GetLogLevel())
	if !*quiet {
		displayAppname(c.GetAppName())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c, *tabID)
	if err != nil {
		return err
	}
	defer a.Close()

	return cmd.run(ctx, a, rest[1:])
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "usage: sessionctl [flags] <command> [command flags]\n\ncommands:\n")
	for _, name := range utils.SortedKeys(commands) {
		fmt.Fprintf(out, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(out, "\nflags:\n")
	fs.PrintDefaults()
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
