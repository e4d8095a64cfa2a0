// Command downforge is a CLI front end to the download engine: enough
// to create, start, pause, resume, cancel and inspect downloads from a
// terminal without a host UI.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"downforge/internal/app"
	"downforge/internal/config"
	"downforge/internal/engine"
	"downforge/internal/logger"
)

func main() {
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	paths, err := app.GetPaths()
	if err != nil {
		fmt.Fprintf(os.Stderr, "downforge: %v\n", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "downforge: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(paths.AppData); err != nil {
		fmt.Fprintf(os.Stderr, "downforge: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(paths.AppData)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("downforge: failed to load config, using defaults")
		cfg = config.Default()
	}

	e, err := engine.NewWithConfig(paths.AppData, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "downforge: %v\n", err)
		os.Exit(1)
	}
	defer e.Close()

	if err := dispatch(e, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "downforge: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: downforge <command> [arguments]

Commands:
  list                    print every known download
  get <path>              print the download at path
  create <path> <url>     register a new download
  start <path>            begin an idle download
  pause <path>            pause an in-progress download
  resume <path>           resume a paused download
  cancel <path>           cancel and discard a download
  watch                   print download events until interrupted`)
}

func dispatch(e *engine.Engine, cmd string, args []string) error {
	switch cmd {
	case "list":
		return printJSON(e.List())
	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: downforge get <path>")
		}
		return printJSON(e.Get(args[0]))
	case "create":
		if len(args) != 2 {
			return fmt.Errorf("usage: downforge create <path> <url>")
		}
		resp, err := e.Create(args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(resp)
	case "start":
		return runAction(e.Start, args)
	case "pause":
		return runAction(e.Pause, args)
	case "resume":
		return runAction(e.Resume, args)
	case "cancel":
		return runAction(e.Cancel, args)
	case "watch":
		return watch(e)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runAction(action func(string) (engine.ActionResponse, error), args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}
	resp, err := action(args[0])
	if err != nil {
		return err
	}
	return printJSON(resp)
}

// watch prints every Record-changed event to stdout until the process
// receives an interrupt signal.
func watch(e *engine.Engine) error {
	sub := e.Subscribe()
	defer sub.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-sig:
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			printJSON(ev.Record)
		}
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(v)
}
