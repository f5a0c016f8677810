package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func createCliApp() *cli.App {
	app := &cli.App{
		Name:     AppName,
		Version:  AppVersion,
		Usage:    AppDesc,
		Flags:    serveFlags(),
		Action:   runServe,
		Commands: createCommands(),
	}
	return app
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.yaml",
		Usage:   "path to configuration file (YAML)",
	}
}

func serversFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "servers",
		Aliases: []string{"s"},
		Usage:   "path to the endpoint roster (JSON or YAML), overrides servers_file",
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		serversFlag(),
		&cli.StringFlag{
			Name:  "addr",
			Usage: "address for the web server, overrides listen_addr",
		},
		&cli.DurationFlag{
			Name:    "interval",
			Aliases: []string{"n"},
			Usage:   "polling interval (e.g. 5s, 1500ms), overrides interval_ms",
		},
	}
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "poll the roster and serve the latency API",
			Flags:  serveFlags(),
			Action: runServe,
		},
		{
			Name:  "probe",
			Usage: "run a single polling round and print the results",
			Flags: []cli.Flag{
				configFlag(),
				serversFlag(),
				&cli.DurationFlag{
					Name:    "timeout",
					Aliases: []string{"t"},
					Usage:   "per-probe timeout, overrides probe_timeout_ms",
				},
			},
			Action: runProbe,
		},
		{
			Name:  "version",
			Usage: "show version information",
			Action: func(c *cli.Context) error {
				fmt.Printf("%s v%s\n", AppName, AppVersion)
				fmt.Println(AppDesc)
				return nil
			},
		},
	}
}

// durationMs converts a flag duration to whole milliseconds.
func durationMs(d time.Duration) int {
	return int(d / time.Millisecond)
}
