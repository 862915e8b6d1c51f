package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

const appName = "verclient"

func main() {
	app := &cli.App{
		Name:  appName,
		Usage: "Room session client for the game server",
		Commands: []*cli.Command{
			runCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Connect, join the room and run the game scene session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"VERCLIENT_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "url",
				Aliases: []string{"s"},
				Usage:   "Server websocket URL (overrides config)",
			},
			&cli.StringFlag{
				Name:    "user",
				Aliases: []string{"u"},
				Usage:   "Login name (overrides config)",
			},
			&cli.StringFlag{
				Name:  "room",
				Usage: "Room to join (overrides config)",
			},
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Enable the terminal UI with chat input",
			},
			&cli.IntFlag{
				Name:  "max-log-lines",
				Value: 500,
				Usage: "Lines kept in the terminal UI",
			},
		},
		Action: run,
	}
}
