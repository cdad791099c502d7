package cmd

import (
	"runtime"

	"github.com/vcnkl/settle/cmd/subcmds"

	"github.com/urfave/cli/v2"
)

func NewApp() *cli.App {
	return &cli.App{
		Name:    "settle",
		Usage:   "Re-run tasks once file changes settle",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
				EnvVars: []string{"SETTLE_DEBUG"},
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to settle.yml (default: current directory, then git root)",
				EnvVars: []string{"SETTLE_CONFIG"},
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   runtime.NumCPU(),
				Usage:   "Max parallel jobs",
			},
		},
		Commands: []*cli.Command{
			subcmds.InitCmd(),
			subcmds.WatchCmd(),
			subcmds.RunCmd(),
			subcmds.StatusCmd(),
		},
	}
}
