package subcmds

import (
	"os"

	"github.com/vcnkl/settle/actions"

	"github.com/urfave/cli/v2"
)

func InitCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a starter settle.yml",
		ArgsUsage: "[dir]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Overwrite an existing config",
			},
		},
		Action: func(ctx *cli.Context) error {
			log := newLogger(ctx)

			dir := ctx.Args().First()
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					return cli.Exit("error: "+err.Error(), 1)
				}
				dir = wd
			}

			if _, err := actions.NewInitAction(dir, log, ctx.Bool("force")).Execute(); err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			return nil
		},
	}
}
