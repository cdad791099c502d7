package subcmds

import (
	"os"

	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/stores/runs"

	"github.com/urfave/cli/v2"
)

func StatusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the last run of each task",
		ArgsUsage: "[tasks...]",
		Action: func(ctx *cli.Context) error {
			log := newLogger(ctx)

			cfg, err := config.Load(ctx.String("config"))
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			tasks, err := cfg.Tasks().Select(ctx.Args().Slice())
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			store := runs.NewStore(cfg.RunsPath(), log)
			if err = actions.NewStatusAction(store, cfg.Tasks()).Execute(os.Stdout, tasks); err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			return nil
		},
	}
}
