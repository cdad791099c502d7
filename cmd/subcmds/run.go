package subcmds

import (
	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/logger"

	"github.com/urfave/cli/v2"
)

func RunCmd() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run tasks once",
		ArgsUsage: "[tasks...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Run even when task inputs are unchanged",
			},
			&cli.BoolFlag{
				Name:  "changed",
				Usage: "Only run tasks whose paths contain uncommitted git changes",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print what would be executed without running",
			},
		},
		Action: func(ctx *cli.Context) error {
			log := newLogger(ctx)

			deps, tasks, err := setup(ctx, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := deps.Store.Close(); err != nil {
					log.Warn("failed to save run history", logger.Err(err))
				}
			}()

			action := actions.NewRunAction(deps, actions.RunOptions{
				Jobs:    ctx.Int("jobs"),
				Force:   ctx.Bool("force"),
				Changed: ctx.Bool("changed"),
			})

			if ctx.Bool("dry-run") {
				action.DryRun(tasks)
				return nil
			}

			result, err := action.Execute(ctx.Context, tasks)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			log.Info("run completed",
				logger.Int("executed", len(result.Executed)),
				logger.Int("skipped", len(result.Skipped)),
				logger.Int("failed", len(result.Failed)),
				logger.Duration("duration", result.Duration))

			if len(result.Failed) > 0 {
				return cli.Exit("run failed", 1)
			}

			return nil
		},
	}
}
