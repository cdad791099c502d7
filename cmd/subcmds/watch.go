package subcmds

import (
	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/logger"

	"github.com/urfave/cli/v2"
)

func WatchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch task paths and re-run each task once changes settle",
		ArgsUsage: "[tasks...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "no-initial",
				Usage: "Don't run tasks before the first change",
			},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Run even when task inputs are unchanged",
			},
			&cli.DurationFlag{
				Name:  "stop-grace",
				Usage: "How long restart tasks get to exit after SIGTERM",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print what would be watched and executed without running",
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

			action := actions.NewWatchAction(deps, actions.WatchOptions{
				Force:     ctx.Bool("force"),
				NoInitial: ctx.Bool("no-initial"),
				StopGrace: ctx.Duration("stop-grace"),
			})

			if ctx.Bool("dry-run") {
				action.DryRun(tasks)
				return nil
			}

			result, err := action.Execute(ctx.Context, tasks)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			log.Info("watch stopped",
				logger.Int("tasks", len(tasks)),
				logger.Int("failing", len(result.Failed)),
				logger.Duration("duration", result.Duration))

			return nil
		},
	}
}
