package subcmds

import (
	"github.com/urfave/cli/v2"

	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/metrics"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/notify"
	"github.com/vcnkl/settle/stores/runs"
)

func newLogger(ctx *cli.Context) logger.Logger {
	level := logger.InfoLevel
	if ctx.Bool("debug") {
		level = logger.DebugLevel
	}
	return logger.New(level)
}

// setup loads the config, the run history and the selected tasks. The
// caller closes the returned store.
func setup(ctx *cli.Context, log logger.Logger) (actions.Deps, models.Tasks, error) {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return actions.Deps{}, nil, cli.Exit("error: "+err.Error(), 1)
	}

	tasks, err := cfg.Tasks().Select(ctx.Args().Slice())
	if err != nil {
		return actions.Deps{}, nil, cli.Exit("error: "+err.Error(), 1)
	}

	store := runs.NewStore(cfg.RunsPath(), log)
	if err = store.Load(); err != nil {
		log.Warn("ignoring unreadable run history", logger.Err(err))
	}

	notifier, err := notify.New(cfg.Settings().Notify)
	if err != nil {
		store.Close()
		return actions.Deps{}, nil, cli.Exit("error: "+err.Error(), 1)
	}

	return actions.Deps{
		Config:   cfg,
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics.New(),
		Log:      log,
	}, tasks, nil
}
