package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/exec"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/metrics"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/notify"
	"github.com/vcnkl/settle/stores/runs"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusSkipped = "skipped"
)

// Deps bundles the collaborators shared by the run and watch actions.
// Notifier and Metrics may be nil.
type Deps struct {
	Config   *config.Config
	Store    *runs.Store
	Notifier notify.Notifier
	Metrics  *metrics.Metrics
	Log      logger.Logger
}

type runner struct {
	config    *config.Config
	store     *runs.Store
	validator *runs.Validator
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	log       logger.Logger
	force     bool
}

func newRunner(deps Deps, force bool) *runner {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewDummyNotifier()
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	return &runner{
		config:    deps.Config,
		store:     deps.Store,
		validator: runs.NewValidator(deps.Config.Root(), deps.Store),
		notifier:  notifier,
		metrics:   deps.Metrics,
		log:       log,
		force:     force,
	}
}

func (r *runner) shellOptions(task *models.Task, env []string, log logger.Logger) exec.ShellOptions {
	return exec.ShellOptions{
		WorkDir: exec.ResolveWorkDir(r.config.Root(), task),
		Env:     env,
		Shell:   r.config.Settings().Shell,
		Stdout:  log.Writer(),
		Stderr:  log.Writer(),
	}
}

// check reports whether task must run and the input hash to record.
func (r *runner) check(task *models.Task, log logger.Logger) (bool, string) {
	shouldRun, inputHash, err := r.validator.ShouldRun(task)
	if err != nil {
		log.Warn("input check failed", logger.Err(err))
		shouldRun = true
	}

	log.Debug("input check complete",
		logger.String("input_hash", inputHash),
		logger.Bool("should_run", shouldRun),
		logger.Bool("force", r.force))

	return shouldRun || r.force, inputHash
}

// run executes task once. It returns skipped=true when the inputs match the
// last successful run.
func (r *runner) run(ctx context.Context, task *models.Task, changed []string) (skipped bool, err error) {
	log := r.log.WithPrefix(task.Name)

	shouldRun, inputHash := r.check(task, log)
	if !shouldRun {
		log.Info("skipped (inputs unchanged)")
		r.observe(task.Name, statusSkipped, 0)
		return true, nil
	}

	log.Info("running...", logger.Int("changed", len(changed)))

	entry := runs.NewEntry(inputHash, changed)
	env := exec.ComposeEnv(r.config.Root(), r.config.Settings(), task, changed)
	opts := r.shellOptions(task, env, log)

	err = exec.RunCommand(ctx, task.Cmd, &opts)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	entry.Finish(err)
	r.record(ctx, task, entry, log)

	return false, err
}

// restart replaces the running service process of a restart task.
func (r *runner) restart(ctx context.Context, task *models.Task, svc *exec.Service, changed []string) error {
	log := r.log.WithPrefix(task.Name)

	_, inputHash := r.check(task, log)
	if svc.Running() {
		log.Info("restarting...", logger.Int("changed", len(changed)))
	} else {
		log.Info("starting...")
	}

	entry := runs.NewEntry(inputHash, changed)
	err := svc.Restart(exec.ComposeEnv(r.config.Root(), r.config.Settings(), task, changed))
	entry.Finish(err)
	r.record(ctx, task, entry, log)

	return err
}

func (r *runner) record(ctx context.Context, task *models.Task, entry *runs.Entry, log logger.Logger) {
	r.store.Set(task.Name, entry)
	r.store.ScheduleSave()

	if entry.Success {
		log.Info("completed", logger.Duration("duration", entry.Duration()))
		r.observe(task.Name, statusSuccess, entry.Duration())
		return
	}

	log.Error("failed", logger.String("error", entry.Error), logger.Duration("duration", entry.Duration()))
	r.observe(task.Name, statusFailure, entry.Duration())

	err := r.notifier.Notify(ctx,
		fmt.Sprintf("%s failed", task.Name),
		entry.Error,
		notify.PriorityHigh)
	if err != nil {
		log.Warn("failed to send notification", logger.Err(errors.Wrap(err, "notify")))
	}
}

func (r *runner) observe(task, status string, d time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveRun(task, status, d)
	}
}

func (r *runner) dryRun(tasks models.Tasks) {
	for _, task := range tasks {
		env := exec.ComposeEnv(r.config.Root(), r.config.Settings(), task, nil)

		r.log.Info("task", logger.String("name", task.Name))
		r.log.Info("workdir", logger.String("path", exec.ResolveWorkDir(r.config.Root(), task)))
		r.log.Info("command", logger.String("cmd", task.Cmd))
		r.log.Info("delay", logger.Duration("delay", r.config.TaskDelay(task)))
		r.log.Info("watch", logger.Strings("paths", task.WatchRoots(r.config.Root())))
		for _, e := range env {
			r.log.Debug("env", logger.String("var", e))
		}
	}
}
