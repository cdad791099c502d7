package actions

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vcnkl/settle/git"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
)

type RunOptions struct {
	Jobs  int
	Force bool
	// Changed limits the run to tasks whose paths contain uncommitted git
	// changes.
	Changed bool
}

type RunAction struct {
	*runner
	jobs    int
	changed bool
}

func NewRunAction(deps Deps, opts RunOptions) *RunAction {
	return &RunAction{
		runner:  newRunner(deps, opts.Force),
		jobs:    opts.Jobs,
		changed: opts.Changed,
	}
}

func (a *RunAction) Execute(ctx context.Context, tasks models.Tasks) (*models.Result, error) {
	start := time.Now()
	result := &models.Result{}

	changedByTask := make(map[string][]string)
	if a.changed {
		files, err := git.ChangedFiles(a.config.Root())
		if err != nil {
			return nil, err
		}

		var selected models.Tasks
		for _, task := range tasks {
			for _, f := range files {
				if task.Covers(a.config.Root(), f) {
					changedByTask[task.Name] = append(changedByTask[task.Name], f)
				}
			}
			if len(changedByTask[task.Name]) > 0 {
				selected = append(selected, task)
			} else {
				a.log.Debug("no changes", logger.String("task", task.Name))
			}
		}
		tasks = selected
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	if a.jobs > 0 {
		g.SetLimit(a.jobs)
	}

	for _, task := range tasks {
		g.Go(func() error {
			skipped, err := a.run(gctx, task, changedByTask[task.Name])

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed = append(result.Failed, models.FailedTask{Name: task.Name, Error: err})
			case skipped:
				result.Skipped = append(result.Skipped, task.Name)
			default:
				result.Executed = append(result.Executed, task.Name)
			}
			return nil
		})
	}

	_ = g.Wait()

	result.Duration = time.Since(start)
	return result, ctx.Err()
}

func (a *RunAction) DryRun(tasks models.Tasks) {
	a.dryRun(tasks)
}
