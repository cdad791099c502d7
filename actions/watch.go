package actions

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vcnkl/settle/debounce"
	"github.com/vcnkl/settle/exec"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/watcher"
)

type WatchOptions struct {
	Force bool
	// NoInitial skips the run every task gets before the first change.
	NoInitial bool
	// StopGrace overrides how long a restart task gets to exit after SIGTERM.
	StopGrace time.Duration
}

type WatchAction struct {
	*runner
	opts WatchOptions

	mu      sync.Mutex
	results map[string]*models.FailedTask
	counts  map[string]int
}

func NewWatchAction(deps Deps, opts WatchOptions) *WatchAction {
	return &WatchAction{
		runner:  newRunner(deps, opts.Force),
		opts:    opts,
		results: make(map[string]*models.FailedTask),
		counts:  make(map[string]int),
	}
}

// Execute watches every task until ctx ends. Each task has its own watcher
// and a single worker, so runs of one task never overlap.
func (a *WatchAction) Execute(ctx context.Context, tasks models.Tasks) (*models.Result, error) {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)

	if addr := a.config.Settings().MetricsAddr; addr != "" && a.metrics != nil {
		g.Go(func() error {
			a.log.Info("serving metrics", logger.String("addr", addr))
			return a.metrics.Serve(gctx, addr)
		})
	}

	for _, task := range tasks {
		g.Go(func() error {
			return a.watchTask(gctx, task)
		})
	}

	err := g.Wait()

	result := a.result(tasks)
	result.Duration = time.Since(start)
	return result, err
}

func (a *WatchAction) watchTask(ctx context.Context, task *models.Task) error {
	log := a.log.WithPrefix(task.Name)

	var observer debounce.Observer
	if a.metrics != nil {
		observer = a.metrics.Observer(task.Name)
	}

	w, err := watcher.New(watcher.Options{
		Root:      a.config.Root(),
		Paths:     task.WatchRoots(a.config.Root()),
		Ignore:    task.Ignore,
		Gitignore: task.Gitignore,
		Delay:     a.config.TaskDelay(task),
		Observer:  observer,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	q := newChangeQueue()
	w.OnChange(q.add)

	var svc *exec.Service
	if task.Restart {
		svc = exec.NewService(task.Cmd, a.shellOptions(task, nil, log))
		if a.opts.StopGrace > 0 {
			svc.WithStopGrace(a.opts.StopGrace)
		}
		defer svc.Stop()
	}

	watchErr := make(chan error, 1)
	go func() {
		watchErr <- w.Start(ctx)
	}()

	select {
	case <-w.Ready():
		log.Info("watching", logger.Strings("paths", task.WatchRoots(a.config.Root())))
	case err = <-watchErr:
		return err
	case <-ctx.Done():
		return nil
	}

	if !a.opts.NoInitial {
		q.signal()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err = <-watchErr:
			return err
		case <-q.ready:
			a.handle(ctx, task, svc, q.take())
		}
	}
}

func (a *WatchAction) handle(ctx context.Context, task *models.Task, svc *exec.Service, changed []string) {
	var err error
	if svc != nil {
		err = a.restart(ctx, task, svc, changed)
	} else {
		_, err = a.run(ctx, task, changed)
	}
	if ctx.Err() != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.counts[task.Name]++
	if err != nil {
		a.results[task.Name] = &models.FailedTask{Name: task.Name, Error: err}
	} else {
		delete(a.results, task.Name)
	}
}

// result reports the tasks that ran at least once; a task counts as failed
// when its most recent run failed.
func (a *WatchAction) result(tasks models.Tasks) *models.Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := &models.Result{}
	for _, task := range tasks {
		switch {
		case a.results[task.Name] != nil:
			result.Failed = append(result.Failed, *a.results[task.Name])
		case a.counts[task.Name] > 0:
			result.Executed = append(result.Executed, task.Name)
		default:
			result.Skipped = append(result.Skipped, task.Name)
		}
	}
	return result
}

func (a *WatchAction) DryRun(tasks models.Tasks) {
	a.dryRun(tasks)
}

// changeQueue collects changed paths between runs. ready holds at most one
// signal, so changes that arrive while a run is in flight produce exactly
// one follow-up run.
type changeQueue struct {
	mu    sync.Mutex
	paths map[string]struct{}
	ready chan struct{}
}

func newChangeQueue() *changeQueue {
	return &changeQueue{
		paths: make(map[string]struct{}),
		ready: make(chan struct{}, 1),
	}
}

func (q *changeQueue) add(paths []string) {
	q.mu.Lock()
	for _, p := range paths {
		q.paths[p] = struct{}{}
	}
	q.mu.Unlock()
	q.signal()
}

func (q *changeQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *changeQueue) take() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.paths) == 0 {
		return nil
	}
	paths := make([]string, 0, len(q.paths))
	for p := range q.paths {
		paths = append(paths, p)
	}
	q.paths = make(map[string]struct{})
	sort.Strings(paths)
	return paths
}
