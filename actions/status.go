package actions

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/vcnkl/settle/format"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/stores/runs"
)

type StatusAction struct {
	store      *runs.Store
	configured models.Tasks
	now        func() time.Time
}

func NewStatusAction(store *runs.Store, configured models.Tasks) *StatusAction {
	return &StatusAction{
		store:      store,
		configured: configured,
		now:        time.Now,
	}
}

// Execute prints the last recorded run of each task. Tasks that never ran
// are listed as such. When every configured task is selected, recorded
// tasks that are no longer configured follow.
func (a *StatusAction) Execute(w io.Writer, tasks models.Tasks) error {
	if err := a.store.Load(); err != nil {
		return err
	}

	known := make(map[string]bool, len(a.configured))
	for _, n := range a.configured.Names() {
		known[n] = true
	}

	names := tasks.Names()
	if len(tasks) == len(a.configured) {
		for _, n := range a.store.Tasks() {
			if !known[n] {
				names = append(names, n)
			}
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tSTATUS\tLAST RUN\tDURATION\tCHANGED")

	for _, name := range names {
		entry, ok := a.store.Get(name)
		if !ok {
			fmt.Fprintf(tw, "%s\tnever run\t-\t-\t-\n", name)
			continue
		}

		status := "ok"
		if !entry.Success {
			status = "failed"
		}
		if !known[name] {
			status += " (removed)"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
			name,
			status,
			humanize.RelTime(entry.StartedAt, a.now(), "ago", "from now"),
			format.Compact(entry.Duration()),
			len(entry.Changed))
	}

	return tw.Flush()
}
