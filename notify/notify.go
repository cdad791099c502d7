package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/containrrr/shoutrrr"
	"github.com/containrrr/shoutrrr/pkg/router"
	"github.com/containrrr/shoutrrr/pkg/types"
	pkgerrors "github.com/pkg/errors"
)

type Priority int

const (
	PriorityLow    Priority = 0
	PriorityMedium Priority = 7
	PriorityHigh   Priority = 10
)

type Notifier interface {
	Notify(ctx context.Context, title string, message string, priority Priority) error
}

type dummyNotifier struct{}

func (*dummyNotifier) Notify(context.Context, string, string, Priority) error {
	return nil
}

func NewDummyNotifier() Notifier {
	return &dummyNotifier{}
}

type shoutrrrNotifier struct {
	*router.ServiceRouter
}

// NewShoutrrrNotifier sends through every shoutrrr service URL given.
func NewShoutrrrNotifier(urls ...string) (Notifier, error) {
	r, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to create notifier")
	}
	return &shoutrrrNotifier{r}, nil
}

// New returns a dummy notifier when urls is empty.
func New(urls []string) (Notifier, error) {
	if len(urls) == 0 {
		return NewDummyNotifier(), nil
	}
	return NewShoutrrrNotifier(urls...)
}

func (n *shoutrrrNotifier) Notify(
	ctx context.Context,
	title string,
	message string,
	priority Priority,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message == "" {
		message = title
	}
	errs := n.Send(message, &types.Params{
		"title":    fmt.Sprintf("settle: %s", title),
		"priority": strconv.Itoa(int(priority)),
	})
	return errors.Join(errs...)
}
