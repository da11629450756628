package tui

import (
	"context"
	"sync"

	"github.com/charmbracelet/huh/spinner"
)

// WithSpinner runs action while a spinner is shown. Without a terminal the
// action runs plainly.
func WithSpinner(ctx context.Context, title string, action func(ctx context.Context) error) error {
	if !HasTTY {
		return action(ctx)
	}
	var (
		wg  sync.WaitGroup
		err error
	)
	wg.Add(1)
	serr := spinner.New().Context(ctx).Title(title).Action(func() {
		defer wg.Done()
		err = action(ctx)
	}).Run()
	// the spinner returns early on cancellation; action sees the same ctx
	wg.Wait()
	if serr != nil && err == nil {
		return serr
	}
	return err
}
