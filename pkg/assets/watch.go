package assets

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle coalesces the burst of events editors emit on save.
const watchSettle = 150 * time.Millisecond

// Watch reloads a local model every time it changes on disk and delivers
// each reload as a Result. The channel closes when ctx is done. Remote
// sources cannot be watched.
func Watch(ctx context.Context, l Loader, src string) (<-chan Result, error) {
	if isRemote(src) {
		return nil, &LoadError{Source: src, Op: "watch", Err: fmt.Errorf("%w: remote source", ErrUnsupported)}
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, &LoadError{Source: src, Op: "watch", Err: err}
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &LoadError{Source: src, Op: "watch", Err: err}
	}
	// Watch the directory: many editors replace the file on save.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, &LoadError{Source: src, Op: "watch", Err: err}
	}

	out := make(chan Result)
	go func() {
		defer close(out)
		defer w.Close()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchSettle)
				} else {
					timer.Reset(watchSettle)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				select {
				case out <- Result{Source: src, Err: &LoadError{Source: src, Op: "watch", Err: err}}:
				case <-ctx.Done():
					return
				}
			case <-fire:
				fire = nil
				a, err := l.Load(ctx, src)
				select {
				case out <- Result{Source: src, Asset: a, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
