// Package assets loads models into scene subtrees with their animation
// clips. Loading runs off the frame loop; results come back on a channel.
package assets

import (
	"context"
	"fmt"

	"github.com/taigrr/diorama/pkg/anim"
	"github.com/taigrr/diorama/pkg/scene"
)

// Asset is a loaded model: a detached subtree ready to attach, and its clips
// indexed by name.
type Asset struct {
	Source    string
	Root      *scene.Node
	Clips     anim.ClipSet
	Meshes    int
	Triangles int
}

// LoadError reports a failed load.
type LoadError struct {
	Source string
	Op     string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader produces assets from a path or URL.
type Loader interface {
	Load(ctx context.Context, src string) (*Asset, error)
}

// Result is delivered once per asynchronous load.
type Result struct {
	Source string
	Asset  *Asset
	Err    error
}

// LoadAsync runs l.Load on its own goroutine. The returned channel yields
// exactly one Result and is then closed.
func LoadAsync(ctx context.Context, l Loader, src string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		a, err := l.Load(ctx, src)
		ch <- Result{Source: src, Asset: a, Err: err}
	}()
	return ch
}
