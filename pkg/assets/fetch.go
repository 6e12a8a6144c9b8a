package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"time"
)

// maxDownload bounds a single fetched file.
const maxDownload = 256 << 20

// httpFS serves the resources of a remote model relative to its URL, so the
// glTF decoder can resolve external buffers itself.
type httpFS struct {
	ctx    context.Context
	client *http.Client
	base   *url.URL
}

func newHTTPFS(ctx context.Context, client *http.Client, src string) (*httpFS, error) {
	base, err := url.Parse(src)
	if err != nil {
		return nil, err
	}
	return &httpFS{ctx: ctx, client: client, base: base}, nil
}

// Open implements fs.FS. Names are slash-separated paths below the model's
// directory; anything else is rejected before a request is made.
func (f *httpFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	rel, err := url.PathUnescape(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	data, err := download(f.ctx, f.client, f.base.ResolveReference(&url.URL{Path: rel}).String())
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name), size: int64(len(data))}, nil
}

// model downloads the main document.
func (f *httpFS) model() ([]byte, error) {
	return download(f.ctx, f.client, f.base.String())
}

func download(ctx context.Context, client *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxDownload))
}

type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }

func (f *memFile) Name() string       { return f.name }
func (f *memFile) Size() int64        { return f.size }
func (f *memFile) Mode() fs.FileMode  { return 0o444 }
func (f *memFile) ModTime() time.Time { return time.Time{} }
func (f *memFile) IsDir() bool        { return false }
func (f *memFile) Sys() any           { return nil }
