package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatthieu3/fits3"

	"github.com/fsnotify/fsnotify"
)

// Source delivers cube bytes into an inbox until its work is done or ctx
// is cancelled.
type Source interface {
	Run(ctx context.Context, inbox *CubeInbox) error
}

func ReadCubeFile(path string) (CubeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CubeRequest{}, fmt.Errorf("read cube: %w", err)
	}
	return NewCubeRequest(path, data), nil
}

// FileSource posts the file once.
type FileSource struct {
	Path string
}

func (s FileSource) Run(ctx context.Context, inbox *CubeInbox) error {
	req, err := ReadCubeFile(s.Path)
	if err != nil {
		return err
	}
	inbox.Post(req)
	return nil
}

// DefaultWatchQuiet is how long a watched file must stay unchanged before
// it is re-read.
const DefaultWatchQuiet = 250 * time.Millisecond

// WatchSource re-reads Path once it has been written or recreated and then
// left alone for Quiet. The parent directory is watched so editors that
// replace the file by rename are followed.
type WatchSource struct {
	Path  string
	Quiet time.Duration
	Log   fits3.Logger
}

func (s WatchSource) Run(ctx context.Context, inbox *CubeInbox) error {
	log := fits3.OrNop(s.Log)
	quiet := s.Quiet
	if quiet <= 0 {
		quiet = DefaultWatchQuiet
	}
	target, err := filepath.Abs(s.Path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.Path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.Path, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", s.Path, err)
	}
	log.Infof("watching %s", target)

	settle := time.NewTimer(quiet)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			settle.Reset(quiet)
		case <-settle.C:
			req, err := ReadCubeFile(target)
			if err != nil {
				log.Warnf("reload %s: %v", target, err)
				continue
			}
			if inbox.Post(req) {
				log.Debugf("cube %s superseded a pending reload", req.ID)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("watch %s: %v", target, err)
		}
	}
}

// MaxFetchBytes bounds a downloaded cube.
const MaxFetchBytes = 1 << 30

// FetchSource downloads one cube over HTTP.
type FetchSource struct {
	URL    string
	Client *http.Client
}

func (s FetchSource) Run(ctx context.Context, inbox *CubeInbox) error {
	req, err := s.Fetch(ctx)
	if err != nil {
		return err
	}
	inbox.Post(req)
	return nil
}

func (s FetchSource) Fetch(ctx context.Context) (CubeRequest, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return CubeRequest{}, fmt.Errorf("fetch cube: %w", err)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return CubeRequest{}, fmt.Errorf("fetch cube: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CubeRequest{}, fmt.Errorf("fetch cube %s: %s", s.URL, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return CubeRequest{}, fmt.Errorf("fetch cube %s: %w", s.URL, err)
	}
	if len(data) > MaxFetchBytes {
		return CubeRequest{}, fmt.Errorf("fetch cube %s: body larger than %d bytes", s.URL, MaxFetchBytes)
	}
	return NewCubeRequest(s.URL, data), nil
}
