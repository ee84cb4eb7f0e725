package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/semaphore"

	"doc-convert/internal/logging"
	"doc-convert/internal/storage"
)

// Input is one client upload plus request options.
type Input struct {
	Filename string
	Body     io.Reader
	Format   string
}

// PipelineConfig bounds the pipeline.
type PipelineConfig struct {
	Workers int64
	Timeout time.Duration
}

// Pipeline runs conversions: store the upload, check it, run one strategy
// under a worker slot and a deadline, clean up intermediates.
type Pipeline struct {
	areas   *storage.Areas
	slots   *semaphore.Weighted
	workers int64
	timeout time.Duration
	log     *logging.Logger

	busy chan struct{}
}

// NewPipeline creates a pipeline over areas.
func NewPipeline(areas *storage.Areas, cfg PipelineConfig, log *logging.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = logging.Default
	}
	return &Pipeline{
		areas:   areas,
		slots:   semaphore.NewWeighted(cfg.Workers),
		workers: cfg.Workers,
		timeout: cfg.Timeout,
		log:     log,
		busy:    make(chan struct{}, cfg.Workers),
	}
}

// Workers returns the configured slot count.
func (p *Pipeline) Workers() int64 {
	return p.workers
}

// InFlight returns how many strategies currently hold a slot, including
// ones still running after their request timed out.
func (p *Pipeline) InFlight() int {
	return len(p.busy)
}

// Run executes route for in. On success the returned artifact is the only
// file left besides the stored upload. On failure nothing but the upload
// remains and the error is an *Error.
func (p *Pipeline) Run(ctx context.Context, route *Route, in Input) (*Artifact, error) {
	start := time.Now()

	target, err := route.Target(in.Format)
	if err != nil {
		return nil, p.fail(ctx, route.Name, start, clientErr("select format", err))
	}

	up, ws, serr := p.store(route, in)
	if serr != nil {
		return nil, p.fail(ctx, route.Name, start, serr)
	}

	outName := storage.WithExtension(up.Name, target.Ext)
	req := &Request{
		Route:      route.Name,
		Upload:     up,
		Target:     target,
		OutputName: outName,
		OutputPath: ws.OutputPath(outName),
		Workspace:  ws,
		Tracker:    storage.NewTracker(),
	}

	p.log.Info(ctx, "conversion_started", logging.Fields{
		"route":  route.Name,
		"file":   up.Name,
		"bytes":  up.Size,
		"mime":   up.MIME,
		"target": target.Format,
		"token":  ws.Token(),
	})

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return nil, p.fail(ctx, route.Name, start, &Error{Kind: KindTimeout, Op: "wait for worker", Err: err})
	}
	p.busy <- struct{}{}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- contentErr("convert", panicError{value: r})
			}
		}()
		done <- route.Strategy.Convert(ctx, req)
	}()

	select {
	case err = <-done:
		p.finish(ctx, req, err)
	case <-ctx.Done():
		// The strategy may still be writing; clean up once it returns.
		go func() {
			p.finish(context.WithoutCancel(ctx), req, errors.Join(<-done, ctx.Err()))
		}()
		err = &Error{Kind: KindTimeout, Op: "convert", Err: ctx.Err()}
	}
	if err != nil {
		return nil, p.fail(ctx, route.Name, start, classify(route.Name, err))
	}

	info, err := os.Stat(req.OutputPath)
	if err != nil {
		return nil, p.fail(ctx, route.Name, start, fsErr("stat output", err))
	}

	p.log.Info(ctx, "conversion_complete", logging.Fields{
		"route":       route.Name,
		"output":      outName,
		"bytes":       info.Size(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &Artifact{
		Path:        req.OutputPath,
		Name:        outName,
		ContentType: target.ContentType,
		Size:        info.Size(),
	}, nil
}

// store sanitizes the client name, writes the upload into the intake area
// and sniffs it against the route's source.
func (p *Pipeline) store(route *Route, in Input) (*Upload, *storage.Workspace, *Error) {
	if in.Body == nil {
		return nil, nil, clientErr("read upload", errors.New("no file provided"))
	}

	ws := p.areas.NewWorkspace()
	name := storage.Sanitize(in.Filename)

	body := &readRecorder{r: in.Body}
	path, n, err := ws.StoreUpload(name, body)
	if err != nil {
		if body.err != nil {
			return nil, nil, clientErr("read upload", body.err)
		}
		return nil, nil, fsErr("store upload", err)
	}
	if n == 0 {
		_ = os.Remove(path)
		return nil, nil, clientErr("read upload", errors.New("uploaded file is empty"))
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, nil, fsErr("inspect upload", err)
	}
	if !route.Source.Accepts(mt) {
		return nil, nil, clientErr("check upload", fmt.Errorf("expected a %s file, got %s", route.Source.Name, mt.String()))
	}

	return &Upload{
		OriginalName: in.Filename,
		Name:         name,
		Path:         path,
		Size:         n,
		MIME:         mt.String(),
	}, ws, nil
}

// finish releases intermediates and the worker slot. On failure any
// partial output is removed as well.
func (p *Pipeline) finish(ctx context.Context, req *Request, err error) {
	if rerr := req.Tracker.ReleaseAll(); rerr != nil {
		p.log.Warn(ctx, "intermediate_cleanup_failed", logging.Fields{"route": req.Route, "error": rerr.Error()})
	}
	if err != nil {
		if rerr := os.Remove(req.OutputPath); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			p.log.Warn(ctx, "partial_output_cleanup_failed", logging.Fields{"route": req.Route, "error": rerr.Error()})
		}
	}
	<-p.busy
	p.slots.Release(1)
}

func (p *Pipeline) fail(ctx context.Context, route string, start time.Time, err *Error) *Error {
	if err.Route == "" {
		err.Route = route
	}
	p.log.Error(ctx, "conversion_failed", logging.Fields{
		"route":       route,
		"kind":        string(err.Kind),
		"duration_ms": time.Since(start).Milliseconds(),
	}, err)
	return err
}

// readRecorder remembers the first read error so a failed copy can be
// blamed on the client rather than the disk.
type readRecorder struct {
	r   io.Reader
	err error
}

func (rr *readRecorder) Read(b []byte) (int, error) {
	n, err := rr.r.Read(b)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}
	return n, err
}
