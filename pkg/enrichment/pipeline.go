package enrichment

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"mercator-hq/tagstream/pkg/lineproto"
	"mercator-hq/tagstream/pkg/tagcache"
	"mercator-hq/tagstream/pkg/telemetry/logging"
)

// DefaultMaxLineBytes is the longest input line accepted by default.
const DefaultMaxLineBytes = 1 << 20

// readBufferSize is the size of the input reader's buffer. Longer lines are
// assembled from several reads.
const readBufferSize = 64 << 10

// Pipeline reads line-protocol metrics, enriches them on a Scheduler and
// writes the enriched records.
//
// A single goroutine reads and decodes the input. Undecodable lines are
// logged and skipped; they never stop the stream.
type Pipeline struct {
	decoder   *lineproto.Decoder
	scheduler *Scheduler

	maxLineBytes    int
	shutdownTimeout time.Duration
	observer        Observer
	logger          *slog.Logger

	running atomic.Bool
}

// NewPipeline creates a pipeline writing enriched records to w. The
// scheduler's workers start immediately.
func NewPipeline(cfg Config, resolvers Resolvers, cache *tagcache.Cache, w io.Writer) *Pipeline {
	cfg.setDefaults()

	return &Pipeline{
		decoder:         lineproto.NewDecoder(cfg.Precision),
		scheduler:       NewScheduler(cfg, resolvers, cache, lineproto.NewEncoder(w)),
		maxLineBytes:    cfg.MaxLineBytes,
		shutdownTimeout: cfg.ShutdownTimeout,
		observer:        cfg.Observer,
		logger:          cfg.Logger.With("component", "pipeline"),
	}
}

// Run processes r until it is exhausted or ctx is cancelled, then waits up
// to the shutdown timeout for in-flight lookups to be written. Cancellation
// is a clean stop; Run returns only input and output errors.
//
// Run must be called at most once.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	p.running.Store(true)
	defer p.running.Store(false)

	p.logger.Info("pipeline started")

	br := bufio.NewReaderSize(r, readBufferSize)
	var (
		buf    []byte
		lineNo int
		runErr error
	)
	for ctx.Err() == nil {
		line, tooLong, err := readLine(br, buf, p.maxLineBytes)
		if err != nil {
			// A reader closed to unblock cancellation fails here too.
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				runErr = fmt.Errorf("read input: %w", err)
			}
			break
		}
		buf = line[:0]
		lineNo++

		if err := p.handle(ctx, lineNo, line, tooLong); err != nil {
			if ctx.Err() == nil {
				runErr = err
			}
			break
		}
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.shutdownTimeout)
	defer cancel()
	if err := p.scheduler.Close(dctx); err != nil && runErr == nil {
		runErr = err
	}

	p.logger.Info("pipeline stopped", "lines", lineNo)
	return runErr
}

// Running reports whether Run is in progress.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// handle decodes one line and submits it. It returns an error only when the
// stream must stop.
func (p *Pipeline) handle(ctx context.Context, lineNo int, line []byte, tooLong bool) error {
	p.observer.RecordLineRead()
	ctx = logging.WithLine(ctx, lineNo)

	if tooLong {
		p.skip(ctx, &lineproto.DecodeError{
			Line:   lineNo,
			Reason: fmt.Sprintf("line exceeds %d bytes", p.maxLineBytes),
		})
		return nil
	}
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	m, err := p.decoder.Decode(line)
	if err != nil {
		var de *lineproto.DecodeError
		if errors.As(err, &de) {
			de.Line = lineNo
		}
		p.skip(ctx, err)
		return nil
	}

	return p.scheduler.Submit(ctx, m)
}

func (p *Pipeline) skip(ctx context.Context, err error) {
	p.observer.RecordDecodeError()
	p.logger.WarnContext(ctx, "skipping line", "error", err)
}

// readLine returns the next line without its terminator, reusing buf.
// A line longer than max is consumed and reported with tooLong set and no
// content. A final line without a newline is returned before io.EOF.
func readLine(br *bufio.Reader, buf []byte, max int) (line []byte, tooLong bool, err error) {
	line = buf[:0]
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			// Allow room for a trailing "\r\n".
			if len(line)+len(chunk) > max+2 {
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(line) == 0 && !tooLong {
				return nil, false, io.EOF
			}
		case err != nil:
			return nil, false, err
		}
		break
	}

	line = bytes.TrimRight(line, "\r\n")
	if len(line) > max {
		return line[:0], true, nil
	}
	return line, tooLong, nil
}
