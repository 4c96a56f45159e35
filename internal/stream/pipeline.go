package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/danmuck/plotctl/internal/observability"
	"github.com/danmuck/plotctl/internal/sample"
	"github.com/danmuck/plotctl/internal/window"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	ErrNilSink        = errors.New("stream: nil update sink")
	ErrAlreadyStarted = errors.New("stream: pipeline already started")
)

// Config sizes the buffer and the queue between reader and owner.
// MaxLineBytes caps a single transport line; zero means
// sample.DefaultMaxLineBytes.
type Config struct {
	Capacity     int
	QueueSize    int
	Overflow     OverflowPolicy
	MaxLineBytes int
}

func DefaultConfig() Config {
	return Config{
		Capacity:     255,
		QueueSize:    64,
		Overflow:     DropOldest,
		MaxLineBytes: sample.DefaultMaxLineBytes,
	}
}

// Stats is safe to read from any goroutine.
type Stats struct {
	RunID       string
	Decoded     uint64
	ParseErrors uint64
	Dropped     uint64
	Applied     uint64
	Channels    int
	ReaderDone  bool
}

// Pipeline runs one ingestion session: a reader goroutine feeding a bounded
// queue and an owner goroutine applying records to the buffer.
type Pipeline struct {
	cfg    Config
	buf    *window.Buffer
	queue  *Queue
	sink   UpdateSink
	logger zerolog.Logger
	runID  string

	started     atomic.Bool
	readerDone  atomic.Bool
	decoded     atomic.Uint64
	parseErrors atomic.Uint64
	applied     atomic.Uint64
	channels    atomic.Int64

	parseWarn    rate.Sometimes
	overflowWarn rate.Sometimes
}

func New(cfg Config, sink UpdateSink, logger zerolog.Logger) (*Pipeline, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	buf, err := window.New(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	queue, err := NewQueue(cfg.QueueSize, cfg.Overflow)
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	return &Pipeline{
		cfg:          cfg,
		buf:          buf,
		queue:        queue,
		sink:         sink,
		runID:        runID,
		logger:       logger.With().Str("run_id", runID).Logger(),
		parseWarn:    rate.Sometimes{First: 5, Interval: time.Second},
		overflowWarn: rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}, nil
}

// Run blocks until r reaches end of stream and every queued record has been
// applied, r fails, or ctx is done. A transport read error is returned;
// cancellation and EOF are not errors. Run may be called once.
//
// Cancellation does not interrupt a blocked read on r; the caller closes the
// transport to release the reader goroutine.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	p.logger.Info().
		Int("capacity", p.cfg.Capacity).
		Int("queue_size", p.queue.Cap()).
		Str("overflow", string(p.queue.Policy())).
		Msg("stream.Pipeline.Run start")

	readErr := make(chan error, 1)
	go func() {
		readErr <- p.read(ctx, r)
		p.readerDone.Store(true)
	}()

	p.own(ctx)

	stats := p.Stats()
	p.logger.Info().
		Uint64("applied", stats.Applied).
		Uint64("parse_errors", stats.ParseErrors).
		Uint64("dropped", stats.Dropped).
		Int("channels", stats.Channels).
		Msg("stream.Pipeline.Run stop")

	if ctx.Err() != nil {
		// The reader may still be parked on a read; only report a failure it
		// has already produced.
		select {
		case err := <-readErr:
			return err
		default:
			return nil
		}
	}
	return <-readErr
}

func (p *Pipeline) read(ctx context.Context, r io.Reader) error {
	defer p.queue.Close()

	dec := sample.NewDecoderSize(r, p.cfg.MaxLineBytes)
	for ctx.Err() == nil {
		rec, err := dec.Next()
		if err != nil {
			var pe *sample.ParseError
			switch {
			case errors.As(err, &pe):
				p.parseErrors.Add(1)
				observability.RecordParseError()
				p.parseWarn.Do(func() {
					p.logger.Warn().Err(pe).Uint64("line", pe.Line).Msg("stream.Pipeline.read line dropped")
				})
				continue
			case errors.Is(err, io.EOF):
				p.logger.Debug().Uint64("lines", dec.Lines()).Msg("stream.Pipeline.read end of stream")
				return nil
			case ctx.Err() != nil:
				// Closing the transport is how shutdown unblocks the read.
				return nil
			default:
				return fmt.Errorf("stream: read transport: %w", err)
			}
		}
		if rec.Empty() {
			continue
		}

		p.decoded.Add(1)
		observability.RecordDecoded(rec.Kind.String())
		if dropped, err := p.queue.Push(rec); err != nil {
			observability.RecordQueueOverflow(string(p.queue.Policy()))
			p.overflowWarn.Do(func() {
				p.logger.Warn().
					Err(err).
					Str("policy", string(p.queue.Policy())).
					Uint64("dropped_line", dropped.Line).
					Uint64("dropped_total", p.queue.Dropped()).
					Msg("stream.Pipeline.read record discarded")
			})
		}
	}
	return nil
}

func (p *Pipeline) own(ctx context.Context) {
	for {
		rec, ok := p.queue.Pop(ctx)
		if !ok {
			return
		}
		p.apply(rec)
	}
}

func (p *Pipeline) apply(rec sample.Record) {
	before := p.buf.Channels()
	if !p.buf.Append(rec) {
		return
	}
	if after := p.buf.Channels(); after > before {
		p.logger.Info().
			Int("from", before).
			Int("to", after).
			Uint64("line", rec.Line).
			Msg("stream.Pipeline.apply channels added")
	}
	p.applied.Add(1)
	p.channels.Store(int64(p.buf.Channels()))
	observability.RecordApplied(p.buf.Channels(), p.buf.Len())
	p.sink.Notify(p.buf.Snapshot())
}

func (p *Pipeline) RunID() string {
	return p.runID
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		RunID:       p.runID,
		Decoded:     p.decoded.Load(),
		ParseErrors: p.parseErrors.Load(),
		Dropped:     p.queue.Dropped(),
		Applied:     p.applied.Load(),
		Channels:    int(p.channels.Load()),
		ReaderDone:  p.readerDone.Load(),
	}
}
