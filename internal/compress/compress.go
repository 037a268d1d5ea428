package compress

import (
	"bytes"
	"context"

	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// Compressor runs compression requests. It holds configuration only and no
// per-call state, so one Compressor may serve any number of concurrent calls.
type Compressor struct {
	logger    *zap.Logger
	normalize imaging.NormalizeOptions
}

// Option configures a Compressor.
type Option func(*Compressor)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *Compressor) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithNormalizeOptions sets how alpha channels are removed.
func WithNormalizeOptions(o imaging.NormalizeOptions) Option {
	return func(c *Compressor) {
		c.normalize = o
	}
}

// New creates a Compressor. Without options it drops alpha and does not log.
func New(opts ...Option) *Compressor {
	c := &Compressor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress loads, decodes and normalizes the request source and returns the
// highest-fidelity JPEG re-encode that fits the size budget.
//
// The context bounds only source loading. Once the bytes are in memory the
// search runs to completion; callers that need a deadline on the whole call
// must run it on their own goroutine and abandon it.
//
// Failing to meet the budget is not an error: the result is then produced at
// MinScale (Outcome "floor") or, if the attempt cap is hit, unscaled
// (Outcome "fallback").
func (c *Compressor) Compress(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := c.logger.With(zap.String("source", req.Source.Describe()))

	data, err := req.Source.Load(ctx)
	if err != nil {
		return nil, err
	}

	dec, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	raw := imaging.FromImage(dec.Image)
	buf, err := imaging.Normalize(raw, c.normalize)
	if err != nil {
		return nil, err
	}

	res, err := search(buf, req.Params, log)
	if err != nil {
		return nil, err
	}

	// A JPEG source that already fits is never replaced by a larger encode.
	if dec.Format == "jpeg" && raw.Channels != 4 && imaging.SizeKB(data) <= req.TargetKB && len(data) <= len(res.Data) {
		res.Data = bytes.Clone(data)
		res.SizeKB = imaging.SizeKB(data)
		res.Scale = 1.0
		res.Width, res.Height = raw.Width, raw.Height
		res.State = StateAccepted
		res.Outcome = OutcomePassthrough
	}

	c.logResult(log, res)
	return res, nil
}

// CompressBuffer runs the search on a buffer built by the caller, for example
// with imaging.FromSamples. The buffer is normalized first.
func (c *Compressor) CompressBuffer(buf *imaging.PixelBuffer, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	norm, err := imaging.Normalize(buf, c.normalize)
	if err != nil {
		return nil, err
	}

	res, err := search(norm, p, c.logger)
	if err != nil {
		return nil, err
	}

	c.logResult(c.logger, res)
	return res, nil
}

func (c *Compressor) logResult(log *zap.Logger, res *Result) {
	fields := []zap.Field{
		zap.String("state", string(res.State)),
		zap.String("outcome", string(res.Outcome)),
		zap.Float64("scale", res.Scale),
		zap.Float64("size_kb", res.SizeKB),
		zap.Float64("target_kb", res.TargetKB),
		zap.Int("attempts", res.Attempts),
	}
	if res.WithinBudget() {
		log.Info("compression complete", fields...)
		return
	}
	log.Warn("size budget not reachable, returning best effort", fields...)
}

// Compress runs req with a default Compressor.
func Compress(ctx context.Context, req Request) (*Result, error) {
	return New().Compress(ctx, req)
}
