package compress

import (
	"math"

	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// Search constants. Shrinking moves in 10% steps until a probe fits; after
// that growth moves in 5% steps.
const (
	MaxAttempts    = 10
	InitialDamping = 0.9
	GrowFactor     = 1.05
	ShrinkFactor   = 0.9
	NearFullScale  = 0.95
)

// State is the terminal state of a search.
type State string

const (
	StateBaseline  State = "BASELINE"
	StateSearching State = "SEARCHING"
	StateAccepted  State = "ACCEPTED"
	StateExhausted State = "EXHAUSTED"
)

// Outcome says how the returned bytes were chosen.
type Outcome string

const (
	// OutcomeBaseline: the unscaled encode already fit the budget.
	OutcomeBaseline Outcome = "baseline"
	// OutcomePassthrough: the source was a JPEG within budget and no larger
	// than the chosen encode, so it was returned unchanged.
	OutcomePassthrough Outcome = "passthrough"
	// OutcomeSearched: a resized candidate within budget was accepted.
	OutcomeSearched Outcome = "searched"
	// OutcomeFloor: the search hit MinScale and accepted the floor encode,
	// which may exceed the budget.
	OutcomeFloor Outcome = "floor"
	// OutcomeFallback: no candidate was found within MaxAttempts; the
	// unscaled encode is returned.
	OutcomeFallback Outcome = "fallback"
)

// Probe records one trial encode.
type Probe struct {
	Attempt int     `json:"attempt"`
	Scale   float64 `json:"scale"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	SizeKB  float64 `json:"size_kb"`
	Fits    bool    `json:"fits"`
	// Forced marks the final probe at MinScale that is accepted regardless
	// of size.
	Forced bool `json:"forced,omitempty"`
}

// Result is the outcome of a compression run.
type Result struct {
	// Data is the encoded JPEG. Never empty on success.
	Data []byte `json:"-"`

	Scale          float64 `json:"scale"`
	SizeKB         float64 `json:"size_kb"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	OriginalWidth  int     `json:"original_width"`
	OriginalHeight int     `json:"original_height"`
	BaselineKB     float64 `json:"baseline_kb"`
	TargetKB       float64 `json:"target_kb"`
	Attempts       int     `json:"attempts"`
	State          State   `json:"state"`
	Outcome        Outcome `json:"outcome"`
	Probes         []Probe `json:"probes,omitempty"`
}

// WithinBudget reports whether the output satisfies the size budget.
func (r *Result) WithinBudget() bool {
	return r.SizeKB <= r.TargetKB
}

type candidate struct {
	data          []byte
	scale         float64
	width, height int
}

// search runs the baseline check and the scale search on a normalized buffer.
// Every resize starts from orig; orig is never modified.
func search(orig *imaging.PixelBuffer, p Params, log *zap.Logger) (*Result, error) {
	res := &Result{
		OriginalWidth:  orig.Width,
		OriginalHeight: orig.Height,
		TargetKB:       p.TargetKB,
	}

	// BASELINE
	baseline, err := imaging.EncodeJPEG(orig, p.Quality)
	if err != nil {
		return nil, err
	}
	res.BaselineKB = imaging.SizeKB(baseline)
	log.Debug("baseline encoded",
		zap.String("state", string(StateBaseline)),
		zap.Int("width", orig.Width),
		zap.Int("height", orig.Height),
		zap.Float64("size_kb", res.BaselineKB),
		zap.Float64("target_kb", p.TargetKB))

	if res.BaselineKB <= p.TargetKB {
		res.accept(candidate{data: baseline, scale: 1.0, width: orig.Width, height: orig.Height}, OutcomeBaseline)
		return res, nil
	}

	// SEARCHING
	scale := math.Max(math.Sqrt(p.TargetKB/res.BaselineKB)*InitialDamping, p.MinScale)
	log.Debug("baseline over budget",
		zap.String("state", string(StateSearching)),
		zap.Float64("initial_scale", scale))

	probe := func(scale float64, forced bool) (candidate, bool, error) {
		w, h := imaging.ScaledSize(orig.Width, orig.Height, scale)
		data, err := imaging.EncodeJPEG(imaging.Resize(orig, w, h), p.Quality)
		if err != nil {
			return candidate{}, false, err
		}
		kb := imaging.SizeKB(data)
		fits := kb <= p.TargetKB
		res.Probes = append(res.Probes, Probe{
			Attempt: res.Attempts,
			Scale:   scale,
			Width:   w,
			Height:  h,
			SizeKB:  kb,
			Fits:    fits,
			Forced:  forced,
		})
		log.Debug("probe",
			zap.Int("attempt", res.Attempts),
			zap.Float64("scale", scale),
			zap.Int("width", w),
			zap.Int("height", h),
			zap.Float64("size_kb", kb),
			zap.Bool("fits", fits),
			zap.Bool("forced", forced))
		return candidate{data: data, scale: scale, width: w, height: h}, fits, nil
	}

	var last *candidate
	for res.Attempts < MaxAttempts {
		res.Attempts++

		c, fits, err := probe(scale, false)
		if err != nil {
			return nil, err
		}

		if fits {
			last = &c
			if scale >= NearFullScale {
				break
			}
			scale = math.Min(scale*GrowFactor, 1.0)
			continue
		}

		if last != nil {
			break
		}

		scale *= ShrinkFactor
		if scale < p.MinScale {
			c, _, err := probe(p.MinScale, true)
			if err != nil {
				return nil, err
			}
			res.accept(c, OutcomeFloor)
			return res, nil
		}
	}

	if last != nil {
		res.accept(*last, OutcomeSearched)
		return res, nil
	}

	// EXHAUSTED
	res.Data = baseline
	res.Scale = 1.0
	res.SizeKB = res.BaselineKB
	res.Width, res.Height = orig.Width, orig.Height
	res.State = StateExhausted
	res.Outcome = OutcomeFallback
	return res, nil
}

func (r *Result) accept(c candidate, outcome Outcome) {
	r.Data = c.data
	r.Scale = c.scale
	r.SizeKB = imaging.SizeKB(c.data)
	r.Width, r.Height = c.width, c.height
	r.State = StateAccepted
	r.Outcome = outcome
}
