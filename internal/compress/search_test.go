package compress

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"go.uber.org/zap"

	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// checkResult asserts the invariants every successful search must satisfy.
func checkResult(t *testing.T, res *Result, p Params, orig *imaging.PixelBuffer) {
	t.Helper()

	if len(res.Data) == 0 {
		t.Fatal("result has no data")
	}
	if res.Attempts > MaxAttempts {
		t.Errorf("Attempts = %d, exceeds cap %d", res.Attempts, MaxAttempts)
	}
	if res.Scale < p.MinScale || res.Scale > 1.0 {
		t.Errorf("Scale = %v, outside [%v, 1]", res.Scale, p.MinScale)
	}
	if res.Outcome != OutcomeFallback && !(res.SizeKB <= p.TargetKB || res.Scale == p.MinScale) {
		t.Errorf("SizeKB = %.2f over target %.2f with scale %v above min %v", res.SizeKB, p.TargetKB, res.Scale, p.MinScale)
	}
	if res.SizeKB != imaging.SizeKB(res.Data) {
		t.Errorf("SizeKB = %v, data is %v KB", res.SizeKB, imaging.SizeKB(res.Data))
	}

	img := decodeJPEG(t, res.Data)
	if b := img.Bounds(); b.Dx() != res.Width || b.Dy() != res.Height {
		t.Errorf("decoded %dx%d, result reports %dx%d", b.Dx(), b.Dy(), res.Width, res.Height)
	}

	for _, pr := range res.Probes {
		if pr.Scale < p.MinScale || pr.Scale > 1.0 {
			t.Errorf("probe %d scale %v outside [%v, 1]", pr.Attempt, pr.Scale, p.MinScale)
		}
		if w, h := imaging.ScaledSize(orig.Width, orig.Height, pr.Scale); w != pr.Width || h != pr.Height {
			t.Errorf("probe %d is %dx%d, want %dx%d for scale %v", pr.Attempt, pr.Width, pr.Height, w, h, pr.Scale)
		}
	}
}

func noisyBuffer(t *testing.T, width, height int, seed int64) *imaging.PixelBuffer {
	t.Helper()
	return imaging.FromImage(noisyRGBA(width, height, seed))
}

func TestSearch_BaselineFits(t *testing.T) {
	orig := noisyBuffer(t, 48, 32, 1)
	p := Params{TargetKB: 1000, Quality: 85, MinScale: 0.1}

	res, err := search(orig, p, zap.NewNop())
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	checkResult(t, res, p, orig)

	if res.Outcome != OutcomeBaseline || res.State != StateAccepted {
		t.Errorf("Outcome/State = %s/%s, want baseline/ACCEPTED", res.Outcome, res.State)
	}
	if res.Attempts != 0 || len(res.Probes) != 0 {
		t.Errorf("baseline run made %d attempts", res.Attempts)
	}
	if res.Width != 48 || res.Height != 32 || res.Scale != 1.0 {
		t.Errorf("baseline result is %dx%d at scale %v", res.Width, res.Height, res.Scale)
	}
	if res.BaselineKB != res.SizeKB {
		t.Errorf("BaselineKB = %v, SizeKB = %v", res.BaselineKB, res.SizeKB)
	}
}

func TestSearch_FindsFittingScale(t *testing.T) {
	orig := noisyBuffer(t, 200, 160, 2)
	full := baselineKB(t, noisyRGBA(200, 160, 2), 85)

	for _, frac := range []float64{0.97, 0.7, 0.4, 0.2, 0.08} {
		p := Params{TargetKB: full * frac, Quality: 85, MinScale: 0.1}
		res, err := search(orig, p, zap.NewNop())
		if err != nil {
			t.Fatalf("search(target=%.0f%%) failed: %v", frac*100, err)
		}
		checkResult(t, res, p, orig)

		if res.Outcome != OutcomeSearched && res.Outcome != OutcomeFloor {
			t.Errorf("target=%.0f%%: Outcome = %s", frac*100, res.Outcome)
		}
		if res.Width >= orig.Width {
			t.Errorf("target=%.0f%%: width %d not reduced", frac*100, res.Width)
		}
		if len(res.Probes) != res.Attempts && len(res.Probes) != res.Attempts+1 {
			t.Errorf("target=%.0f%%: %d probes for %d attempts", frac*100, len(res.Probes), res.Attempts)
		}
	}
}

func TestSearch_StopsNearFullScale(t *testing.T) {
	orig := noisyBuffer(t, 160, 160, 3)
	full := baselineKB(t, noisyRGBA(160, 160, 3), 85)

	for _, frac := range []float64{0.99, 0.95, 0.9, 0.8} {
		p := Params{TargetKB: full * frac, Quality: 85, MinScale: 0.1}
		res, err := search(orig, p, zap.NewNop())
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}

		for i, pr := range res.Probes {
			if pr.Fits && pr.Scale >= NearFullScale && i != len(res.Probes)-1 {
				t.Errorf("target=%.0f%%: probe %d fit at scale %v but search continued", frac*100, pr.Attempt, pr.Scale)
			}
		}
	}
}

func TestSearch_GrowsAfterFit(t *testing.T) {
	orig := noisyBuffer(t, 200, 200, 4)
	full := baselineKB(t, noisyRGBA(200, 200, 4), 85)
	p := Params{TargetKB: full * 0.5, Quality: 85, MinScale: 0.1}

	res, err := search(orig, p, zap.NewNop())
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	var best float64
	for i, pr := range res.Probes {
		if i > 0 {
			prev := res.Probes[i-1]
			if prev.Fits && pr.Scale <= prev.Scale {
				t.Errorf("probe %d scale %v did not grow after fitting probe at %v", pr.Attempt, pr.Scale, prev.Scale)
			}
			if !prev.Fits && pr.Scale >= prev.Scale && !pr.Forced {
				t.Errorf("probe %d scale %v did not shrink after overshoot at %v", pr.Attempt, pr.Scale, prev.Scale)
			}
		}
		if pr.Fits && pr.Scale > best {
			best = pr.Scale
		}
	}

	if res.Outcome == OutcomeSearched && res.Scale != best {
		t.Errorf("accepted scale %v, largest fitting probe was %v", res.Scale, best)
	}
}

func TestSearch_Floor(t *testing.T) {
	orig := noisyBuffer(t, 128, 96, 5)
	p := Params{TargetKB: 0.01, Quality: 85, MinScale: 0.1}

	res, err := search(orig, p, zap.NewNop())
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	checkResult(t, res, p, orig)

	if res.Outcome != OutcomeFloor {
		t.Fatalf("Outcome = %s, want floor", res.Outcome)
	}
	if res.Scale != p.MinScale {
		t.Errorf("Scale = %v, want %v", res.Scale, p.MinScale)
	}
	if res.WithinBudget() {
		t.Error("a 10-byte budget should not be met")
	}
	last := res.Probes[len(res.Probes)-1]
	if !last.Forced || last.Scale != p.MinScale {
		t.Errorf("last probe = %+v, want forced probe at min scale", last)
	}
	if w, h := imaging.ScaledSize(128, 96, 0.1); res.Width != w || res.Height != h {
		t.Errorf("floor result is %dx%d, want %dx%d", res.Width, res.Height, w, h)
	}
}

func TestSearch_Exhausted(t *testing.T) {
	orig := noisyBuffer(t, 200, 200, 6)
	// min scale so small the shrink sequence never reaches it
	p := Params{TargetKB: 0.01, Quality: 85, MinScale: 1e-6}

	res, err := search(orig, p, zap.NewNop())
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	checkResult(t, res, p, orig)

	if res.State != StateExhausted || res.Outcome != OutcomeFallback {
		t.Fatalf("State/Outcome = %s/%s, want EXHAUSTED/fallback", res.State, res.Outcome)
	}
	if res.Attempts != MaxAttempts {
		t.Errorf("Attempts = %d, want %d", res.Attempts, MaxAttempts)
	}
	if res.Width != 200 || res.Height != 200 || res.Scale != 1.0 {
		t.Errorf("fallback is %dx%d at scale %v, want original size", res.Width, res.Height, res.Scale)
	}
	if res.SizeKB != res.BaselineKB {
		t.Errorf("fallback SizeKB = %v, baseline %v", res.SizeKB, res.BaselineKB)
	}
}

func TestSearch_ResizesFromOriginal(t *testing.T) {
	orig := noisyBuffer(t, 180, 120, 7)
	before := append([]uint8(nil), orig.Pix...)
	full := baselineKB(t, noisyRGBA(180, 120, 7), 80)
	p := Params{TargetKB: full * 0.3, Quality: 80, MinScale: 0.1}

	res, err := search(orig, p, zap.NewNop())
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if !bytes.Equal(orig.Pix, before) {
		t.Fatal("search modified the original buffer")
	}

	// A single resize of the original must reproduce the output exactly.
	want, err := imaging.EncodeJPEG(imaging.Resize(orig, res.Width, res.Height), p.Quality)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if !bytes.Equal(res.Data, want) {
		t.Error("output differs from a direct resize of the original")
	}
}

func TestSearch_GrayscaleStaysGray(t *testing.T) {
	orig := imaging.FromImage(flatGray(64, 64, 128))
	p := DefaultParams()

	res, err := search(orig, p, zap.NewNop())
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if res.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0", res.Attempts)
	}
	if _, ok := decodeJPEG(t, res.Data).(*image.Gray); !ok {
		t.Error("grayscale input did not produce a grayscale JPEG")
	}
}

func TestSearch_EncodingError(t *testing.T) {
	orig := noisyBuffer(t, 8, 8, 8)
	_, err := search(orig, Params{TargetKB: 1, Quality: 0, MinScale: 0.1}, zap.NewNop())
	var encErr *imaging.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected EncodingError, got %v", err)
	}
}
