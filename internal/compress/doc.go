// Package compress re-encodes images as JPEG within a kilobyte budget.
//
// The image is first encoded at full size. If that already fits it is
// returned unchanged in dimensions. Otherwise a bounded search over a single
// linear scale factor looks for the largest size that fits:
//
//   - the first guess is sqrt(target/baseline) damped by 0.9 and clamped to
//     the minimum scale
//   - a fitting probe is kept and the scale grows by 5% (capped at 1) unless
//     it is already at 0.95 or above
//   - a probe that overshoots after a fit ends the search with the last fit
//   - otherwise the scale shrinks by 10%; once that would go below the
//     minimum scale a final probe at the minimum is accepted regardless of size
//
// At most ten probes run. Every probe resizes from the original pixels, never
// from a previous probe. When all ten overshoot without a fit, the full-size
// encode is returned.
//
// 1 KB is 1024 bytes throughout.
package compress
