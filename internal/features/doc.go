// Package features defines the calculator contracts used by the model to
// derive numbers from spots and tracks, and ships the default calculators.
//
// Spot features are sparse: each spot carries a map and a calculator writes
// only the keys it owns. Spot calculators run once per frame and receive the
// frame's pixel data as a gonum matrix, so a model can fan frames out to a
// worker pool.
//
// Track features are dense: one float64 slot per TrackFeature ordinal, with
// a presence mask. Track calculators see a whole connected component at a
// time.
package features
