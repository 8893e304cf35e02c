// Package triangulate recovers 3D fiducial marker positions from 2D
// detections in several calibrated cameras.
//
// Per marker the pipeline runs:
//
//  1. Pair     – linear (DLT) triangulation for every unordered camera pair
//  2. Aggregate – median-gated mean of the pairwise candidates
//  3. Score    – reprojection error, confidence and quality label
//
// Triangulator.Run groups observations by marker and maps the pipeline over
// markers on a bounded worker pool. Camera models are shared read-only;
// each marker writes exactly one result slot, so no locking is needed.
//
// Expected failures (degenerate pairs, too few cameras, all candidates
// rejected, reprojection error over the limit) are values, not panics: a
// marker either yields a MarkerResult or a Rejection naming the stage that
// dropped it.
package triangulate
