// Package prayer computes the five daily prayer times of a location, applies
// per-prayer minute offsets and resolves the next upcoming prayer.
//
// Base times come from a Solver; AstronomicalSolver is the built-in one.
// Everything in this package is pure and safe for concurrent use.
package prayer
