// Package filesystem stores queue snapshots as a JSON file next to the
// images being analyzed.
package filesystem
