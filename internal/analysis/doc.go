// Package analysis runs the report as an ordered list of stages.
//
// Each stage reads what earlier stages left in a shared State and adds its
// own results:
//
//	load → describe → correlate → prep → tidy → render → export → report
//
// The Runner executes stages sequentially and stops at the first failure.
// Every stage gets a span and a duration metric, and its outcome is
// recorded in a Manifest saved next to the outputs. The manifest also lists
// each artifact with its size and BLAKE2b-256 checksum so a finished run
// can be verified later with Manifest.Verify.
package analysis
