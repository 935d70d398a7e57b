// Package batch reads batch files listing the sessions to generate in one
// run.
package batch
