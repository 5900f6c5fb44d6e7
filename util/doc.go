// Package util holds small helpers shared across vidpipe packages.
package util
