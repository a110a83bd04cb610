// Package version carries the build version.
package version

// Version is set at build time.
var Version = "dev"
