// Package version holds build-time identity constants for the process.
package version

var (
	ProgramName = "modbusgw"
	ProductName = "Modbus Gateway"
	Version     = "dev"
	BUILDTIME   = "unknown"
	CommitSHA   = "unknown"
)
