// version.go

package talon

// Version is the interpreter release version, surfaced as sys.version.
const Version = "0.3.0"
