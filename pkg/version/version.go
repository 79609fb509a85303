// pkg/version/version.go
package version

// Version is the module version reported by the task and the ops listener.
// Overridden at build time via -ldflags "-X .../pkg/version.Version=...".
var Version = "1.2.0"
