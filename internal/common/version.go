package common

// Set at build time via -ldflags.
var (
	version = "dev"
	build   = "unknown"
)

func GetVersion() string { return version }

func GetBuild() string { return build }
