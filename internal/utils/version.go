package utils

// build metadata, injected via -ldflags at release time
var (
	SoftwareVer   = "dev"
	BuildTime     = ""
	BuildTag      = ""
	BuildCommitId = ""
)
