package rules

import (
	"runtime"
)

// DetectContext builds a Context for the running host. It is the only function in
// this package reading the environment.
func DetectContext(features map[string]bool) Context {
	ctx := Context{
		OS:        osName(runtime.GOOS),
		Arch:      archName(runtime.GOARCH),
		OSVersion: osVersion(),
	}
	return ctx.WithFeatures(features)
}

func osName(goos string) string {
	switch goos {
	case "windows":
		return OSWindows
	case "darwin":
		return OSMac
	default:
		return OSLinux
	}
}

func archName(goarch string) string {
	switch goarch {
	case "386":
		return ArchX86
	case "arm64":
		return ArchArm64
	case "arm":
		return ArchArm32
	default:
		return ArchX86_64
	}
}
