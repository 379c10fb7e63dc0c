//go:build !linux && !darwin && !freebsd && !windows

package rules

func osVersion() string {
	return ""
}
