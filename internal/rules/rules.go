// Package rules decides whether conditional entries (libraries, arguments,
// natives) apply to a platform. Evaluation is pure: everything it depends on is
// carried by Context.
package rules

import (
	"regexp"
	"strings"
	"sync"

	"craft-keeper/internal/models"
)

// OS names and architectures use the descriptor vocabulary.
const (
	OSWindows = "windows"
	OSMac     = "osx"
	OSLinux   = "linux"

	ArchX86    = "x86"
	ArchX86_64 = "x86_64"
	ArchArm64  = "arm64"
	ArchArm32  = "arm32"
)

// Well known feature flags.
const (
	FeatureDemoUser         = "is_demo_user"
	FeatureCustomResolution = "has_custom_resolution"
	FeatureQuickPlays       = "has_quick_plays_support"
)

// Context is the platform a rule list is evaluated against.
type Context struct {
	OS        string
	OSVersion string
	Arch      string
	Features  map[string]bool
}

// WithFeatures returns a copy of c with the given flags set.
func (c Context) WithFeatures(flags map[string]bool) Context {
	merged := make(map[string]bool, len(c.Features)+len(flags))
	for k, v := range c.Features {
		merged[k] = v
	}
	for k, v := range flags {
		merged[k] = v
	}
	c.Features = merged
	return c
}

// Bits returns "64" or "32", the value substituted for ${arch} in native classifiers.
func (c Context) Bits() string {
	switch c.Arch {
	case ArchX86, ArchArm32:
		return "32"
	default:
		return "64"
	}
}

// NativeClassifier returns the classifier for c's OS from a library's natives map.
func (c Context) NativeClassifier(natives map[string]string) (string, bool) {
	cls, ok := natives[c.OS]
	if !ok || cls == "" {
		return "", false
	}
	return strings.ReplaceAll(cls, "${arch}", c.Bits()), true
}

// Applies evaluates rules in declaration order. The action of the last rule whose
// conditions all match decides; with no rules, or no matching rule, the entry is
// included.
func Applies(rules []models.Rule, ctx Context) bool {
	action := models.ActionAllow
	for i := range rules {
		if matches(&rules[i], ctx) {
			action = rules[i].Action
		}
	}
	return action != models.ActionDisallow
}

func matches(r *models.Rule, ctx Context) bool {
	if r.OS != nil {
		if r.OS.Name != "" && r.OS.Name != ctx.OS {
			return false
		}
		if r.OS.Arch != "" && !strings.EqualFold(r.OS.Arch, ctx.Arch) {
			return false
		}
		if r.OS.Version != "" && !versionMatches(r.OS.Version, ctx.OSVersion) {
			return false
		}
	}
	for name, want := range r.Features {
		if ctx.Features[name] != want {
			return false
		}
	}
	return true
}

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// An invalid pattern never matches.
func versionMatches(pattern, version string) bool {
	patternMu.Lock()
	re, ok := patternCache[pattern]
	if !ok {
		re, _ = regexp.Compile(pattern)
		patternCache[pattern] = re
	}
	patternMu.Unlock()
	if re == nil {
		return false
	}
	return re.MatchString(version)
}
