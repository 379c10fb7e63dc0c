package manifest

import (
	"time"
)

// VersionEntry is one row of the remote version list.
type VersionEntry struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	URL             string    `json:"url"`
	SHA1            string    `json:"sha1,omitempty"`
	Time            time.Time `json:"time,omitempty"`
	ReleaseTime     time.Time `json:"releaseTime,omitempty"`
	ComplianceLevel int       `json:"complianceLevel,omitempty"`
}

type Latest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

// VersionList is the remote index of every published version, newest first.
type VersionList struct {
	Latest   Latest         `json:"latest"`
	Versions []VersionEntry `json:"versions"`
}

const (
	AliasLatestRelease  = "latest-release"
	AliasLatestSnapshot = "latest-snapshot"
)

// IsAlias reports whether id names a moving version rather than a fixed one.
func IsAlias(id string) bool {
	return id == AliasLatestRelease || id == AliasLatestSnapshot
}

// Find returns the entry for id. "latest-release" and "latest-snapshot" are aliases.
func (l *VersionList) Find(id string) (VersionEntry, bool) {
	switch id {
	case AliasLatestRelease:
		id = l.Latest.Release
	case AliasLatestSnapshot:
		id = l.Latest.Snapshot
	}
	for _, v := range l.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return VersionEntry{}, false
}

// Filter returns the entries of one type ("release", "snapshot", ...), all when typ is empty.
func (l *VersionList) Filter(typ string) []VersionEntry {
	if typ == "" {
		return l.Versions
	}
	var out []VersionEntry
	for _, v := range l.Versions {
		if v.Type == typ {
			out = append(out, v)
		}
	}
	return out
}
