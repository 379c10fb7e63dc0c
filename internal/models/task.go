package models

import (
	"time"
)

type ArtifactKind string

const (
	KindLibrary    ArtifactKind = "library"
	KindNative     ArtifactKind = "native"
	KindClient     ArtifactKind = "client"
	KindAsset      ArtifactKind = "asset"
	KindAssetIndex ArtifactKind = "asset-index"
	KindDescriptor ArtifactKind = "descriptor"
)

/**
 * One file to acquire
 * @property {ArtifactKind} kind - library/native/client/asset
 * @property {string} identity - Library coordinate, asset hash or version id
 * @property {string} url - Remote location
 * @property {string} path - Destination relative to the cache root, slash separated
 * @property {string} sha1 - Expected content hash, empty when the source publishes none
 * @property {int64} size - Expected byte size, 0 when unknown
 * @property {int} retries - Attempts consumed so far
 */
type DownloadTask struct {
	Kind     ArtifactKind  `json:"kind"`
	Identity string        `json:"identity"`
	URL      string        `json:"url"`
	Path     string        `json:"path"`
	SHA1     string        `json:"sha1,omitempty"`
	Size     int64         `json:"size,omitempty"`
	Retries  int           `json:"retries,omitempty"`
	Extract  *ExtractRules `json:"extract,omitempty"`
}

// DownloadPlan is the ordered, deduplicated list of tasks for one version:
// libraries, natives, client jar, then assets.
type DownloadPlan struct {
	VersionID    string         `json:"version"`
	AssetIndexID string         `json:"assetIndex,omitempty"`
	Tasks        []DownloadTask `json:"tasks"`
}

// ByKind returns the plan's tasks of one kind, in plan order.
func (p *DownloadPlan) ByKind(kind ArtifactKind) []DownloadTask {
	var out []DownloadTask
	for _, t := range p.Tasks {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

// TotalSize sums the expected sizes of all tasks.
func (p *DownloadPlan) TotalSize() int64 {
	var n int64
	for _, t := range p.Tasks {
		n += t.Size
	}
	return n
}

/**
 * Verified file record
 * @property {string} path - Path relative to the cache root
 * @property {string} sha1 - Checksum recorded at verification
 * @property {int64} size - Size recorded at verification
 * @property {time.Time} verifiedAt - Advisory only, never used to decide validity
 */
type CacheEntry struct {
	Path       string    `json:"path"`
	SHA1       string    `json:"sha1"`
	Size       int64     `json:"size"`
	VerifiedAt time.Time `json:"verified"`
}
