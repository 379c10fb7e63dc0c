// Package manifest loads version descriptors and merges inheritance chains.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"

	"craft-keeper/internal/cache"
	"craft-keeper/internal/env"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"
	"craft-keeper/internal/transport"

	"golang.org/x/sync/singleflight"
)

// versionListFile is the offline copy of the last fetched version list.
const versionListFile = "version_manifest_v2.json"

/**
 * Manifest resolver
 * @property {transport.Transport} tr - Remote fetch capability
 * @property {cache.Store} store - Verifies remotely fetched documents
 * @property {string} listURL - Version list location
 * @description
 * - Local versions/<id>/<id>.json wins over the remote copy
 * - Concurrent loads of one id share a single fetch
 */
type Resolver struct {
	tr      transport.Transport
	store   *cache.Store
	listURL string

	group singleflight.Group
	mu    sync.Mutex
	list  *VersionList
}

func NewResolver(tr transport.Transport, store *cache.Store, listURL string) *Resolver {
	return &Resolver{tr: tr, store: store, listURL: listURL}
}

// DescriptorPath is the store path of a version's descriptor.
func DescriptorPath(id string) string {
	return path.Join(env.VersionsDir, id, id+".json")
}

// ClientPath is the store path of a version's client jar.
func ClientPath(id string) string {
	return path.Join(env.VersionsDir, id, id+".jar")
}

/**
 * Resolve a version into one merged descriptor
 * @param {string} id - Version identifier
 * @returns {*VersionDescriptor} Descriptor with every ancestor merged in
 * @description
 * - Walks inheritsFrom iteratively carrying the visited ids
 * - A repeated id fails with CyclicInheritance naming the chain
 * - The first missing or malformed link fails the whole resolution
 */
func (r *Resolver) Resolve(ctx context.Context, id string) (*models.VersionDescriptor, error) {
	if id == "" {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, Err: errors.New("empty version id")}
	}
	if IsAlias(id) {
		list, err := r.ListVersions(ctx)
		if err != nil {
			return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, VersionID: id, Err: err}
		}
		entry, ok := list.Find(id)
		if !ok {
			return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, VersionID: id}
		}
		id = entry.ID
	}
	var chain []*models.VersionDescriptor
	var ids []string
	visited := make(map[string]bool)
	for cur := id; cur != ""; {
		if visited[cur] {
			return nil, &errs.Error{
				Code:      errs.CodeCyclicInheritance,
				VersionID: id,
				Chain:     append(ids, cur),
			}
		}
		visited[cur] = true
		ids = append(ids, cur)

		d, err := r.Load(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, d)
		cur = d.InheritsFrom
	}

	merged := chain[len(chain)-1]
	for i := len(chain) - 2; i >= 0; i-- {
		merged = Merge(merged, chain[i])
	}
	if len(chain) > 1 {
		logger.Debugf("Resolved version '%s' through %v", id, ids)
	}
	return merged, nil
}

// shared runs fn once per key for concurrent callers. fn gets a context that
// ignores cancellation so one caller leaving does not fail the others; each
// caller still returns as soon as its own ctx is done.
func (r *Resolver) shared(ctx context.Context, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	detached := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Load returns the descriptor of id alone, without following its parent.
func (r *Resolver) Load(ctx context.Context, id string) (*models.VersionDescriptor, error) {
	v, err := r.shared(ctx, "descriptor:"+id, func(ctx context.Context) (interface{}, error) {
		data, err := r.descriptorBytes(ctx, id)
		if err != nil {
			return nil, err
		}
		var d models.VersionDescriptor
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &errs.Error{Code: errs.CodeDescriptorParse, VersionID: id, Err: err}
		}
		if d.ID == "" {
			d.ID = id
		}
		return &d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.VersionDescriptor), nil
}

func (r *Resolver) descriptorBytes(ctx context.Context, id string) ([]byte, error) {
	local := r.store.Abs(DescriptorPath(id))
	data, err := os.ReadFile(local)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, VersionID: id, Err: err}
	}

	list, err := r.ListVersions(ctx)
	if err != nil {
		return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, VersionID: id, Err: err}
	}
	entry, ok := list.Find(id)
	if !ok {
		return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, VersionID: id}
	}
	data, err = r.fetchVerified(ctx, entry.URL, DescriptorPath(id), entry.SHA1, 0)
	if err != nil {
		if transport.IsNotFound(err) {
			return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, VersionID: id, Err: err}
		}
		return nil, err
	}
	logger.Infof("Fetched descriptor of version '%s'", id)
	return data, nil
}

/**
 * Fetch a document and keep it in the store
 * @param {string} url - Remote location
 * @param {string} rel - Store path
 * @param {string} sha1sum - Expected checksum, empty when unknown
 * @param {int64} size - Expected size, 0 when unknown
 * @returns {[]byte} Document content
 * @description
 * - A verified copy already in the store is returned without network I/O
 * - Downloaded content must pass VerifyAndRegister before it is returned
 */
func (r *Resolver) fetchVerified(ctx context.Context, url, rel, sha1sum string, size int64) ([]byte, error) {
	abs := r.store.Abs(rel)
	if sha1sum != "" {
		if e, ok := r.store.Lookup(rel); ok && cache.Matches(e, sha1sum, size) {
			if data, err := os.ReadFile(abs); err == nil {
				return data, nil
			}
		}
	}
	data, err := r.tr.Fetch(ctx, url)
	if err != nil {
		return nil, &errs.Error{Code: errs.CodeTransportFailure, Artifact: url, Path: rel, Err: err}
	}
	if err := writeFileAtomic(abs, data); err != nil {
		return nil, err
	}
	if err := r.store.VerifyAndRegister(rel, sha1sum, size); err != nil {
		os.Remove(abs)
		return nil, err
	}
	return data, nil
}

/**
 * Get the remote version list
 * @returns {*VersionList} The list, fetched once per resolver
 * @description
 * - On transport failure the last saved copy under versions/ is used
 */
func (r *Resolver) ListVersions(ctx context.Context) (*VersionList, error) {
	r.mu.Lock()
	if r.list != nil {
		l := r.list
		r.mu.Unlock()
		return l, nil
	}
	r.mu.Unlock()

	v, err := r.shared(ctx, "list", func(ctx context.Context) (interface{}, error) {
		saved := r.store.Abs(path.Join(env.VersionsDir, versionListFile))
		data, err := r.tr.Fetch(ctx, r.listURL)
		if err != nil {
			cached, rerr := os.ReadFile(saved)
			if rerr != nil {
				return nil, &errs.Error{Code: errs.CodeTransportFailure, Artifact: r.listURL, Err: err}
			}
			logger.Warnf("Version list unavailable (%v), using saved copy", err)
			data = cached
		} else if werr := writeFileAtomic(saved, data); werr != nil {
			logger.Warnf("Save version list failed: %v", werr)
		}
		var list VersionList
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, &errs.Error{Code: errs.CodeDescriptorParse, Artifact: r.listURL, Err: err}
		}
		r.mu.Lock()
		r.list = &list
		r.mu.Unlock()
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*VersionList), nil
}

// Refresh drops the memoized version list.
func (r *Resolver) Refresh() {
	r.mu.Lock()
	r.list = nil
	r.mu.Unlock()
}

// AssetIndexPath is the store path of an asset index document.
func AssetIndexPath(id string) string {
	return path.Join(env.AssetsDir, "indexes", id+".json")
}

/**
 * Load an asset index
 * @param {*AssetIndexRef} ref - Reference from the descriptor
 * @returns {*AssetIndex} Parsed index with object names in document order
 */
func (r *Resolver) LoadAssetIndex(ctx context.Context, ref *models.AssetIndexRef) (*models.AssetIndex, error) {
	if ref == nil || ref.ID == "" {
		return nil, &errs.Error{Code: errs.CodeInvalidInput, Err: errors.New("descriptor has no asset index")}
	}
	v, err := r.shared(ctx, "assets:"+ref.ID, func(ctx context.Context) (interface{}, error) {
		rel := AssetIndexPath(ref.ID)
		var data []byte
		var err error
		if ref.URL == "" {
			data, err = os.ReadFile(r.store.Abs(rel))
			if err != nil {
				return nil, &errs.Error{Code: errs.CodeDescriptorNotFound, Artifact: ref.ID, Path: rel, Err: err}
			}
		} else {
			data, err = r.fetchVerified(ctx, ref.URL, rel, ref.SHA1, ref.Size)
			if err != nil {
				return nil, err
			}
		}
		var idx models.AssetIndex
		if err := json.Unmarshal(data, &idx); err != nil {
			return nil, &errs.Error{Code: errs.CodeDescriptorParse, Artifact: ref.ID, Path: rel, Err: err}
		}
		return &idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AssetIndex), nil
}

func writeFileAtomic(p string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := p + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename '%s': %w", tmp, err)
	}
	return nil
}
