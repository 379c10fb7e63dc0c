// Package planner turns a merged descriptor into the flat list of files a
// version needs on disk.
package planner

import (
	"context"
	"fmt"
	"path"
	"strings"

	"craft-keeper/internal/env"
	"craft-keeper/internal/errs"
	"craft-keeper/internal/logger"
	"craft-keeper/internal/manifest"
	"craft-keeper/internal/models"
	"craft-keeper/internal/rules"
)

// AssetIndexLoader provides the secondary manifest listing a version's assets.
type AssetIndexLoader interface {
	LoadAssetIndex(ctx context.Context, ref *models.AssetIndexRef) (*models.AssetIndex, error)
}

/**
 * Artifact planner
 * @property {AssetIndexLoader} assets - Asset index source, nil plans no assets
 * @property {string} librariesURL - Maven repository for libraries without a url
 * @property {string} resourcesURL - Base URL of hash addressed asset objects
 */
type Planner struct {
	assets       AssetIndexLoader
	librariesURL string
	resourcesURL string
}

func New(assets AssetIndexLoader, librariesURL, resourcesURL string) *Planner {
	return &Planner{
		assets:       assets,
		librariesURL: strings.TrimRight(librariesURL, "/"),
		resourcesURL: strings.TrimRight(resourcesURL, "/"),
	}
}

// AssetObjectPath is the store path of an asset object, sharded by the first two hex characters.
func AssetObjectPath(hash string) string {
	return path.Join(env.AssetsDir, "objects", hash[:2], hash)
}

type planBuilder struct {
	tasks  []models.DownloadTask
	byPath map[string]int
}

// add appends t unless a task with the same path and checksum already exists.
// The same path with two different checksums is a conflict.
func (b *planBuilder) add(t models.DownloadTask) error {
	if i, ok := b.byPath[t.Path]; ok {
		prev := &b.tasks[i]
		switch {
		case strings.EqualFold(prev.SHA1, t.SHA1):
		case prev.SHA1 == "":
			prev.SHA1, prev.Size = t.SHA1, t.Size
		case t.SHA1 == "":
		default:
			return &errs.Error{
				Code:     errs.CodePlanConflict,
				Artifact: t.Identity,
				Path:     t.Path,
				Expected: prev.SHA1,
				Actual:   t.SHA1,
			}
		}
		return nil
	}
	b.byPath[t.Path] = len(b.tasks)
	b.tasks = append(b.tasks, t)
	return nil
}

/**
 * Plan the downloads of a merged descriptor
 * @param {*VersionDescriptor} desc - Fully merged descriptor
 * @param {rules.Context} rctx - Platform the plan is for
 * @returns {*DownloadPlan} Libraries, natives, client jar, then assets
 * @description
 * - Libraries whose rules exclude rctx are skipped along with their natives
 * - Identical (path, sha1) pairs collapse into one task
 * - Planning twice with the same input yields the same plan
 */
func (p *Planner) Plan(ctx context.Context, desc *models.VersionDescriptor, rctx rules.Context) (*models.DownloadPlan, error) {
	b := &planBuilder{byPath: make(map[string]int)}
	var natives []models.DownloadTask

	for i := range desc.Libraries {
		l := &desc.Libraries[i]
		if !rules.Applies(l.Rules, rctx) {
			continue
		}
		primary, ok, err := p.libraryTask(l)
		if err != nil {
			return nil, err
		}
		if ok {
			if err := b.add(primary); err != nil {
				return nil, err
			}
		}
		native, ok, err := p.nativeTask(l, rctx)
		if err != nil {
			return nil, err
		}
		if ok {
			natives = append(natives, native)
		}
	}
	for _, t := range natives {
		if err := b.add(t); err != nil {
			return nil, err
		}
	}

	if desc.Downloads != nil && desc.Downloads.Client != nil {
		c := desc.Downloads.Client
		if err := b.add(models.DownloadTask{
			Kind:     models.KindClient,
			Identity: desc.ID,
			URL:      c.URL,
			Path:     manifest.ClientPath(desc.ID),
			SHA1:     c.SHA1,
			Size:     c.Size,
		}); err != nil {
			return nil, err
		}
	}

	plan := &models.DownloadPlan{VersionID: desc.ID}
	if desc.AssetIndex != nil && p.assets != nil {
		plan.AssetIndexID = desc.AssetIndex.ID
		idx, err := p.assets.LoadAssetIndex(ctx, desc.AssetIndex)
		if err != nil {
			return nil, err
		}
		if err := p.addAssets(b, idx); err != nil {
			return nil, err
		}
	}
	plan.Tasks = b.tasks
	logger.Debugf("Planned %d tasks for version '%s'", len(plan.Tasks), desc.ID)
	return plan, nil
}

func (p *Planner) addAssets(b *planBuilder, idx *models.AssetIndex) error {
	seen := make(map[string]bool, len(idx.Names))
	for _, name := range idx.Names {
		obj := idx.Objects[name]
		hash := strings.ToLower(obj.Hash)
		// 哈希直接进入存储路径，只接受完整的SHA-1
		if !models.IsSHA1Hex(hash) {
			return &errs.Error{Code: errs.CodeDescriptorParse, Artifact: name, Err: fmt.Errorf("invalid asset hash %q", obj.Hash)}
		}
		if seen[hash] {
			continue
		}
		seen[hash] = true
		if err := b.add(models.DownloadTask{
			Kind:     models.KindAsset,
			Identity: hash,
			URL:      p.resourcesURL + "/" + hash[:2] + "/" + hash,
			Path:     AssetObjectPath(hash),
			SHA1:     hash,
			Size:     obj.Size,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) libraryTask(l *models.Library) (models.DownloadTask, bool, error) {
	if l.Downloads != nil {
		a := l.Downloads.Artifact
		if a == nil {
			// natives only entry
			return models.DownloadTask{}, false, nil
		}
		rel, err := p.artifactPath(l, a.Path, "")
		if err != nil {
			return models.DownloadTask{}, false, err
		}
		return models.DownloadTask{
			Kind:     models.KindLibrary,
			Identity: l.Name,
			URL:      a.URL,
			Path:     rel,
			SHA1:     a.SHA1,
			Size:     a.Size,
		}, true, nil
	}
	if len(l.Natives) > 0 {
		return models.DownloadTask{}, false, nil
	}
	return p.mavenTask(l, models.KindLibrary, "")
}

func (p *Planner) nativeTask(l *models.Library, rctx rules.Context) (models.DownloadTask, bool, error) {
	cls, ok := rctx.NativeClassifier(l.Natives)
	if !ok {
		return models.DownloadTask{}, false, nil
	}
	if l.Downloads == nil {
		t, ok, err := p.mavenTask(l, models.KindNative, cls)
		t.Extract = l.Extract
		return t, ok, err
	}
	a, ok := l.Downloads.Classifiers[cls]
	if !ok {
		logger.Debugf("Library '%s' declares no '%s' classifier", l.Name, cls)
		return models.DownloadTask{}, false, nil
	}
	rel, err := p.artifactPath(l, a.Path, cls)
	if err != nil {
		return models.DownloadTask{}, false, err
	}
	return models.DownloadTask{
		Kind:     models.KindNative,
		Identity: l.Name + ":" + cls,
		URL:      a.URL,
		Path:     rel,
		SHA1:     a.SHA1,
		Size:     a.Size,
		Extract:  l.Extract,
	}, true, nil
}

// mavenTask derives location and path from the coordinate. No checksum is published.
func (p *Planner) mavenTask(l *models.Library, kind models.ArtifactKind, classifier string) (models.DownloadTask, bool, error) {
	coord, err := models.ParseCoordinate(l.Name)
	if err != nil {
		return models.DownloadTask{}, false, &errs.Error{Code: errs.CodeDescriptorParse, Artifact: l.Name, Err: err}
	}
	base := strings.TrimRight(l.URL, "/")
	if base == "" {
		base = p.librariesURL
	}
	repoPath := coord.Path(classifier)
	identity := l.Name
	if classifier != "" {
		identity += ":" + classifier
	}
	return models.DownloadTask{
		Kind:     kind,
		Identity: identity,
		URL:      base + "/" + repoPath,
		Path:     path.Join(env.LibrariesDir, repoPath),
	}, true, nil
}

// artifactPath places a library file under libraries/, deriving the repository
// path from the coordinate when the descriptor omits it.
func (p *Planner) artifactPath(l *models.Library, declared, classifier string) (string, error) {
	if declared == "" {
		coord, err := models.ParseCoordinate(l.Name)
		if err != nil {
			return "", &errs.Error{Code: errs.CodeDescriptorParse, Artifact: l.Name, Err: err}
		}
		declared = coord.Path(classifier)
	}
	clean := path.Clean("/" + declared)[1:]
	if clean == "" || clean != strings.TrimPrefix(declared, "/") {
		return "", &errs.Error{Code: errs.CodeDescriptorParse, Artifact: l.Name, Path: declared, Err: fmt.Errorf("invalid artifact path")}
	}
	return path.Join(env.LibrariesDir, clean), nil
}
