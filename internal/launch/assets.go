package launch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"craft-keeper/internal/env"
	"craft-keeper/internal/models"
)

// VirtualAssetsDir is the name addressed asset tree of pre-1.7 indexes.
func VirtualAssetsDir(root, indexID string) string {
	return filepath.Join(root, env.AssetsDir, "virtual", indexID)
}

/**
 * Materialize a legacy asset index
 * @param {*AssetIndex} idx - Index whose objects are verified under assets/objects
 * @param {string} root - Cache root
 * @param {string} dest - Name addressed destination (virtual dir or <game>/resources)
 * @returns {int} Number of files copied
 * @description
 * - Only indexes flagged virtual or map_to_resources need this
 * - Files already present with the right size are left alone
 */
func MaterializeAssets(idx *models.AssetIndex, root, dest string) (int, error) {
	n := 0
	for _, name := range idx.Names {
		obj := idx.Objects[name]
		if !models.IsSHA1Hex(obj.Hash) {
			continue
		}
		target := filepath.Join(dest, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(dest)+string(filepath.Separator)) {
			return n, fmt.Errorf("asset name %q escapes %s", name, dest)
		}
		if fi, err := os.Stat(target); err == nil && fi.Size() == obj.Size {
			continue
		}
		src := filepath.Join(root, env.AssetsDir, "objects", obj.Hash[:2], obj.Hash)
		if err := copyFile(src, target); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
