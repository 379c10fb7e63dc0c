package launch

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"craft-keeper/internal/logger"
	"craft-keeper/internal/models"

	"github.com/klauspost/compress/zip"
)

/**
 * Unpack the native jars of a plan
 * @param {*DownloadPlan} plan - Plan whose native tasks are verified on disk
 * @param {string} dir - Destination, usually Builder.NativesDir
 * @returns {int} Number of files written
 * @description
 * - Entries matching a task's extract.exclude prefixes are skipped
 * - Existing files are overwritten so a stale extraction never survives
 */
func (b *Builder) ExtractNatives(plan *models.DownloadPlan, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}
	total := 0
	for _, t := range plan.ByKind(models.KindNative) {
		var exclude []string
		if t.Extract != nil {
			exclude = t.Extract.Exclude
		}
		n, err := extractJar(b.abs(t.Path), dir, exclude)
		if err != nil {
			return total, fmt.Errorf("extract '%s': %w", t.Identity, err)
		}
		total += n
	}
	if total > 0 {
		logger.Debugf("Extracted %d native files into %s", total, dir)
	}
	return total, nil
}

func extractJar(jar, dir string, exclude []string) (int, error) {
	r, err := zip.OpenReader(jar)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for _, f := range r.File {
		name := f.Name
		if f.FileInfo().IsDir() || excluded(name, exclude) {
			continue
		}
		clean := path.Clean("/" + name)[1:]
		if clean == "" || clean != strings.TrimPrefix(name, "/") {
			return n, fmt.Errorf("unsafe entry %q", name)
		}
		dest := filepath.Join(dir, filepath.FromSlash(clean))
		if err := writeEntry(f, dest); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
