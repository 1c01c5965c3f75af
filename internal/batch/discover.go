package batch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/scrub/pkg/errors"
)

// Discovery is the outcome of walking a batch root
type Discovery struct {
	// Files are the candidates to process, in lexical walk order.
	Files []string
	// LeftoverBackups are backup files from an earlier run. Their originals
	// cannot be rewritten until the backup is dealt with.
	LeftoverBackups []string
}

// Discover walks root and collects files whose name ends with one of
// extensions, compared case-insensitively. Files ending with backupSuffix
// are never candidates.
func Discover(root string, extensions []string, backupSuffix string) (*Discovery, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "cannot access batch root").
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrorTypeValidation, "batch root is not a directory").
			WithDetail("path", root)
	}

	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = strings.ToLower(ext)
	}
	suffix := strings.ToLower(backupSuffix)

	d := &Discovery{}
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		name := strings.ToLower(entry.Name())
		if suffix != "" && strings.HasSuffix(name, suffix) {
			if hasExtension(strings.TrimSuffix(name, suffix), exts) {
				d.LeftoverBackups = append(d.LeftoverBackups, path)
			}
			return nil
		}
		if hasExtension(name, exts) {
			d.Files = append(d.Files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "failed to walk batch root").
			WithDetail("path", root)
	}

	return d, nil
}

func hasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
