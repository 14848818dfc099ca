// Package backup archives the wallet data directory and ships it to S3.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mholt/archives"
)

// FileName returns the name of a backup archive taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("xchwallet-backup-%s.tar.gz", t.UTC().Format("2006-01-02-15-04-05"))
}

// Archive writes a gzipped tarball of the contents of dir to w. The
// contents are placed at the root of the archive.
func Archive(ctx context.Context, dir string, w io.Writer) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to read data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	// A trailing separator maps the contents of dir rather than dir itself.
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		filepath.Clean(dir) + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to prepare files for archiving: %w", err)
	}

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, w, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

// ArchiveToFile archives dir into a new file at path.
func ArchiveToFile(ctx context.Context, dir, path string) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	return Archive(ctx, dir, out)
}
