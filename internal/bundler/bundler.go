package bundler

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/coecms/mdssprep/internal/filesystem"
	"github.com/coecms/mdssprep/pkg/models"
	"go.uber.org/zap"
)

// Bundler writes and verifies the tar archives a plan calls for.
type Bundler struct {
	logger *zap.Logger

	// DryRun plans only; nothing is written.
	DryRun bool
	// RemoveOriginal deletes bundled files after their archive
	// verifies. Verification is not optional; removal is.
	RemoveOriginal bool

	// OnVerified runs after a bundle verifies and before any originals
	// are removed, while member content is still in place. The
	// manifest hooks in here.
	OnVerified func(*Bundle) error
}

// Result summarizes one executed plan.
type Result struct {
	BundlesWritten int
	FilesBundled   int
	FilesRemoved   int
	BundledSize    int64 // member bytes before compression
	ArchiveSize    int64 // bytes on disk after compression
}

// NewBundler creates a new bundler
func NewBundler(logger *zap.Logger) *Bundler {
	return &Bundler{logger: logger}
}

// Execute writes every bundle in the plan, verifies each against its
// embedded checksums, and optionally removes the originals. A bundle
// that fails verification is deleted and its originals are left
// untouched.
func (b *Bundler) Execute(plan *Plan) (*Result, error) {
	res := &Result{}

	for _, bundle := range plan.Bundles {
		if len(bundle.Members) == 0 {
			continue
		}

		if b.DryRun {
			b.logger.Info("Would create archive (dry run)",
				zap.String("path", bundle.Path),
				zap.Int("members", len(bundle.Members)),
				zap.Int64("size", bundle.Size))
			res.BundlesWritten++
			res.FilesBundled += len(bundle.Members)
			res.BundledSize += bundle.Size
			// Worst case: no compression gain.
			res.ArchiveSize += bundle.Size
			continue
		}

		if err := b.write(bundle); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", bundle.Path, err)
		}

		ok, err := Verify(bundle.Path)
		if err != nil || !ok {
			os.Remove(bundle.Path)
			if err == nil {
				err = fmt.Errorf("checksum mismatch")
			}
			return res, fmt.Errorf("verification failed for %s: %w", bundle.Path, err)
		}

		info, err := os.Stat(bundle.Path)
		if err != nil {
			return res, fmt.Errorf("failed to stat %s: %w", bundle.Path, err)
		}

		res.BundlesWritten++
		res.FilesBundled += len(bundle.Members)
		res.BundledSize += bundle.Size
		res.ArchiveSize += info.Size()

		if b.OnVerified != nil {
			if err := b.OnVerified(bundle); err != nil {
				return res, err
			}
		}

		b.logger.Info("Created archive",
			zap.String("path", bundle.Path),
			zap.Int("members", len(bundle.Members)),
			zap.Int64("size", info.Size()))

		if b.RemoveOriginal {
			for _, m := range bundle.Members {
				if err := os.Remove(m.Path); err != nil {
					b.logger.Warn("Failed to remove original",
						zap.String("path", m.Path), zap.Error(err))
					continue
				}
				res.FilesRemoved++
			}
		}
	}

	return res, nil
}

// write creates the archive file for one bundle. Member names are
// flattened to base names; each member carries its md5 digest in a PAX
// header.
func (b *Bundler) write(bundle *Bundle) error {
	f, err := os.Create(bundle.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	var tw *tar.Writer
	if bundle.Compress {
		gz := gzip.NewWriter(f)
		defer gz.Close()
		tw = tar.NewWriter(gz)
	} else {
		tw = tar.NewWriter(f)
	}
	defer tw.Close()

	for _, m := range bundle.Members {
		if err := addMember(tw, m); err != nil {
			return fmt.Errorf("failed to add %s: %w", m.Path, err)
		}
	}

	return nil
}

// addMember writes one file into the archive with its checksum
// recorded in the PAX headers.
func addMember(tw *tar.Writer, m *models.Entry) error {
	digest, err := filesystem.FullHash(m.Path)
	if err != nil {
		return err
	}

	info, err := os.Stat(m.Path)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = m.Name
	hdr.Format = tar.FormatPAX
	hdr.PAXRecords = map[string]string{"md5": digest}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	f, err := os.Open(m.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return err
	}

	return nil
}

// Verify re-reads an archive and checks every member against its PAX
// md5 header. It short-circuits on the first mismatch.
func Verify(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return false, err
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, err
		}

		want, ok := hdr.PAXRecords["md5"]
		if !ok {
			return false, fmt.Errorf("member %s has no md5 header", hdr.Name)
		}

		got, err := filesystem.HashStream(tr)
		if err != nil {
			return false, err
		}
		if got != want {
			return false, nil
		}
	}

	return true, nil
}
