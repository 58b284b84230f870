package bundler

import (
	"fmt"
	"path/filepath"

	"github.com/coecms/mdssprep/internal/config"
	"github.com/coecms/mdssprep/internal/rules"
	"github.com/coecms/mdssprep/pkg/models"
	"golang.org/x/crypto/blake2b"
)

// Bundle is one planned tar archive: small ready files from a single
// directory, capped at the policy's maximum archive size.
type Bundle struct {
	Dir      string          // directory the members come from
	Name     string          // archive file name
	Path     string          // full path the archive will be written to
	Members  []*models.Entry // files to add, in walk order
	Size     int64           // sum of member sizes before compression
	Compress bool            // gzip the archive

	// Members detected as already internally compressed (netCDF/HDF5)
	Uncompressible int
}

// Plan is the outcome of candidate selection: files to submit
// individually and the bundles to build from the rest.
type Plan struct {
	Passthrough []*models.Entry // individual archive candidates
	Bundles     []*Bundle
}

// TotalMembers returns the number of files across all bundles.
func (p *Plan) TotalMembers() int {
	n := 0
	for _, b := range p.Bundles {
		n += len(b.Members)
	}
	return n
}

// BuildPlan partitions the ready files of a scan. Files at or above
// min_file_size become individual candidates; smaller files (and any
// file matching an include pattern, regardless of size) are grouped
// per directory into bundles that are cut whenever they would exceed
// max_archive_size. Grouping follows walk order, so the plan for an
// unchanged tree is reproducible.
func BuildPlan(result *models.ScanResult, cfg *config.Config) (*Plan, error) {
	plan := &Plan{}

	minSize := cfg.MinFileSizeBytes()
	maxArchive := cfg.MaxArchiveSizeBytes()
	gzip := cfg.Compress == "gz"

	// Open bundle per directory, cut on overflow.
	open := make(map[string]*Bundle)
	counts := make(map[string]int)

	for _, ce := range result.ReadyEntries() {
		entry := ce.Entry
		if entry.Kind != models.KindFile {
			continue
		}

		forced := rules.MatchAny(cfg.IncludePatterns, entry)
		if entry.Size >= minSize && !forced {
			plan.Passthrough = append(plan.Passthrough, entry)
			continue
		}

		dir := filepath.Dir(entry.Path)
		b := open[dir]
		if b != nil && b.Size+entry.Size > maxArchive {
			plan.Bundles = append(plan.Bundles, b)
			b = nil
		}
		if b == nil {
			counts[dir]++
			name, err := bundleName(dir, counts[dir], gzip)
			if err != nil {
				return nil, err
			}
			b = &Bundle{
				Dir:      dir,
				Name:     name,
				Path:     filepath.Join(dir, name),
				Compress: gzip,
			}
			open[dir] = b
		}

		b.Members = append(b.Members, entry)
		b.Size += entry.Size
		if ok, _ := rules.IsUncompressible(entry.Path); ok {
			b.Uncompressible++
		}
	}

	// Flush open bundles in deterministic (walk) order via the count
	// map's directories sorted through the bundles already collected.
	for _, ce := range result.ReadyEntries() {
		dir := filepath.Dir(ce.Entry.Path)
		if b, ok := open[dir]; ok && len(b.Members) > 0 {
			plan.Bundles = append(plan.Bundles, b)
			delete(open, dir)
		}
	}

	// A bundle of files that are all internally compressed gains
	// nothing from gzip; write it as a plain tar.
	for _, b := range plan.Bundles {
		if b.Compress && b.Uncompressible == len(b.Members) {
			b.Compress = false
			name, err := bundleName(b.Dir, bundleNumber(b.Name), false)
			if err != nil {
				return nil, err
			}
			b.Name = name
			b.Path = filepath.Join(b.Dir, name)
		}
	}

	return plan, nil
}

// bundleName builds the archive file name from a short hash of the
// directory path and a running archive number.
func bundleName(dir string, n int, gzip bool) (string, error) {
	h, err := hashDir(dir)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("archive_%s_%03d.tar", h, n)
	if gzip {
		name += ".gz"
	}
	return name, nil
}

// hashDir returns a 6-byte blake2b hex digest of the directory path,
// uniquely identifying which directory a bundle came from.
func hashDir(dir string) (string, error) {
	h, err := blake2b.New(6, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create hash: %w", err)
	}
	h.Write([]byte(dir))
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// bundleNumber extracts the running number from a bundle name.
func bundleNumber(name string) int {
	var h string
	var n int
	fmt.Sscanf(name, "archive_%12s_%03d.tar", &h, &n)
	return n
}
