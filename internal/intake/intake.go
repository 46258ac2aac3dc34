// Package intake enumerates candidate announcement folders for a site and
// applies the idempotency gate: folders that already have a stored record
// are filtered out unless the run forces reprocessing.
package intake

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/bizscrape/grant-pipeline/internal/domain"
	"github.com/bizscrape/grant-pipeline/internal/observability"
)

// Store is the read side of the idempotency gate, loaded once before
// fan-out.
type Store interface {
	ListFolderNames(ctx context.Context, siteCode string) ([]string, error)
}

// Options configures one intake scan.
type Options struct {
	SiteRoot       string
	SiteCode       string
	Recursive      bool
	Force          bool
	AttachForce    bool
	PrimaryName    string
	AttachmentsDir string
}

// Gate builds the ordered, deduplicated work list for a site.
type Gate struct {
	store  Store
	logger *zerolog.Logger
}

// NewGate builds an intake gate over the given store.
func NewGate(store Store, logger *zerolog.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// Scan enumerates candidates and filters already-processed folders. A
// missing site directory yields an empty list and a logged error, never a
// fatal abort.
func (g *Gate) Scan(ctx context.Context, opts Options) ([]domain.WorkItem, error) {
	var (
		candidates []candidate
		err        error
	)

	if opts.Recursive {
		candidates, err = scanRecursive(opts)
	} else {
		candidates, err = scanChildren(opts.SiteRoot)
	}

	if err != nil {
		g.logger.Error().Err(err).Str("site_root", opts.SiteRoot).Msg("site directory scan failed")

		return nil, nil
	}

	if !opts.Recursive {
		sortNatural(candidates)
	}

	observability.IntakeCandidates.WithLabelValues(opts.SiteCode).Set(float64(len(candidates)))

	existing := map[string]bool{}

	if !opts.Force {
		names, err := g.store.ListFolderNames(ctx, opts.SiteCode)
		if err != nil {
			return nil, err
		}

		for _, name := range names {
			existing[name] = true
		}
	}

	items := make([]domain.WorkItem, 0, len(candidates))

	for _, c := range candidates {
		folderName := CanonicalFolderName(opts.SiteRoot, c.path)

		if existing[folderName] {
			observability.IntakeSkippedExisting.WithLabelValues(opts.SiteCode).Inc()
			g.logger.Debug().Str("folder", folderName).Msg("skipping already processed folder")

			continue
		}

		items = append(items, domain.WorkItem{
			SiteCode:      opts.SiteCode,
			FolderName:    folderName,
			DirectoryPath: c.path,
			Force:         opts.Force,
			AttachForce:   opts.AttachForce,
		})
	}

	return items, nil
}

// CanonicalFolderName derives the stored folder name from the folder path:
// relative to the site root, separators flattened to a single underscore,
// Unicode normalized to composed form. macOS scrapers write decomposed
// Hangul which would otherwise never match the stored key.
func CanonicalFolderName(siteRoot, path string) string {
	rel, err := filepath.Rel(siteRoot, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	flattened := strings.ReplaceAll(rel, string(filepath.Separator), "_")

	return norm.NFC.String(flattened)
}

type candidate struct {
	path string
	name string
}

func scanChildren(siteRoot string) ([]candidate, error) {
	entries, err := os.ReadDir(siteRoot)
	if err != nil {
		return nil, err
	}

	var candidates []candidate

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		candidates = append(candidates, candidate{
			path: filepath.Join(siteRoot, entry.Name()),
			name: entry.Name(),
		})
	}

	return candidates, nil
}

// scanRecursive qualifies any descendant directory containing the primary
// artifact or a non-empty attachments sub-folder.
func scanRecursive(opts Options) ([]candidate, error) {
	if _, err := os.Stat(opts.SiteRoot); err != nil {
		return nil, err
	}

	var candidates []candidate

	err := filepath.WalkDir(opts.SiteRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() || path == opts.SiteRoot {
			return nil
		}

		if qualifies(path, opts.PrimaryName, opts.AttachmentsDir) {
			candidates = append(candidates, candidate{path: path, name: d.Name()})

			return filepath.SkipDir
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return candidates, nil
}

func qualifies(dir, primaryName, attachmentsDir string) bool {
	if _, err := os.Stat(filepath.Join(dir, primaryName)); err == nil {
		return true
	}

	entries, err := os.ReadDir(filepath.Join(dir, attachmentsDir))

	return err == nil && len(entries) > 0
}

var leadingNumberRegex = regexp.MustCompile(`^(\d+)`)

// sortNatural orders candidates by the integer prefix of the folder name;
// folders without a numeric prefix sort after all numeric ones, by name.
func sortNatural(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ni, iOK := leadingNumber(candidates[i].name)
		nj, jOK := leadingNumber(candidates[j].name)

		switch {
		case iOK && jOK:
			if ni != nj {
				return ni < nj
			}

			return candidates[i].name < candidates[j].name
		case iOK:
			return true
		case jOK:
			return false
		default:
			return candidates[i].name < candidates[j].name
		}
	})
}

func leadingNumber(name string) (int, bool) {
	m := leadingNumberRegex.FindString(name)
	if m == "" {
		return 0, false
	}

	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}

	return n, true
}
