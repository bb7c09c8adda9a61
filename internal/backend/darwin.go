package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// Spotlight queries used to locate application bundles. Both are issued per
// search path and the results unioned; Spotlight indexes some bundles under
// only one of the two attributes.
var mdfindQueries = []string{
	"kMDItemContentType == 'com.apple.application-bundle'",
	"kMDItemKind == 'Application'",
}

// mdfindRunner issues a Spotlight metadata query scoped to one directory and
// returns the matching bundle paths. Injectable for tests and for the
// degraded-mode path.
type mdfindRunner func(ctx context.Context, dir string) ([]string, error)

// darwinBackend discovers applications through the Spotlight metadata store,
// falling back to a bounded filesystem walk of the standard application
// directories when the store is unavailable.
type darwinBackend struct {
	searchPaths []string
	runMDFind   mdfindRunner
	logger      *slog.Logger
}

func newDarwinBackend(cfg Config, logger *slog.Logger) *darwinBackend {
	b := &darwinBackend{
		runMDFind: runMDFind,
		logger:    logger,
	}
	if len(cfg.SearchPaths) > 0 {
		b.searchPaths = cfg.SearchPaths
	} else {
		home, _ := os.UserHomeDir()
		b.searchPaths = []string{
			"/Applications",
			"/System/Applications",
			filepath.Join(home, "Applications"),
		}
	}
	return b
}

func (b *darwinBackend) SearchPaths() []string {
	return b.searchPaths
}

func (b *darwinBackend) Matches(path string) bool {
	return strings.HasSuffix(path, ".app")
}

func (b *darwinBackend) Enumerate(ctx context.Context) ([]Source, error) {
	bundles, err := b.queryBundles(ctx)
	if err != nil {
		// Degraded mode: only an explicit service-unavailable signal from
		// the metadata store triggers the slower filesystem walk.
		if !errors.Is(err, ErrServiceUnavailable) {
			return nil, err
		}
		b.logger.Warn("metadata store unavailable, walking application directories", "error", err)
		bundles, err = b.walkBundles(ctx)
		if err != nil {
			return nil, err
		}
	}

	var sources []Source
	for _, root := range bundles {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if src := bundleSource(root, b.logger); src != nil {
			sources = append(sources, *src)
		}
	}
	return sources, nil
}

// queryBundles unions the Spotlight results over all search paths. The
// result is sorted so repeated enumerations produce stable ordering.
func (b *darwinBackend) queryBundles(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, dir := range b.searchPaths {
		if !dirExists(dir) {
			continue
		}
		paths, err := b.runMDFind(ctx, dir)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if path != "" {
				seen[path] = struct{}{}
			}
		}
	}

	bundles := make([]string, 0, len(seen))
	for path := range seen {
		bundles = append(bundles, path)
	}
	sort.Strings(bundles)
	return bundles, nil
}

// walkBundles is the degraded-mode scan: a depth-bounded walk collecting
// *.app directories without descending into them.
func (b *darwinBackend) walkBundles(ctx context.Context) ([]string, error) {
	const maxDepth = 2

	var bundles []string
	for _, dir := range b.searchPaths {
		if !dirExists(dir) {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				b.logger.Warn("skipping unreadable path", "path", path, "error", err)
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if strings.HasSuffix(path, ".app") {
				bundles = append(bundles, path)
				return filepath.SkipDir
			}
			if relDepth(dir, path) >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(bundles)
	return bundles, nil
}

func relDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// ResolveSingle re-parses one bundle in response to a filesystem event under
// the application directories. Events inside a bundle are attributed to the
// enclosing bundle root.
func (b *darwinBackend) ResolveSingle(path string) ([]Source, error) {
	root := enclosingBundle(path)
	if root == "" {
		return nil, nil
	}
	src := bundleSource(root, b.logger)
	if src == nil {
		return nil, nil
	}
	return []Source{*src}, nil
}

// enclosingBundle trims a path down to the nearest ancestor ending in .app,
// or returns "" when there is none.
func enclosingBundle(path string) string {
	for p := path; p != "/" && p != "." && p != ""; p = filepath.Dir(p) {
		if strings.HasSuffix(p, ".app") {
			return p
		}
	}
	return ""
}

// runMDFind shells out to mdfind the way the platform documents. A spawn
// failure or non-zero exit is the "service unavailable" signal that arms the
// fallback walk; an empty result set is not.
func runMDFind(ctx context.Context, dir string) ([]string, error) {
	var all []string
	for _, query := range mdfindQueries {
		out, err := exec.CommandContext(ctx, "mdfind", "-onlyin", dir, query).Output()
		if err != nil {
			return nil, fmt.Errorf("%w: mdfind -onlyin %s: %v", ErrServiceUnavailable, dir, err)
		}
		all = append(all, strings.Split(strings.TrimSpace(string(out)), "\n")...)
	}
	return all, nil
}
