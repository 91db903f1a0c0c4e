// Package services implements domain business logic and use cases.
package services

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"golang.org/x/mod/semver"
)

// Environment gives read access to process environment variables.
type Environment interface {
	Getenv(key string) string
}

// FileSystem is the filesystem capability the resolver probes through.
type FileSystem interface {
	// Exists reports whether path exists (file or directory)
	Exists(path string) bool
	// IsExecutable reports whether path is an executable regular file
	IsExecutable(path string) bool
}

// ResolverConfig is the static input of one resolution.
type ResolverConfig struct {
	Candidates   []entities.Candidate // newest first
	Command      string               // e.g. "pg_config"
	SearchDirs   []string             // probed after PATH, same executable check
	FallbackPath string               // returned unchecked when nothing else matches
}

// ResolveConfigTool picks exactly one configuration tool path.
//
// Tiers, in order: the first candidate whose bin directory exists, then the
// first executable match on PATH followed by SearchDirs (with every PATHEXT
// extension), then the fallback path without any existence check. It never fails: when no
// fallback is configured the returned Resolution has Found == false.
func ResolveConfigTool(cfg ResolverConfig, env Environment, fs FileSystem) entities.Resolution {
	for i := range cfg.Candidates {
		c := cfg.Candidates[i]
		if c.BinDir != "" && fs.Exists(c.BinDir) {
			return entities.Resolution{
				Path:      filepath.Join(c.BinDir, cfg.Command),
				Tier:      entities.TierCandidate,
				Candidate: &c,
				Found:     true,
			}
		}
	}

	entries := append(SplitPathList(env.Getenv("PATH")), cfg.SearchDirs...)
	exts := SplitPathExt(env.Getenv("PATHEXT"))
	if path, ok := LookPath(entries, exts, cfg.Command, fs.IsExecutable); ok {
		return entities.Resolution{Path: path, Tier: entities.TierSearchPath, Found: true}
	}

	if cfg.FallbackPath != "" {
		return entities.Resolution{Path: cfg.FallbackPath, Tier: entities.TierFallback, Found: true}
	}
	return entities.Resolution{Tier: entities.TierNone}
}

// CandidatesFor expands the recipe's version tags into candidate
// installations under <homebrewPrefix>/opt/<formula>@<tag>/bin, newest first.
func CandidatesFor(pg entities.PostgresConfig, homebrewPrefix string) ([]entities.Candidate, error) {
	tags, err := SortCandidates(pg.Candidates)
	if err != nil {
		return nil, err
	}
	candidates := make([]entities.Candidate, 0, len(tags))
	for _, tag := range tags {
		candidates = append(candidates, candidateFor(pg.Formula, tag, homebrewPrefix))
	}
	return candidates, nil
}

// DefaultFallback returns the fallback path of the last resolution tier:
// the recipe's explicit fallback_path, otherwise the configuration tool of
// the default candidate (the formula declared as build dependency).
func DefaultFallback(pg entities.PostgresConfig, homebrewPrefix string) string {
	if pg.FallbackPath != "" {
		return pg.FallbackPath
	}
	if pg.Default == "" {
		return ""
	}
	return filepath.Join(candidateFor(pg.Formula, pg.Default, homebrewPrefix).BinDir, pg.ConfigTool)
}

// SortCandidates orders version tags newest first. Tags are compared as
// semantic versions ("16" -> "v16"); an invalid tag is an error.
func SortCandidates(tags []string) ([]string, error) {
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	for _, tag := range sorted {
		if !semver.IsValid(canonicalTag(tag)) {
			return nil, fmt.Errorf("invalid candidate version tag %q", tag)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return semver.Compare(canonicalTag(sorted[i]), canonicalTag(sorted[j])) > 0
	})
	return sorted, nil
}

// CompareVersions orders two dotted versions ("0.5.0", "v0.5.1").
// It returns an error when either is not a valid semantic version.
func CompareVersions(a, b string) (int, error) {
	ca, cb := canonicalTag(a), canonicalTag(b)
	if !semver.IsValid(ca) {
		return 0, fmt.Errorf("invalid version %q", a)
	}
	if !semver.IsValid(cb) {
		return 0, fmt.Errorf("invalid version %q", b)
	}
	return semver.Compare(ca, cb), nil
}

func canonicalTag(tag string) string {
	if len(tag) > 0 && tag[0] == 'v' {
		return tag
	}
	return "v" + tag
}

func candidateFor(formula, tag, homebrewPrefix string) entities.Candidate {
	name := formula + "@" + tag
	return entities.Candidate{
		Tag:     tag,
		Formula: name,
		BinDir:  filepath.Join(homebrewPrefix, "opt", name, "bin"),
	}
}
