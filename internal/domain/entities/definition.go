package entities

// Recipe represents an extension build recipe from YAML
type Recipe struct {
	Name              string
	Description       string
	Homepage          string
	Version           string
	License           string
	Source            RecipeSource
	BuildDependencies []string
	Postgres          PostgresConfig
	Build             RecipeBuild
	Install           RecipeInstall
	Test              RecipeTest
	Caveats           string
	Livecheck         string // upstream version source, e.g. github-release:owner/repo
}

// RecipeSource describes where the extension sources come from
type RecipeSource struct {
	URL string // may contain {version}
}

// PostgresConfig describes the database engine the extension builds against
type PostgresConfig struct {
	Formula      string   // e.g. "postgresql"
	Candidates   []string // version tags, newest first after sorting
	Default      string   // tag required at build time when no candidate is installed
	ConfigTool   string   // e.g. "pg_config"
	SearchDirs   []string // extra directories probed after PATH
	FallbackPath string   // optional fixed path for the last resolution tier
}

// DefaultFormula returns the formula name of the default candidate, e.g. "postgresql@15"
func (p PostgresConfig) DefaultFormula() string {
	if p.Default == "" {
		return p.Formula
	}
	return p.Formula + "@" + p.Default
}

// RecipeBuild represents the CMake/Make build step
type RecipeBuild struct {
	SourceDir string            // relative to the unpacked source tree
	BuildDir  string            // relative to the unpacked source tree
	Defines   map[string]string // -D<key>=<value>
	Env       map[string]string // exported into the build subprocesses
	Parallel  bool              // make -j
}

// RecipeInstall describes which build outputs end up in the keg
type RecipeInstall struct {
	Library           string   // shared library base name, e.g. "lantern"
	LibraryExtensions []string // probed in order, e.g. [".so", ".dylib"]
	Control           string   // relative path of the control file
	SQL               []string // glob patterns relative to the source tree
	UpdatesDir        string   // directory holding versioned upgrade scripts
	Installer         string   // name of the generated installer script
}

// RecipeTest represents the post-install smoke test
type RecipeTest struct {
	Preload   bool   // add the library to shared_preload_libraries
	Statement string // SQL executed against the throwaway instance
	Database  string
}

// EffectiveBuildDependencies returns the recipe build dependencies plus the
// default database formula when no candidate installation was found.
func (r *Recipe) EffectiveBuildDependencies(res Resolution) []string {
	deps := make([]string, 0, len(r.BuildDependencies)+1)
	deps = append(deps, r.BuildDependencies...)
	if res.Candidate == nil && r.Postgres.Default != "" {
		deps = append(deps, r.Postgres.DefaultFormula())
	}
	return deps
}
