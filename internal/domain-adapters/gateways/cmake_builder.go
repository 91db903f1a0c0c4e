package gateways

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

// CMakeBuilder drives "cmake -S -B" followed by "make -C <build>".
type CMakeBuilder struct {
	runner    *CommandRunner
	sourceDir string
	buildDir  string
	defines   map[string]string
	env       map[string]string
	jobs      int // 0 = plain make, -1 = make -j, >0 = make -jN
}

// NewCMakeBuilder creates a builder for sourceDir configured into buildDir
func NewCMakeBuilder(runner *CommandRunner, sourceDir, buildDir string) *CMakeBuilder {
	return &CMakeBuilder{
		runner:    runner,
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]string),
		env:       make(map[string]string),
	}
}

// NewCMakeBuilderFromRecipe applies the recipe's build section relative to srcRoot
func NewCMakeBuilderFromRecipe(runner *CommandRunner, srcRoot string, build entities.RecipeBuild) *CMakeBuilder {
	b := NewCMakeBuilder(runner, filepath.Join(srcRoot, build.SourceDir), filepath.Join(srcRoot, build.BuildDir))
	for k, v := range build.Defines {
		b.Define(k, v)
	}
	for k, v := range build.Env {
		b.Env(k, v)
	}
	if build.Parallel {
		b.Jobs(-1)
	}
	return b
}

// Define adds a -D<key>=<value> definition.
func (b *CMakeBuilder) Define(key, value string) *CMakeBuilder {
	b.defines[key] = value
	return b
}

// Env sets a variable in the build subprocesses only.
func (b *CMakeBuilder) Env(key, value string) *CMakeBuilder {
	b.env[key] = value
	return b
}

// Jobs sets make parallelism.
func (b *CMakeBuilder) Jobs(n int) *CMakeBuilder {
	b.jobs = n
	return b
}

// BuildDir returns the CMake binary directory.
func (b *CMakeBuilder) BuildDir() string { return b.buildDir }

// ConfigureArgs returns the cmake argument list.
func (b *CMakeBuilder) ConfigureArgs(extra ...string) []string {
	args := b.definesArgs()
	args = append(args, "-S", b.sourceDir, "-B", b.buildDir)
	return append(args, extra...)
}

// MakeArgs returns the make argument list.
func (b *CMakeBuilder) MakeArgs(extra ...string) []string {
	args := []string{"-C", b.buildDir}
	switch {
	case b.jobs < 0:
		args = append(args, "-j")
	case b.jobs > 0:
		args = append(args, "-j"+strconv.Itoa(b.jobs))
	}
	return append(args, extra...)
}

// Configure runs cmake.
func (b *CMakeBuilder) Configure(ctx context.Context, extra ...string) error {
	if err := os.MkdirAll(b.buildDir, 0o750); err != nil {
		return err
	}
	res := b.runner.Execute(ctx, ExecuteConfig{
		Name:        "cmake",
		Args:        b.ConfigureArgs(extra...),
		Env:         b.env,
		Description: "configure",
		Stream:      true,
	})
	return res.Err("cmake configure")
}

// Make runs make in the build directory.
func (b *CMakeBuilder) Make(ctx context.Context, extra ...string) error {
	res := b.runner.Execute(ctx, ExecuteConfig{
		Name:        "make",
		Args:        b.MakeArgs(extra...),
		Env:         b.env,
		Description: "build",
		Stream:      true,
	})
	return res.Err("make")
}

func (b *CMakeBuilder) definesArgs() []string {
	if len(b.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(b.defines))
	for k := range b.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		args = append(args, "-D"+k+"="+b.defines[k])
	}
	return args
}

// RecipeBuilder builds a recipe's source tree with CMake and make
type RecipeBuilder struct {
	runner *CommandRunner
}

// NewRecipeBuilder creates a new recipe builder
func NewRecipeBuilder(runner *CommandRunner) *RecipeBuilder {
	return &RecipeBuilder{runner: runner}
}

// Build configures and compiles srcRoot. env is layered over the recipe's
// own environment and reaches the build subprocesses only.
func (r *RecipeBuilder) Build(ctx context.Context, srcRoot string, build entities.RecipeBuild, env map[string]string) error {
	b := NewCMakeBuilderFromRecipe(r.runner, srcRoot, build)
	for k, v := range env {
		b.Env(k, v)
	}
	if err := b.Configure(ctx); err != nil {
		return err
	}
	return b.Make(ctx)
}
