package gateways

import (
	"context"
)

// PGConfig queries a resolved pg_config executable
type PGConfig struct {
	path   string
	runner *CommandRunner
}

// NewPGConfig creates a client for the configuration tool at path
func NewPGConfig(runner *CommandRunner, path string) *PGConfig {
	return &PGConfig{path: path, runner: runner}
}

// Query runs "<pg_config> <flag>" and returns the trimmed output.
// The call blocks until the tool exits; no retry, no timeout.
func (p *PGConfig) Query(ctx context.Context, flag string) (string, error) {
	return p.runner.Output(ctx, p.path, flag)
}

// PkgLibDir returns --pkglibdir
func (p *PGConfig) PkgLibDir(ctx context.Context) (string, error) {
	return p.Query(ctx, "--pkglibdir")
}

// ShareDir returns --sharedir
func (p *PGConfig) ShareDir(ctx context.Context) (string, error) {
	return p.Query(ctx, "--sharedir")
}

// BinDir returns --bindir
func (p *PGConfig) BinDir(ctx context.Context) (string, error) {
	return p.Query(ctx, "--bindir")
}
