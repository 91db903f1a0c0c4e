package gateways

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	// Register the "postgres" database/sql driver
	_ "github.com/lib/pq"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
)

// SelfTestConfig describes one smoke test against a throwaway cluster
type SelfTestConfig struct {
	BinDir    string // directory holding pg_ctl
	WorkDir   string // cluster data and log live here
	Preload   string // shared_preload_libraries entry, empty to skip
	Database  string
	Statement string
}

// SelfTester creates a temporary cluster, runs a statement and tears it down
type SelfTester struct {
	runner *CommandRunner
	logger interfaces.Logger
}

// NewSelfTester creates a new self tester
func NewSelfTester(runner *CommandRunner, logger interfaces.Logger) *SelfTester {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SelfTester{runner: runner, logger: logger}
}

// RunSelfTest smoke-tests a recipe against the resolved installation. pg_ctl
// is taken from the matched candidate, else from pg_config --bindir.
func (s *SelfTester) RunSelfTest(ctx context.Context, def *entities.Recipe, res entities.Resolution, workDir string) error {
	binDir := ""
	if res.Candidate != nil {
		binDir = res.Candidate.BinDir
	} else {
		dir, err := NewPGConfig(s.runner, res.Path).BinDir(ctx)
		if err != nil {
			return fmt.Errorf("failed to locate pg_ctl: %w", err)
		}
		binDir = dir
	}

	cfg := SelfTestConfig{
		BinDir:    binDir,
		WorkDir:   workDir,
		Database:  def.Test.Database,
		Statement: def.Test.Statement,
	}
	if def.Test.Preload {
		cfg.Preload = def.Install.Library
	}
	return s.Run(ctx, cfg)
}

// Run executes the self test. The cluster is stopped even if the statement fails.
func (s *SelfTester) Run(ctx context.Context, cfg SelfTestConfig) (err error) {
	pgCtl := filepath.Join(cfg.BinDir, "pg_ctl")
	dataDir := filepath.Join(cfg.WorkDir, "data")
	logFile := filepath.Join(cfg.WorkDir, "postgres.log")

	// Socket paths are length limited, keep them short
	sockDir, err := os.MkdirTemp("", "pgbrew-")
	if err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	//nolint:errcheck // Best-effort cleanup of temp socket dir
	defer os.RemoveAll(sockDir)

	// Same locale for initdb, start and stop
	env := map[string]string{"LC_ALL": "en_US.UTF-8", "LANG": "C"}

	initdb := s.runner.Execute(ctx, ExecuteConfig{
		Name:        pgCtl,
		Args:        []string{"initdb", "-D", dataDir},
		Env:         env,
		Description: "initdb",
	})
	if err := initdb.Err("pg_ctl initdb"); err != nil {
		return err
	}

	port, err := FreePort()
	if err != nil {
		return err
	}
	if err := AppendClusterConfig(filepath.Join(dataDir, "postgresql.conf"), cfg.Preload, port, sockDir); err != nil {
		return err
	}

	start := s.runner.Execute(ctx, ExecuteConfig{
		Name:        pgCtl,
		Args:        []string{"start", "-D", dataDir, "-l", logFile, "-w"},
		Env:         env,
		Description: "start cluster",
	})
	if err := start.Err("pg_ctl start"); err != nil {
		return err
	}
	s.logger.Info("Started test cluster", interfaces.F("port", port), interfaces.F("data", dataDir))

	defer func() {
		stop := s.runner.Execute(context.WithoutCancel(ctx), ExecuteConfig{
			Name:        pgCtl,
			Args:        []string{"stop", "-D", dataDir, "-m", "fast", "-w"},
			Env:         env,
			Description: "stop cluster",
		})
		if stopErr := stop.Err("pg_ctl stop"); stopErr != nil {
			s.logger.Warn("Failed to stop test cluster", interfaces.Err(stopErr))
			if err == nil {
				err = stopErr
			}
		}
	}()

	username := ""
	if u, uerr := user.Current(); uerr == nil {
		username = u.Username
	}
	dsn := ConnString(map[string]string{
		"host":    sockDir,
		"port":    fmt.Sprint(port),
		"user":    username,
		"dbname":  cfg.Database,
		"sslmode": "disable",
	})

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	//nolint:errcheck // Defer close
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to test cluster: %w", err)
	}
	if _, err := db.ExecContext(ctx, cfg.Statement); err != nil {
		return fmt.Errorf("self-test statement failed: %w", err)
	}

	s.logger.Info("Self-test passed", interfaces.F("statement", cfg.Statement))
	return nil
}

// FreePort asks the kernel for an unused TCP port on the loopback interface
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate port: %w", err)
	}
	//nolint:errcheck // Listener only used to reserve a port number
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// ClusterConfig returns the postgresql.conf lines for a test cluster
func ClusterConfig(preload string, port int, sockDir string) string {
	var b strings.Builder
	b.WriteString("\n")
	if preload != "" {
		fmt.Fprintf(&b, "shared_preload_libraries = %s\n", confQuote(preload))
	}
	fmt.Fprintf(&b, "port = %d\n", port)
	fmt.Fprintf(&b, "unix_socket_directories = %s\n", confQuote(sockDir))
	b.WriteString("listen_addresses = ''\n")
	return b.String()
}

// AppendClusterConfig appends ClusterConfig to postgresql.conf
func AppendClusterConfig(confPath, preload string, port int, sockDir string) error {
	//nolint:gosec // G304: confPath is inside the cluster we just created
	f, err := os.OpenFile(confPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open postgresql.conf: %w", err)
	}
	if _, err := f.WriteString(ClusterConfig(preload, port, sockDir)); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write postgresql.conf: %w", err)
	}
	return f.Close()
}

func confQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ConnString renders a lib/pq keyword/value connection string. Empty values are skipped.
func ConnString(params map[string]string) string {
	keys := []string{"host", "port", "user", "dbname", "sslmode"}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, ok := params[k]
		if !ok || v == "" {
			continue
		}
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		parts = append(parts, fmt.Sprintf("%s='%s'", k, v))
	}
	return strings.Join(parts, " ")
}
