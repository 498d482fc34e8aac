package testsupport

import (
	"path/filepath"
	"testing"

	"lawfeed/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.IncomingDir = filepath.Join(base, "incoming")
	cfgVal.Paths.ArchiveDir = filepath.Join(base, "archive")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Collate.PollInterval = 1
	cfgVal.Dispatch.PollInterval = 1
	cfgVal.Workflow.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithUnhandledPolicy overrides the dispatch policy for fragments without a handler.
func WithUnhandledPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.UnhandledPolicy = policy
	}
}

// WithPageSize sets the page size of both lanes.
func WithPageSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collate.PageSize = size
		b.cfg.Dispatch.PageSize = size
	}
}

// WithDefaultEncoding sets the charset assumed for ingested files.
func WithDefaultEncoding(label string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Feed.DefaultEncoding = label
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.IncomingDir)
}
