package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DirSuite gives each test a fresh directory of fixture files
type DirSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
}

// SetupTest runs before each test in the suite
func (s *DirSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), time.Minute)
	s.dir = s.T().TempDir()
}

// TearDownTest runs after each test in the suite
func (s *DirSuite) TearDownTest() {
	s.cancel()
}

// Context returns the per-test context
func (s *DirSuite) Context() context.Context {
	return s.ctx
}

// Dir returns the per-test directory
func (s *DirSuite) Dir() string {
	return s.dir
}

// Path joins name onto the per-test directory
func (s *DirSuite) Path(name ...string) string {
	return filepath.Join(append([]string{s.dir}, name...)...)
}

// WriteParquet writes rec as a Parquet file at name, creating parent
// directories, and returns its full path.
func (s *DirSuite) WriteParquet(name string, rec arrow.Record, opts FixtureOptions) string {
	path := s.Path(name)
	require.NoError(s.T(), os.MkdirAll(filepath.Dir(path), 0o755))
	WriteRecord(s.T(), path, rec, opts)
	return path
}

// WriteFile writes raw content at name and returns its full path
func (s *DirSuite) WriteFile(name string, content []byte) string {
	path := s.Path(name)
	require.NoError(s.T(), os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(s.T(), os.WriteFile(path, content, 0o644))
	return path
}

// IntegrationTest skips the calling test in -short mode
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
