package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/library"
	"github.com/roach88/ergo/internal/logging"
	"github.com/roach88/ergo/internal/pipeline"
	"github.com/roach88/ergo/internal/primitive"
	"github.com/roach88/ergo/internal/store"
	"github.com/roach88/ergo/internal/store/redisstore"
)

// Signature cache backends selectable with --cache.
const (
	cacheMemory = "memory"
	cacheNone   = "none"
	cacheSQLite = "sqlite"
	cacheRedis  = "redis"
)

// cacheSpec is a parsed --cache value.
type cacheSpec struct {
	Backend string
	Target  string // sqlite path or redis URL
}

// parseCacheSpec reads memory, none, sqlite:<path> or a redis:// URL.
func parseCacheSpec(spec string) (cacheSpec, error) {
	switch {
	case spec == "" || spec == cacheMemory:
		return cacheSpec{Backend: cacheMemory}, nil
	case spec == cacheNone:
		return cacheSpec{Backend: cacheNone}, nil
	case strings.HasPrefix(spec, "sqlite:"):
		path := strings.TrimPrefix(spec, "sqlite:")
		if path == "" {
			return cacheSpec{}, fmt.Errorf("invalid cache %q: sqlite needs a path", spec)
		}
		return cacheSpec{Backend: cacheSQLite, Target: path}, nil
	case strings.HasPrefix(spec, "redis://"), strings.HasPrefix(spec, "rediss://"):
		return cacheSpec{Backend: cacheRedis, Target: spec}, nil
	}
	return cacheSpec{}, fmt.Errorf("invalid cache %q: want memory, none, sqlite:<path> or redis://", spec)
}

// session is what a command works with: a pipeline over the clusters
// directory plus whatever stores it opened.
type session struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
	closers  []io.Closer
}

// openSession loads the clusters directory and opens the signature cache.
// extra options are applied after the cache option.
func openSession(opts *RootOptions, cmd *cobra.Command, extra ...pipeline.Option) (*session, error) {
	s := &session{logger: newLogger(opts, cmd)}

	lib, err := library.LoadDir(opts.Clusters)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeNotFound, err)
	}
	s.logger.Debug("clusters loaded", "dir", opts.Clusters, "definitions", lib.Len())

	spec, err := parseCacheSpec(opts.Cache)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeUsage, err)
	}
	pipeOpts := []pipeline.Option{pipeline.WithLogger(s.logger)}
	switch spec.Backend {
	case cacheNone:
		pipeOpts = append(pipeOpts, pipeline.WithoutCache())
	case cacheSQLite:
		st, err := store.Open(spec.Target)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, ErrCodeStore, err)
		}
		s.closers = append(s.closers, st)
		pipeOpts = append(pipeOpts, pipeline.WithCache(st))
	case cacheRedis:
		rs, err := redisstore.NewFromURL(spec.Target)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, ErrCodeStore, err)
		}
		s.closers = append(s.closers, rs)
		if err := rs.Ping(cmd.Context()); err != nil {
			_ = s.Close()
			return nil, WrapExitError(ExitCommandError, ErrCodeStore, err)
		}
		pipeOpts = append(pipeOpts, pipeline.WithCache(rs))
	}
	s.logger.Debug("signature cache", "backend", spec.Backend)

	p, err := pipeline.New(lib, primitive.Core(), append(pipeOpts, extra...)...)
	if err != nil {
		_ = s.Close()
		return nil, WrapExitError(ExitCommandError, ErrCodeGeneric, err)
	}
	s.pipeline = p
	return s, nil
}

// addCloser registers c to be closed with the session.
func (s *session) addCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Close closes every store the session opened.
func (s *session) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// newLogger logs to the command's stderr; --verbose enables debug records.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	return logging.NewWriter(cmd.ErrOrStderr(), logging.Level(opts.Verbose))
}

// newFormatter builds the formatter every command writes through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandError reports a setup failure and returns it unchanged when it
// already carries an exit code.
func commandError(f *OutputFormatter, err error) error {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		_ = f.Error(exitErr.Message, errorMessage(exitErr), nil)
		return exitErr
	}
	return f.Fail(ExitCommandError, err)
}

func errorMessage(e *ExitError) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// clusterArgs reads the <id> <version> argument pair.
func clusterArgs(args []string) ir.ClusterKey {
	return ir.ClusterKey{ID: args[0], Version: args[1]}
}

// addParamFlag registers the repeatable --param name=value flag.
func addParamFlag(cmd *cobra.Command, params *[]string) {
	cmd.Flags().StringArrayVarP(params, "param", "p", nil, "root parameter as name=value (repeatable)")
}

// parseParams parses --param values, reporting a usage error.
func parseParams(f *OutputFormatter, raw []string) (ir.Parameters, error) {
	params, err := pipeline.ParseParameters(raw)
	if err != nil {
		_ = f.Error(ErrCodeUsage, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, ErrCodeUsage, err)
	}
	return params, nil
}
