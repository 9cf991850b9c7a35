package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/example/schemasync/internal/config"
	"github.com/example/schemasync/internal/logging"
	"github.com/example/schemasync/internal/migration"
	"github.com/example/schemasync/internal/persistence/sqldb"
	"github.com/example/schemasync/internal/script"
	"github.com/example/schemasync/internal/vcs"
)

// app holds the components wired from one resolved configuration.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	markers *sqldb.MarkerRepository
	engine  *migration.Engine
}

func newApp(cfg config.Config, out io.Writer) (*app, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(out, cfg.LogFormat, level)
	if err != nil {
		return nil, err
	}

	dialect, err := sqldb.DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.ResolveConnectionString()
	if err != nil {
		return nil, err
	}
	connector, err := sqldb.NewConnector(sqldb.ConnectorConfig{Dialect: dialect, DSN: dsn})
	if err != nil {
		return nil, err
	}
	markers, err := sqldb.NewMarkerRepository(connector, cfg.MarkerTable, time.Now, logger)
	if err != nil {
		return nil, err
	}

	runner := vcs.NewExecRunner(cfg.GitExecutable, cfg.WorkingDir)
	filter := vcs.PathFilter{Dir: cfg.ScriptsDir, Extensions: vcs.DefaultExtensions}
	resolver := vcs.NewGitResolver(runner, filter, logger)

	applier, err := migration.NewApplier(resolver, script.NewDirLoader(cfg.WorkingDir), migration.ConnectorDatabase(connector), logger)
	if err != nil {
		return nil, err
	}
	applier.SetCommandTimeout(cfg.CommandTimeout)

	engine, err := migration.NewEngine(migration.EngineConfig{
		Resolver: resolver,
		Applier:  applier,
		Markers:  markers,
		Logger:   logger,
		Remote:   cfg.Remote,
		Branch:   cfg.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("wire engine: %w", err)
	}

	return &app{cfg: cfg, logger: logger, markers: markers, engine: engine}, nil
}

func (a *app) runOptions() migration.RunOptions {
	return migration.RunOptions{
		DryRun:          a.cfg.DryRun,
		PrintAll:        a.cfg.PrintAll,
		MarkOnly:        a.cfg.MarkOnly,
		ConnectionLabel: a.cfg.Redacted(),
		WorkingDir:      a.cfg.WorkingDir,
	}
}
