package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/schemasync/internal/persistence"
)

// DefaultMarkerTable is the tracking table used when none is configured.
const DefaultMarkerTable = "database_version"

// MarkerRepository implements persistence.MarkerRepository on top of a
// Connector. Every call opens and releases its own session.
type MarkerRepository struct {
	connector *Connector
	table     string
	now       func() time.Time
	logger    *slog.Logger
}

var _ persistence.MarkerRepository = (*MarkerRepository)(nil)

// NewMarkerRepository returns a repository for table. An empty table selects
// DefaultMarkerTable and a nil clock selects time.Now.
func NewMarkerRepository(connector *Connector, table string, now func() time.Time, logger *slog.Logger) (*MarkerRepository, error) {
	if connector == nil {
		return nil, errors.New("marker repository: connector is required")
	}
	if table == "" {
		table = DefaultMarkerTable
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MarkerRepository{
		connector: connector,
		table:     table,
		now:       now,
		logger:    logger.With("component", "marker_repository", "table", table),
	}, nil
}

// Table returns the tracking table name.
func (r *MarkerRepository) Table() string {
	return r.table
}

// GetCurrent returns the revision of the most recent row, or "" when the
// table holds no rows yet.
func (r *MarkerRepository) GetCurrent(ctx context.Context) (revision string, err error) {
	query := r.connector.Dialect().LatestMarkerQuery(r.table)
	err = r.withSession(ctx, func(session *Session) error {
		scanErr := session.Conn().QueryRowContext(ctx, query).Scan(&revision)
		if errors.Is(scanErr, sql.ErrNoRows) {
			revision = ""
			return nil
		}
		if scanErr != nil {
			return persistence.NewQueryError("read marker", query, scanErr)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	revision = strings.TrimSpace(revision)
	r.logger.Debug("read current marker", "revision", revision)
	return revision, nil
}

// SetCurrent appends a row for revision.
func (r *MarkerRepository) SetCurrent(ctx context.Context, revision string) error {
	revision = strings.TrimSpace(revision)
	if revision == "" {
		return errors.New("marker repository: revision cannot be empty")
	}

	statement := r.connector.Dialect().InsertMarkerStatement(r.table)
	deployedAt := r.now().UTC()
	err := r.withSession(ctx, func(session *Session) error {
		if _, err := session.Conn().ExecContext(ctx, statement, revision, deployedAt); err != nil {
			return persistence.NewQueryError("insert marker", statement, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.Debug("stored marker", "revision", revision, "deployed_at", deployedAt)
	return nil
}

// History lists up to limit rows, newest first.
func (r *MarkerRepository) History(ctx context.Context, limit int) ([]persistence.VersionMarker, error) {
	query := r.connector.Dialect().HistoryQuery(r.table, limit)
	var markers []persistence.VersionMarker
	err := r.withSession(ctx, func(session *Session) error {
		rows, err := session.Conn().QueryContext(ctx, query)
		if err != nil {
			return persistence.NewQueryError("list markers", query, err)
		}
		defer rows.Close()

		for rows.Next() {
			var marker persistence.VersionMarker
			if err := rows.Scan(&marker.Revision, &marker.DeployedAt); err != nil {
				return persistence.NewQueryError("scan marker", query, err)
			}
			marker.Revision = strings.TrimSpace(marker.Revision)
			markers = append(markers, marker)
		}
		if err := rows.Err(); err != nil {
			return persistence.NewQueryError("iterate markers", query, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return markers, nil
}

// EnsureTable creates the tracking table when it does not exist yet.
func (r *MarkerRepository) EnsureTable(ctx context.Context) error {
	statement := r.connector.Dialect().CreateTableStatement(r.table)
	return r.withSession(ctx, func(session *Session) error {
		if _, err := session.Conn().ExecContext(ctx, statement); err != nil {
			return persistence.NewQueryError("create tracking table", statement, err)
		}
		return nil
	})
}

func (r *MarkerRepository) withSession(ctx context.Context, fn func(*Session) error) (err error) {
	session, err := r.connector.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			if err == nil {
				err = fmt.Errorf("marker repository: %w", cerr)
			} else {
				r.logger.Warn("failed to close session", "error", cerr)
			}
		}
	}()
	return fn(session)
}
