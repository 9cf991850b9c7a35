package migration_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/example/schemasync/internal/migration"
	"github.com/example/schemasync/internal/persistence"
	"github.com/example/schemasync/internal/persistence/sqldb"
	"github.com/example/schemasync/internal/script"
	"github.com/example/schemasync/internal/testfixtures"
	"github.com/example/schemasync/internal/vcs"
)

type fakeSession struct {
	probeErr error
	execErr  error
	batches  []string
	closed   int
}

func (s *fakeSession) Probe(context.Context) error { return s.probeErr }

func (s *fakeSession) ExecBatch(_ context.Context, batch string) error {
	s.batches = append(s.batches, batch)
	return s.execErr
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeDatabase struct {
	dialect migration.BatchDialect
	session *fakeSession
	openErr error
	opened  int
}

func (d *fakeDatabase) Open(context.Context) (migration.Session, error) {
	d.opened++
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.session, nil
}

func (d *fakeDatabase) Dialect() migration.BatchDialect { return d.dialect }

func newFakeDatabase(t *testing.T) *fakeDatabase {
	t.Helper()
	dialect, err := sqldb.DialectFor(sqldb.DialectSQLite)
	if err != nil {
		t.Fatalf("dialect: %v", err)
	}
	return &fakeDatabase{dialect: dialect, session: &fakeSession{}}
}

func newApplier(t *testing.T, git *testfixtures.GitRunner, files fstest.MapFS, db migration.Database) *migration.Applier {
	t.Helper()
	resolver := vcs.NewGitResolver(git, vcs.PathFilter{Extensions: vcs.DefaultExtensions}, nil)
	applier, err := migration.NewApplier(resolver, script.NewLoader(files), db, nil)
	if err != nil {
		t.Fatalf("NewApplier: %v", err)
	}
	return applier
}

func TestNewApplier_RequiresCollaborators(t *testing.T) {
	db := newFakeDatabase(t)
	loader := script.NewLoader(fstest.MapFS{})
	resolver := vcs.NewGitResolver(testfixtures.NewGitRunner(), vcs.PathFilter{}, nil)

	if _, err := migration.NewApplier(nil, loader, db, nil); err == nil {
		t.Errorf("expected error without path lister")
	}
	if _, err := migration.NewApplier(resolver, nil, db, nil); err == nil {
		t.Errorf("expected error without script source")
	}
	if _, err := migration.NewApplier(resolver, loader, nil, nil); err == nil {
		t.Errorf("expected error without database")
	}
}

func TestApplier_ResolveKeepsDiffOrder(t *testing.T) {
	git := testfixtures.NewGitRunner().
		On("diff --name-only -z --diff-filter=ACMR deadbeef..cafef00d", "V003_index.sql\x00README.md\x00V002_addcol.sql\x00")
	files := fstest.MapFS{
		"V002_addcol.sql": {Data: []byte("ALTER TABLE t ADD c INT;")},
		"V003_index.sql":  {Data: []byte("CREATE INDEX ix ON t (c);")},
	}
	applier := newApplier(t, git, files, newFakeDatabase(t))

	changes, err := applier.Resolve(context.Background(), migration.RevisionRange{From: "deadbeef", To: "cafef00d"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := changes.Names(), []string{"V003_index.sql", "V002_addcol.sql"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
}

func TestApplier_ResolveMissingScript(t *testing.T) {
	git := testfixtures.NewGitRunner().
		On("diff --name-only -z --diff-filter=ACMR a..b", "V1.sql\x00")
	applier := newApplier(t, git, fstest.MapFS{}, newFakeDatabase(t))

	_, err := applier.Resolve(context.Background(), migration.RevisionRange{From: "a", To: "b"})
	if !errors.Is(err, script.ErrMissingScript) {
		t.Fatalf("expected ErrMissingScript, got %v", err)
	}
	if got := migration.ErrorKind(err); got != "missing_script" {
		t.Fatalf("ErrorKind = %q", got)
	}
}

func TestApplier_ExecuteEmptyChangeSetNeverConnects(t *testing.T) {
	db := newFakeDatabase(t)
	applier := newApplier(t, testfixtures.NewGitRunner(), fstest.MapFS{}, db)

	result, err := applier.Execute(context.Background(), migration.ChangeSet{}, "cafef00d", migration.ModeCommit)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.NoOp {
		t.Fatalf("expected a no-op result")
	}

	blanks := migration.ChangeSet{Scripts: []script.Script{{Name: "V1.sql", Contents: "  \n"}}}
	result, err = applier.Execute(context.Background(), blanks, "cafef00d", migration.ModeCommit)
	if err != nil {
		t.Fatalf("Execute blanks: %v", err)
	}
	if !result.NoOp || len(result.Executed) != 0 {
		t.Fatalf("expected blank scripts to be a no-op, got %+v", result)
	}
	if db.opened != 0 {
		t.Fatalf("no session should be opened, got %d", db.opened)
	}
}

func TestApplier_ExecuteSendsOneBatch(t *testing.T) {
	db := newFakeDatabase(t)
	applier := newApplier(t, testfixtures.NewGitRunner(), fstest.MapFS{}, db)
	changes := migration.ChangeSet{Scripts: []script.Script{
		{Name: "V1.sql", Contents: "CREATE TABLE a (id INT);"},
		{Name: "V2.sql", Contents: "CREATE TABLE b (id INT);"},
	}}

	result, err := applier.Execute(context.Background(), changes, "cafef00d", migration.ModeSimulate)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(db.session.batches) != 1 {
		t.Fatalf("expected exactly one batch, got %d", len(db.session.batches))
	}
	sent := db.session.batches[0]
	if !strings.Contains(sent, "CREATE TABLE a (id INT);\n\nCREATE TABLE b (id INT);") || !strings.HasSuffix(sent, "ROLLBACK;\n") {
		t.Fatalf("unexpected batch:\n%s", sent)
	}
	if len(result.Executed) != 1 || result.Executed[0].Mode != migration.ModeSimulate {
		t.Fatalf("unexpected executed units %+v", result.Executed)
	}
	if db.session.closed != 1 {
		t.Fatalf("session closed %d times, want 1", db.session.closed)
	}
}

func TestApplier_ExecuteFailures(t *testing.T) {
	changes := migration.ChangeSet{Scripts: []script.Script{{Name: "V1.sql", Contents: "SELECT 1;"}}}
	rejected := errors.New("Invalid object name 'missing'")

	t.Run("open", func(t *testing.T) {
		db := newFakeDatabase(t)
		db.openErr = persistence.NewConnectivityError("open", errors.New("login failed"))
		applier := newApplier(t, testfixtures.NewGitRunner(), fstest.MapFS{}, db)

		_, err := applier.Execute(context.Background(), changes, "r1", migration.ModeCommit)
		if !errors.Is(err, persistence.ErrConnectivity) {
			t.Fatalf("expected ErrConnectivity, got %v", err)
		}
	})

	t.Run("probe", func(t *testing.T) {
		db := newFakeDatabase(t)
		db.session.probeErr = persistence.NewConnectivityError("probe", errors.New("timeout"))
		applier := newApplier(t, testfixtures.NewGitRunner(), fstest.MapFS{}, db)

		_, err := applier.Execute(context.Background(), changes, "r1", migration.ModeCommit)
		if !errors.Is(err, persistence.ErrConnectivity) {
			t.Fatalf("expected ErrConnectivity, got %v", err)
		}
		if len(db.session.batches) != 0 {
			t.Fatalf("no batch may be sent after a failed probe")
		}
		if db.session.closed != 1 {
			t.Fatalf("session must be released")
		}
	})

	t.Run("exec", func(t *testing.T) {
		db := newFakeDatabase(t)
		db.session.execErr = rejected
		applier := newApplier(t, testfixtures.NewGitRunner(), fstest.MapFS{}, db)

		_, err := applier.Execute(context.Background(), changes, "r1", migration.ModeCommit)
		if !errors.Is(err, migration.ErrUpgradeFailed) || !errors.Is(err, rejected) {
			t.Fatalf("expected UpgradeFailure wrapping the database error, got %v", err)
		}
		var failure *migration.UpgradeFailure
		if !errors.As(err, &failure) || failure.Revision != "r1" {
			t.Fatalf("expected failure for r1, got %#v", err)
		}
		if len(db.session.batches) != 1 {
			t.Fatalf("no compensating batch may be sent, got %d batches", len(db.session.batches))
		}
		if db.session.closed != 1 {
			t.Fatalf("session must be released")
		}
	})
}

func TestApplier_ApplyAgainstSQLite(t *testing.T) {
	target := testfixtures.NewSQLiteDatabase(t)
	dialect, _ := sqldb.DialectFor(sqldb.DialectSQLite)
	connector, err := sqldb.NewConnector(sqldb.ConnectorConfig{Dialect: dialect, DSN: target.DSN()})
	if err != nil {
		t.Fatalf("connector: %v", err)
	}
	git := testfixtures.NewGitRunner().
		On("ls-tree -r --name-only -z cafef00d", "V001_widgets.sql\x00V002_gadgets.sql\x00")
	files := fstest.MapFS{
		"V001_widgets.sql": {Data: []byte("CREATE TABLE widgets (id INTEGER PRIMARY KEY);")},
		"V002_gadgets.sql": {Data: []byte("CREATE TABLE gadgets (id INTEGER PRIMARY KEY);\nINSERT INTO gadgets (id) VALUES (1);")},
	}
	applier := newApplier(t, git, files, migration.ConnectorDatabase(connector))
	rng := migration.RevisionRange{To: "cafef00d"}

	if _, err := applier.Apply(context.Background(), rng, migration.ModeSimulate); err != nil {
		t.Fatalf("simulated Apply: %v", err)
	}
	if target.TableExists(t, "widgets") || target.TableExists(t, "gadgets") {
		t.Fatalf("simulated batch must leave no tables behind")
	}

	if _, err := applier.Apply(context.Background(), rng, migration.ModeCommit); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !target.TableExists(t, "widgets") || target.CountRows(t, "gadgets") != 1 {
		t.Fatalf("committed batch should create both tables")
	}

	if _, err := applier.Apply(context.Background(), migration.RevisionRange{}, migration.ModeCommit); err == nil {
		t.Fatalf("expected error without a target revision")
	}
}
