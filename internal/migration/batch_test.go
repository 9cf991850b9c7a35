package migration

import (
	"reflect"
	"strings"
	"testing"

	"github.com/example/schemasync/internal/persistence/sqldb"
	"github.com/example/schemasync/internal/script"
)

func mustDialect(t *testing.T, name string) sqldb.Dialect {
	t.Helper()
	dialect, err := sqldb.DialectFor(name)
	if err != nil {
		t.Fatalf("dialect %s: %v", name, err)
	}
	return dialect
}

func TestBuildBatch_Commit(t *testing.T) {
	scripts := []script.Script{
		{Name: "V002_addcol.sql", Contents: "ALTER TABLE widgets ADD colour TEXT;\n\n"},
		{Name: "V003_placeholder.sql", Contents: " \n\t"},
		{Name: "V004_index.sql", Contents: "CREATE INDEX ix_colour ON widgets (colour);"},
	}

	batch := BuildBatch(mustDialect(t, sqldb.DialectSQLite), "cafef00d", scripts, ModeCommit)

	want := "-- schemasync revision cafef00d\nBEGIN TRANSACTION;\n\n" +
		"ALTER TABLE widgets ADD colour TEXT;\n\n" +
		"CREATE INDEX ix_colour ON widgets (colour);\n\n" +
		"COMMIT;\n"
	if batch.Text != want {
		t.Fatalf("unexpected batch text:\n%s\nwant:\n%s", batch.Text, want)
	}
	if !reflect.DeepEqual(batch.Scripts, []string{"V002_addcol.sql", "V004_index.sql"}) {
		t.Fatalf("unexpected included scripts %v", batch.Scripts)
	}
	if !reflect.DeepEqual(batch.Skipped, []string{"V003_placeholder.sql"}) {
		t.Fatalf("unexpected skipped scripts %v", batch.Skipped)
	}
	if batch.Empty() {
		t.Fatalf("batch with scripts reported empty")
	}
}

func TestBuildBatch_SimulateEndsWithRollback(t *testing.T) {
	scripts := []script.Script{{Name: "V1.sql", Contents: "SELECT 1;"}}

	batch := BuildBatch(mustDialect(t, sqldb.DialectSQLServer), "deadbeef", scripts, ModeSimulate)

	if !strings.HasPrefix(batch.Text, "SET XACT_ABORT ON;\nBEGIN TRANSACTION [deadbeef];") {
		t.Fatalf("unexpected batch start:\n%s", batch.Text)
	}
	if !strings.HasSuffix(batch.Text, "ROLLBACK TRANSACTION [deadbeef];\n") {
		t.Fatalf("unexpected batch end:\n%s", batch.Text)
	}
	if strings.Contains(batch.Text, "COMMIT") {
		t.Fatalf("simulated batch must not commit:\n%s", batch.Text)
	}
}

func TestBuildBatch_BlankOnly(t *testing.T) {
	scripts := []script.Script{{Name: "V9.sql", Contents: "\n"}}

	batch := BuildBatch(mustDialect(t, sqldb.DialectPostgres), "abc", scripts, ModeCommit)

	if !batch.Empty() {
		t.Fatalf("expected an empty batch, got %v", batch.Scripts)
	}
	if !strings.HasSuffix(batch.Text, "COMMIT;\n") {
		t.Fatalf("empty batch still carries its markers:\n%s", batch.Text)
	}
}

func TestModeAndStateStrings(t *testing.T) {
	if ModeCommit.String() != "commit" || ModeSimulate.String() != "simulate" {
		t.Fatalf("unexpected mode names")
	}
	cases := map[State]string{
		StateIdle:            "idle",
		StateResolving:       "resolving",
		StateNoChangesNeeded: "no_changes_needed",
		StateApplying:        "applying",
		StateSucceeded:       "succeeded",
		StateFailed:          "failed",
		State(42):            "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d) = %q, want %q", state, got, want)
		}
	}
}
