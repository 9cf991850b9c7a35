package script

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func workingCopy() fstest.MapFS {
	return fstest.MapFS{
		"V002_addcol.sql":         {Data: []byte("ALTER TABLE users ADD email TEXT;\n")},
		"db/V003_index.sql":       {Data: []byte("\ufeffCREATE INDEX ix_users_email ON users (email);")},
		"db/V004_placeholder.sql": {Data: []byte("  \n\t\n")},
		"db/nested":               {Mode: fs.ModeDir},
	}
}

func TestLoader_Load(t *testing.T) {
	loader := NewLoader(workingCopy())

	tests := []struct {
		path     string
		name     string
		contents string
		valid    bool
	}{
		{path: "V002_addcol.sql", name: "V002_addcol.sql", contents: "ALTER TABLE users ADD email TEXT;\n", valid: true},
		{path: "./db/V003_index.sql", name: "V003_index.sql", contents: "CREATE INDEX ix_users_email ON users (email);", valid: true},
		{path: "db/V004_placeholder.sql", name: "V004_placeholder.sql", contents: "  \n\t\n", valid: false},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			s, err := loader.Load(tc.path)
			if err != nil {
				t.Fatalf("Load(%q): %v", tc.path, err)
			}
			if s.Name != tc.name {
				t.Errorf("name: got %q, want %q", s.Name, tc.name)
			}
			if s.Contents != tc.contents {
				t.Errorf("contents: got %q, want %q", s.Contents, tc.contents)
			}
			if s.Valid() != tc.valid {
				t.Errorf("valid: got %v, want %v", s.Valid(), tc.valid)
			}
		})
	}
}

func TestLoader_MissingScript(t *testing.T) {
	loader := NewLoader(workingCopy())

	for _, p := range []string{"V009_gone.sql", "db/nested", "../outside.sql"} {
		_, err := loader.Load(p)
		if !errors.Is(err, ErrMissingScript) {
			t.Errorf("Load(%q): expected ErrMissingScript, got %v", p, err)
			continue
		}
		if !IsMissing(err) {
			t.Errorf("IsMissing(%v) = false", err)
		}
		if !strings.Contains(err.Error(), p) {
			t.Errorf("expected message to name %q, got %q", p, err.Error())
		}
	}
}

func TestLoader_LoadAllIsAllOrNothing(t *testing.T) {
	loader := NewLoader(workingCopy())

	scripts, err := loader.LoadAll([]string{"V002_addcol.sql", "db/V003_index.sql"})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(scripts) != 2 || scripts[0].Name != "V002_addcol.sql" || scripts[1].Name != "V003_index.sql" {
		t.Fatalf("unexpected scripts %+v", scripts)
	}

	scripts, err = loader.LoadAll([]string{"V002_addcol.sql", "V009_gone.sql"})
	if !errors.Is(err, ErrMissingScript) {
		t.Fatalf("expected ErrMissingScript, got %v", err)
	}
	if scripts != nil {
		t.Fatalf("expected no partial result, got %+v", scripts)
	}
}

func TestNewDirLoader(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewDirLoader(dir).Load("absent.sql"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist to be reachable, got %v", err)
	}
}

func TestScript_Checksum(t *testing.T) {
	a := Script{Contents: "SELECT 1;"}
	b := Script{Contents: "SELECT 2;"}

	if len(a.Checksum()) != 64 {
		t.Fatalf("expected 256-bit hex digest, got %q", a.Checksum())
	}
	if a.Checksum() == b.Checksum() {
		t.Fatalf("different contents should not share a checksum")
	}
	if a.Checksum() != (Script{Name: "other.sql", Contents: "SELECT 1;"}).Checksum() {
		t.Fatalf("checksum should depend on contents only")
	}
	if got := a.ShortChecksum(); got != a.Checksum()[:12] {
		t.Fatalf("unexpected short checksum %q", got)
	}
}
