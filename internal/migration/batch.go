package migration

import (
	"strings"
	"unicode"

	"github.com/example/schemasync/internal/script"
)

// Batch is the single text sent to the server for one change set.
type Batch struct {
	Revision string
	Mode     Mode
	Scripts  []string // names of the scripts included, in order
	Skipped  []string // names of blank scripts left out
	Text     string
}

// Empty reports whether the batch carries no script bodies.
func (b Batch) Empty() bool {
	return len(b.Scripts) == 0
}

// BuildBatch wraps the valid scripts in a transaction labeled with revision.
// Scripts keep their order and are separated by blank lines; the batch ends
// with COMMIT for ModeCommit and ROLLBACK for ModeSimulate.
func BuildBatch(dialect BatchDialect, revision string, scripts []script.Script, mode Mode) Batch {
	batch := Batch{Revision: revision, Mode: mode}

	parts := []string{dialect.BeginBatch(revision)}
	for _, s := range scripts {
		if !s.Valid() {
			batch.Skipped = append(batch.Skipped, s.Name)
			continue
		}
		batch.Scripts = append(batch.Scripts, s.Name)
		parts = append(parts, strings.TrimRightFunc(s.Contents, unicode.IsSpace))
	}

	if mode == ModeSimulate {
		parts = append(parts, dialect.RollbackBatch(revision))
	} else {
		parts = append(parts, dialect.CommitBatch(revision))
	}

	batch.Text = strings.Join(parts, "\n\n") + "\n"
	return batch
}
