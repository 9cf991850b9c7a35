// Package migration applies the scripts that changed in a version-controlled
// schema repository to a database as one transaction.
//
// A run compares the revision recorded in the database's tracking table (the
// marker) with a target revision of the repository:
//
//   - the DiffResolver lists the script paths added, modified, copied, or
//     renamed between the two revisions, in the order git reports them;
//   - the scripts are read from the synchronized working copy, and blank
//     placeholder files are left out;
//   - the Applier wraps the remaining scripts in a single transaction labeled
//     with the target revision and sends the whole batch to the server in one
//     call, ending it with COMMIT or, for a dry run, ROLLBACK;
//   - only after the server confirms the commit does the Engine append the
//     target revision to the tracking table.
//
// Scripts run in diff order. The repository's file naming convention is what
// keeps dependent scripts in the right order; nothing here sorts or parses SQL.
//
// Example usage:
//
//	engine, err := migration.NewEngine(migration.EngineConfig{...})
//	if err != nil {
//		return err
//	}
//	result, err := engine.Run(ctx, migration.RunOptions{DryRun: true})
package migration
