package main

import (
	"bufio"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/schemasync/internal/config"
)

// cliOptions receives the raw flag values. Only flags set on the command
// line override the file and environment layers.
type cliOptions struct {
	configPath string
	values     config.Config
	limit      int
}

type flagBinding struct {
	name  string
	apply func(dst *config.Config, src config.Config)
}

var flagBindings = []flagBinding{
	{"server", func(d *config.Config, s config.Config) { d.Server = s.Server }},
	{"database", func(d *config.Config, s config.Config) { d.Database = s.Database }},
	{"user", func(d *config.Config, s config.Config) { d.User = s.User }},
	{"password", func(d *config.Config, s config.Config) { d.Password = s.Password }},
	{"connection-string", func(d *config.Config, s config.Config) { d.ConnectionString = s.ConnectionString }},
	{"dialect", func(d *config.Config, s config.Config) { d.Dialect = s.Dialect }},
	{"working-dir", func(d *config.Config, s config.Config) { d.WorkingDir = s.WorkingDir }},
	{"directory", func(d *config.Config, s config.Config) { d.ScriptsDir = s.ScriptsDir }},
	{"remote", func(d *config.Config, s config.Config) { d.Remote = s.Remote }},
	{"branch", func(d *config.Config, s config.Config) { d.Branch = s.Branch }},
	{"git", func(d *config.Config, s config.Config) { d.GitExecutable = s.GitExecutable }},
	{"table", func(d *config.Config, s config.Config) { d.MarkerTable = s.MarkerTable }},
	{"timeout", func(d *config.Config, s config.Config) { d.CommandTimeout = s.CommandTimeout }},
	{"dry-run", func(d *config.Config, s config.Config) { d.DryRun = s.DryRun }},
	{"print-all", func(d *config.Config, s config.Config) { d.PrintAll = s.PrintAll }},
	{"mark-only", func(d *config.Config, s config.Config) { d.MarkOnly = s.MarkOnly }},
	{"prompt", func(d *config.Config, s config.Config) { d.PromptUser = s.PromptUser }},
	{"log-format", func(d *config.Config, s config.Config) { d.LogFormat = s.LogFormat }},
	{"log-level", func(d *config.Config, s config.Config) { d.LogLevel = s.LogLevel }},
}

func newRootCommand(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:   "schemasync",
		Short: "Apply the SQL scripts changed in a git repository to a database",
		Long: `schemasync synchronizes a git working copy with its remote, diffs the revision
recorded in the database against the new head, and runs every changed script
in one transaction. The new revision is recorded only after the commit.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			_, runErr := a.engine.Run(cmd.Context(), a.runOptions())
			if a.cfg.PromptUser {
				waitForEnter(cmd)
			}
			return runErr
		},
	}

	fs := root.PersistentFlags()
	v := &opts.values
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVarP(&v.Server, "server", "s", "", "database server host")
	fs.StringVar(&v.Database, "database", "", "database to upgrade (file path for sqlite)")
	fs.StringVarP(&v.User, "user", "u", "", "database user; integrated security when empty")
	fs.StringVarP(&v.Password, "password", "p", "", "database password")
	fs.StringVar(&v.ConnectionString, "connection-string", "", "full driver connection string")
	fs.StringVar(&v.Dialect, "dialect", "", "sqlserver, postgres or sqlite (default sqlserver)")
	fs.StringVarP(&v.WorkingDir, "working-dir", "w", "", "git working copy holding the scripts")
	fs.StringVarP(&v.ScriptsDir, "directory", "d", "", "repository directory the scripts live under")
	fs.StringVar(&v.Remote, "remote", "", "git remote to synchronize with (default origin)")
	fs.StringVarP(&v.Branch, "branch", "b", "", "git branch to check out (default master)")
	fs.StringVar(&v.GitExecutable, "git", "", "git executable (default git)")
	fs.StringVar(&v.MarkerTable, "table", "", "tracking table (default database_version)")
	fs.DurationVar(&v.CommandTimeout, "timeout", 0, "maximum time the server may spend on the batch")
	fs.BoolVar(&v.DryRun, "dry-run", false, "run the scripts and roll them back")
	fs.BoolVar(&v.PrintAll, "print-all", false, "print script contents during a dry run")
	fs.BoolVar(&v.MarkOnly, "mark-only", false, "record the head revision without running scripts")
	fs.BoolVar(&v.PromptUser, "prompt", false, "wait for Enter before exiting")
	fs.StringVar(&v.LogFormat, "log-format", "", "text or json (default text)")
	fs.StringVar(&v.LogLevel, "log-level", "", "debug, info, warn or error (default info)")

	root.AddCommand(newInitCommand(opts), newStatusCommand(opts), newHistoryCommand(opts))
	return root
}

func newInitCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the tracking table when it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if err := a.markers.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			cmd.Printf("Tracking table %s is ready\n", a.markers.Table())
			return nil
		},
	}
}

func newStatusCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the recorded revision, the head revision and the pending scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			status, err := a.engine.Status(cmd.Context())
			if err != nil {
				return err
			}

			current := status.Current
			if current == "" {
				current = "<none>"
			}
			cmd.Printf("Database version: %s\n", current)
			cmd.Printf("Repository HEAD:  %s\n", status.Head)
			cmd.Printf("Pending scripts:  %d\n", len(status.Pending))
			for _, name := range status.Pending {
				cmd.Printf("  %s\n", name)
			}
			return nil
		},
	}
}

func newHistoryCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded revisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			markers, err := a.markers.History(cmd.Context(), opts.limit)
			if err != nil {
				return err
			}
			if len(markers) == 0 {
				cmd.Println("No revisions recorded")
				return nil
			}
			for _, m := range markers {
				cmd.Printf("%s  %s\n", m.DeployedAt.UTC().Format(time.RFC3339), m.Revision)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "number of rows to show; 0 shows all")
	return cmd
}

// resolveConfig layers the set flags over the file and environment.
func resolveConfig(cmd *cobra.Command, opts *cliOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	for _, b := range flagBindings {
		if flags.Changed(b.name) {
			b.apply(&cfg, opts.values)
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command, opts *cliOptions) (*app, error) {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, cmd.OutOrStdout())
}

func waitForEnter(cmd *cobra.Command) {
	fmt.Fprint(cmd.OutOrStdout(), "\nPress Enter to continue.")
	_, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
}
