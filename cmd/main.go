package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"savemanager/internal/config"
	"savemanager/internal/copier"
	"savemanager/internal/logging"
	"savemanager/internal/snapshot"
	"savemanager/internal/utils"
)

var (
	rootPath    string
	savesPath   string
	sourcePath  string
	targetPath  string
	saveName    string
	noBackup    bool
	assumeYes   bool
	quiet       bool
	tailLines   int
	prunePrefix string
	pruneKeep   int
)

// app is everything a command needs, built once per invocation.
type app struct {
	paths config.Paths
	cfg   *config.Store
	log   *logging.Logger
	mgr   *snapshot.Manager
}

var current *app

func main() {
	var rootCmd = &cobra.Command{
		Use:           "savemanager",
		Short:         "Snapshot and restore game save folders",
		Long:          "Copies a game's save folder into named snapshots, restores them back (with an optional safety backup) and keeps a log of everything it did.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			current = a
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current != nil {
				_ = current.log.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&rootPath, "root", "", "Application data root (default $SAVEMANAGER_ROOT or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&savesPath, "saves", "", "Saves folder (default <root>/saves or saves_dir from config)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not echo log lines to the terminal")

	rootCmd.AddCommand(
		createCmd(),
		listCmd(),
		detailsCmd(),
		deleteCmd(),
		restoreCmd(),
		diffCmd(),
		pruneCmd(),
		watchCmd(),
		logCmd(),
		configCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*app, error) {
	root := rootPath
	if root == "" {
		root = config.DefaultRoot()
	}
	paths := config.Layout(root)

	if err := utils.EnsureDirectoryExists(paths.Root); err != nil {
		return nil, fmt.Errorf("failed to create data root: %w", err)
	}

	cfg, err := config.Load(paths.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	opts := logging.Options{
		Path:  paths.LogFile,
		Level: cfg.String("log_level", logging.InfoLevel),
	}
	if quiet || cfg.Bool("hide_log_by_default", true) {
		opts.Output = discardWriter{}
	}
	logger, err := logging.New(opts)
	if err != nil {
		return nil, err
	}

	saves := savesPath
	if saves == "" {
		saves = cfg.String("saves_dir", paths.SavesDir)
	}
	logger.Info("Saves folder: %s", saves)

	mgr := snapshot.New(snapshot.Options{
		SavesDir:    saves,
		MetadataDir: paths.MetadataDir,
		Logger:      logger,
	})

	return &app{paths: paths, cfg: cfg, log: logger, mgr: mgr}, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Copy the source folder into a new save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := sourcePath
			if src == "" {
				src = current.cfg.String("source_dir", "")
			}
			if src == "" {
				printUsageExamples()
				return fmt.Errorf("--source is required (or set source_dir in config)")
			}

			name, err := current.mgr.Create(src, saveName, progressPrinter("Copying"))
			if err != nil {
				return fmt.Errorf("failed to create save: %w", err)
			}

			fmt.Printf("Created save: %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&sourcePath, "source", "", "Game save folder to copy")
	cmd.Flags().StringVar(&saveName, "name", "", "Name of the new save (default save, save_2, ...)")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List existing saves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := current.mgr.List()
			if err != nil {
				return fmt.Errorf("failed to list saves: %w", err)
			}

			if len(names) == 0 {
				fmt.Println("No saves yet.")
			} else {
				fmt.Println("Available saves:")
				fmt.Println("================")
			}
			for _, name := range names {
				created, files := "-", "-"
				if d, ok := current.mgr.Details(name); ok {
					created = humanize.Time(d.CreatedAt)
					files = fmt.Sprintf("%d files", d.FileCount)
				}
				size := "-"
				if n, err := utils.DirSize(current.mgr.Path(name)); err == nil {
					size = humanize.Bytes(uint64(n))
				}
				fmt.Printf("%-24s %12s %10s  %s\n", name, files, size, created)
			}

			orphans, err := current.mgr.Orphans()
			if err != nil {
				current.log.Warn("Failed to read metadata records: %v", err)
				return nil
			}
			if len(orphans) > 0 {
				fmt.Printf("\nRecords without a save folder (remove with delete): %s\n", strings.Join(orphans, ", "))
			}
			return nil
		},
	}
}

func detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <name>",
		Short: "Show the recorded details of a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !current.mgr.Exists(name) {
				return fmt.Errorf("save %s: %w", name, snapshot.ErrNotFound)
			}

			d, ok := current.mgr.Details(name)
			if !ok {
				fmt.Printf("No details available for %s.\n", name)
				return nil
			}

			fmt.Printf("Name:    %s\n", d.Name)
			fmt.Printf("Created: %s (%s)\n", d.CreatedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(d.CreatedAt))
			fmt.Printf("Source:  %s\n", d.Source)
			fmt.Printf("Files:   %d\n", d.FileCount)
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a save and its details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if !current.mgr.Exists(name) && !current.mgr.HasRecord(name) {
				return fmt.Errorf("save %s: %w", name, snapshot.ErrNotFound)
			}
			if !assumeYes && !confirm(fmt.Sprintf("Delete save %s ?", name)) {
				fmt.Println("Cancelled.")
				return nil
			}

			if err := current.mgr.Delete(name); err != nil {
				return fmt.Errorf("failed to delete save: %w", err)
			}
			fmt.Printf("Deleted save: %s\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func restoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <name>",
		Short: "Copy a save back into the game folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := targetPath
			if target == "" {
				target = current.cfg.String("target_dir", current.cfg.String("source_dir", ""))
			}
			if target == "" {
				printUsageExamples()
				return fmt.Errorf("--target is required (or set target_dir in config)")
			}

			makeBackup := current.cfg.Bool("make_backup", true)
			if cmd.Flags().Changed("no-backup") {
				makeBackup = !noBackup
			}

			backup, err := current.mgr.Restore(args[0], target, makeBackup, progressPrinter("Restoring"))
			if err != nil {
				if backup != "" {
					fmt.Fprintf(os.Stderr, "Backup of the previous state is at %s\n", backup)
				}
				return fmt.Errorf("failed to restore save: %w", err)
			}

			if backup == "" {
				backup = "none"
			}
			fmt.Printf("Restored save: %s. Backup: %s\n", args[0], backup)
			return nil
		},
	}
	cmd.Flags().StringVar(&targetPath, "target", "", "Folder to restore into (must exist)")
	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip the backup_before_restore_<time> copy of the target")
	return cmd
}

func diffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <name> <dir>",
		Short: "Compare a save with a folder by content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := current.mgr.Diff(args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to compare: %w", err)
			}

			for _, rel := range report.Missing {
				fmt.Printf("missing   %s\n", rel)
			}
			for _, rel := range report.Modified {
				fmt.Printf("modified  %s\n", rel)
			}
			for _, rel := range report.Extra {
				fmt.Printf("extra     %s\n", rel)
			}
			fmt.Printf("\nSummary: %d identical, %d missing, %d modified, %d extra\n",
				report.Same, len(report.Missing), len(report.Modified), len(report.Extra))

			if !report.Clean() {
				return errors.New("folder differs from save")
			}
			return nil
		},
	}
}

func pruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest saves with a given prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if prunePrefix == "" {
				return fmt.Errorf("--prefix is required")
			}
			deleted, err := current.mgr.Prune(prunePrefix, pruneKeep)
			if err != nil {
				return fmt.Errorf("failed to prune: %w", err)
			}
			for _, name := range deleted {
				fmt.Printf("Deleted save: %s\n", name)
			}
			fmt.Printf("%d saves deleted\n", len(deleted))
			return nil
		},
	}
	cmd.Flags().StringVar(&prunePrefix, "prefix", "", "Only consider saves whose name starts with this")
	cmd.Flags().IntVar(&pruneKeep, "keep", 5, "How many of the newest saves to keep")
	return cmd
}

func logCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the end of the program log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := logging.Tail(current.paths.LogFile, tailLines)
			if os.IsNotExist(err) {
				return fmt.Errorf("log file not found: %s", current.paths.LogFile)
			}
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&tailLines, "lines", "n", logging.DefaultTailLines, "Number of lines to show")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change settings",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Show all settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Printf("# %s\n", current.cfg.Path())
				for _, key := range current.cfg.Keys() {
					v, _ := current.cfg.Get(key)
					fmt.Printf("%s = %s\n", key, v)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one setting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, ok := current.cfg.Get(args[0])
				if !ok {
					return fmt.Errorf("unknown setting %q", args[0])
				}
				fmt.Println(v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one setting",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				key, value := args[0], args[1]
				if strings.HasSuffix(key, "_dir") && value != "" {
					if abs, err := filepath.Abs(value); err == nil {
						value = abs
					}
				}
				if err := current.cfg.Set(key, value); err != nil {
					return err
				}
				if err := current.cfg.Save(); err != nil {
					return fmt.Errorf("failed to save config: %w", err)
				}
				current.log.Info("Setting %s changed to %s", key, value)
				fmt.Printf("%s = %s\n", key, value)
				return nil
			},
		},
	)
	return cmd
}

func progressPrinter(verb string) copier.ProgressFunc {
	return func(done, total int, rel string) {
		fmt.Fprintf(os.Stderr, "\r%s [%d/%d] %.0f%%  ", verb, done, total, float64(done)/float64(total)*100)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N] ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func printUsageExamples() {
	fmt.Fprintf(os.Stderr, `
Usage Examples:
===============

1. Snapshot the game's save folder:
   %[1]s create --source /path/to/game/saves --name before-boss

2. List saves:
   %[1]s list

3. Restore a save (a backup of the target is made first):
   %[1]s restore before-boss --target /path/to/game/saves

4. Snapshot automatically whenever the game saves, keeping the last 10:
   %[1]s watch --source /path/to/game/saves --keep 10

`, os.Args[0])
}
