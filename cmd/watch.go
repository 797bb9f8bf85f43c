package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"savemanager/internal/logging"
	"savemanager/internal/snapshot"
	"savemanager/internal/utils"
	"savemanager/internal/watcher"
)

var (
	watchDebounce time.Duration
	watchQuiet    time.Duration
	watchSchedule string
	watchPrefix   string
	watchKeep     int
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Snapshot the source folder automatically after the game saves",
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
			return runWatch(src)
		},
	}
	cmd.Flags().StringVar(&sourcePath, "source", "", "Game save folder to watch")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Per-file event debounce")
	cmd.Flags().DurationVar(&watchQuiet, "quiet-period", 5*time.Second, "How long the folder must be unchanged before a snapshot")
	cmd.Flags().StringVar(&watchSchedule, "schedule", "", `Also snapshot on a cron schedule, e.g. "@every 30m"`)
	cmd.Flags().StringVar(&watchPrefix, "prefix", "auto", "Name prefix of automatic saves")
	cmd.Flags().IntVar(&watchKeep, "keep", 0, "Keep only the newest N automatic saves (0 keeps all)")
	return cmd
}

func runWatch(src string) error {
	log := current.log
	mgr := current.mgr

	if !utils.IsDirectory(src) {
		return fmt.Errorf("watch path does not exist: %s", src)
	}
	abs, err := filepath.Abs(src)
	if err != nil {
		return fmt.Errorf("invalid watch path: %w", err)
	}
	src = abs

	log.Info("Starting watch on %s", src)

	// one snapshot operation at a time
	var mu sync.Mutex
	snap := func(reason string) {
		mu.Lock()
		defer mu.Unlock()

		name, err := mgr.Create(src, snapshot.NextName(mgr.SavesDir(), watchPrefix), nil)
		if err != nil {
			log.Error("Automatic save (%s) failed: %v", reason, err)
			return
		}
		fmt.Printf("%s  created %s (%s)\n", time.Now().Format("15:04:05"), name, reason)

		if watchKeep > 0 {
			if _, err := mgr.Prune(watchPrefix, watchKeep); err != nil {
				log.Error("Pruning automatic saves failed: %v", err)
			}
		}
	}

	w, err := watcher.NewWatcher(watcher.Options{
		Debounce: watchDebounce,
		Quiet:    watchQuiet,
		Exclude:  excludedDirs(),
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.AddWatch(src); err != nil {
		return fmt.Errorf("cannot watch %s: %w", src, err)
	}
	w.Start()

	if watchSchedule != "" {
		sched, err := watcher.NewScheduler(watchSchedule, func() { snap("scheduled") })
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		log.Info("Scheduled saves: %s, next at %s", watchSchedule, sched.Next(time.Now()).Format(time.RFC3339))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Watching for game saves. Press Ctrl+C to stop.")

	for {
		select {
		case <-sigChan:
			log.Info("Shutdown signal received...")
			return nil

		case event := <-w.Changes():
			logging.Logf(log, logging.DebugLevel, "%s %s", event.Operation, event.Path)

		case ev := <-w.Settled():
			snap(fmt.Sprintf("%d changes", ev.Changes))

		case err := <-w.Errors():
			log.Warn("Watcher error: %v", err)
		}
	}
}

// excludedDirs keeps the saves and metadata folders out of the watch when
// they live inside the watched tree. Otherwise every automatic save would
// trigger the next one.
func excludedDirs() []string {
	var dirs []string
	for _, d := range []string{current.mgr.SavesDir(), current.paths.MetadataDir} {
		if abs, err := filepath.Abs(d); err == nil {
			dirs = append(dirs, abs)
		}
	}
	return dirs
}
