package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/nimbus-labs/corpus/internal/core/domain"
	"github.com/nimbus-labs/corpus/internal/core/ports/driving"
	"github.com/nimbus-labs/corpus/internal/logger"
)

// ingest command flags.
var (
	ingestSource   string
	ingestTitle    string
	ingestExternal string
	ingestWatch    bool
	ingestReindex  bool
)

// textExtensions lists file types picked up when ingesting a directory.
var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".rst": true,
	".html": true, ".csv": true, ".json": true, ".yaml": true, ".yml": true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file-or-directory>...",
	Short: "Ingest text files into the knowledge store",
	Long: `Ingest reads text files (or whole directories of them) and indexes
their content for retrieval. Ingestion is idempotent: unchanged files
are skipped, changed files are re-chunked under the same document.

With --watch, ingest keeps running and re-ingests files as they change.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "default", "collection the documents belong to")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (single file only)")
	ingestCmd.Flags().StringVar(&ingestExternal, "id", "", "external id (single file only; defaults to the file path)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep running and re-ingest files on change")
	ingestCmd.Flags().BoolVar(&ingestReindex, "reindex", false, "force re-ingestion regardless of content hash")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	paths, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no ingestable files under %s", strings.Join(args, ", "))
	}

	if err := ingestFiles(cmd, a, paths); err != nil {
		return err
	}

	if ingestWatch {
		return watchFiles(cmd, a, args)
	}
	return nil
}

// ingestFiles runs the pipeline for each path and prints per-file results.
func ingestFiles(cmd *cobra.Command, a *app, paths []string) error {
	ctx := cmd.Context()
	var failures int

	for _, path := range paths {
		result := ingestFile(cmd, a, path)
		switch {
		case result.Skipped:
			fmt.Fprintf(cmd.OutOrStdout(), "skipped  %s (%s)\n", path, result.SkipReason)
		case result.Success:
			fmt.Fprintf(cmd.OutOrStdout(), "indexed  %s (%d chunks)\n", path, result.ChunksCreated)
		default:
			failures++
			fmt.Fprintf(cmd.ErrOrStderr(), "failed   %s: %s\n", path, result.Error)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failures, len(paths))
	}
	return nil
}

// ingestFile ingests a single file, honoring the --reindex flag.
func ingestFile(cmd *cobra.Command, a *app, path string) domain.IngestResult {
	content, err := os.ReadFile(path)
	if err != nil {
		return domain.IngestResult{Error: fmt.Sprintf("reading file: %v", err)}
	}

	externalID := ingestExternal
	if externalID == "" {
		externalID = path
	}
	title := ingestTitle
	if title == "" {
		title = filepath.Base(path)
	}

	req := driving.IngestRequest{
		Content:    string(content),
		SourceID:   ingestSource,
		ExternalID: externalID,
		Title:      title,
		Metadata:   map[string]any{"path": path},
	}

	if ingestReindex {
		return a.ingestor.Reindex(cmd.Context(), ingestSource, externalID, req)
	}
	return a.ingestor.Ingest(cmd.Context(), req)
}

// collectFiles expands arguments into the list of ingestable files.
func collectFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != arg {
					return filepath.SkipDir
				}
				return nil
			}
			if textExtensions[strings.ToLower(filepath.Ext(path))] {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

// watchFiles re-ingests files as they change until interrupted. Write
// bursts are debounced per path.
func watchFiles(cmd *cobra.Command, a *app, roots []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("stat %s: %w", root, err)
		}
		watchTarget := root
		if !info.IsDir() {
			watchTarget = filepath.Dir(root)
		}
		if err := watcher.Add(watchTarget); err != nil {
			return fmt.Errorf("watching %s: %w", watchTarget, err)
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), "watching for changes (ctrl-c to stop)")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	const debounce = 500 * time.Millisecond
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-sigs:
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !textExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case now := <-ticker.C:
			for path, stamp := range pending {
				if now.Sub(stamp) < debounce {
					continue
				}
				delete(pending, path)

				result := ingestFile(cmd, a, path)
				switch {
				case result.Skipped:
					logger.Debug("change to %s skipped (%s)", path, result.SkipReason)
				case result.Success:
					fmt.Fprintf(cmd.OutOrStdout(), "re-indexed %s (%d chunks)\n", path, result.ChunksCreated)
				default:
					fmt.Fprintf(cmd.ErrOrStderr(), "failed     %s: %s\n", path, result.Error)
				}
			}
		}
	}
}
