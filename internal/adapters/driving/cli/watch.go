package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
	"github.com/custodia-labs/ragify/internal/logger"
)

// DefaultWatchDebounce is how long the watcher waits for a burst of events to settle.
const DefaultWatchDebounce = 500 * time.Millisecond

var (
	watchScan     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Keep knowledge in sync with a directory",
	Long: `Watch a directory and keep the stored knowledge of --user in sync with it.
New and changed files are processed; a changed file replaces its previous
version. Deleted files are removed and the knowledge rebuilt.

Only files the watcher stored itself are ever replaced or removed. A file
added with "ragify process" keeps its record even if a watched file has the
same name. The watcher remembers what it stored in ` + WatchStateFile + `
inside the directory, so changes made while it was stopped are picked up
by the next scan.

Subdirectories and hidden files are ignored. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchScan, "scan", true, "process files already in the directory that are not stored yet")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", DefaultWatchDebounce, "quiet period before changes are applied")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := durableScope(cmd)
	if err != nil {
		return err
	}

	w, err := newDirWatcher(knowledgeService, scope, args[0], watchDebounce, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer w.Close()

	if watchScan {
		if err := w.Scan(cmd.Context()); err != nil {
			cmd.Printf("Initial scan: %s\n", domain.UserMessage(err))
		}
	}

	cmd.Printf("Watching %s. Press Ctrl+C to stop.\n", w.dir)
	return w.Run(cmd.Context())
}

// dirWatcher mirrors the regular files of one directory into a scope.
type dirWatcher struct {
	knowledge driving.KnowledgeService
	scope     domain.Scope
	dir       string
	debounce  time.Duration
	out       io.Writer
	fs        *fsnotify.Watcher
	log       logger.Logger

	// mu serialises Scan and apply, and guards owned.
	mu    sync.Mutex
	owned map[string]watchedFile
	state *watchState
}

func newDirWatcher(
	knowledge driving.KnowledgeService,
	scope domain.Scope,
	dir string,
	debounce time.Duration,
	out io.Writer,
) (*dirWatcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fs.Add(abs); err != nil {
		fs.Close() //nolint:errcheck
		return nil, fmt.Errorf("watching %s: %w", abs, err)
	}

	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	w := &dirWatcher{
		knowledge: knowledge,
		scope:     scope,
		dir:       abs,
		debounce:  debounce,
		out:       out,
		fs:        fs,
		log:       logger.With("watch"),
	}
	w.state, err = loadWatchState(filepath.Join(abs, WatchStateFile))
	if err != nil {
		w.log.Warn("starting without remembered files: %v", err)
		w.state = &watchState{}
	}
	w.owned = w.state.owned(scope.Key())
	return w, nil
}

// Close stops watching.
func (w *dirWatcher) Close() error {
	return w.fs.Close()
}

// Scan brings the scope in line with the directory as it is now. Files
// not stored by the watcher, or changed since, are processed. Files it
// stored that are gone from the directory are removed.
func (w *dirWatcher) Scan(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	stored, err := w.storedRefs(ctx)
	if err != nil {
		return err
	}
	w.forgetMissing(stored)

	present := make(map[string]bool)
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || ignored(e.Name()) {
			continue
		}
		present[e.Name()] = true
		info, err := e.Info()
		if err != nil {
			continue
		}
		if prev, ok := w.owned[e.Name()]; ok && prev.matches(info) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}

	for name := range w.owned {
		if !present[name] {
			w.removeOwned(ctx, name)
		}
	}
	if len(paths) > 0 {
		if err := w.upsert(ctx, paths); err != nil {
			w.saveStateOrWarn()
			return err
		}
	}
	w.saveStateOrWarn()
	return nil
}

// Run applies changes until ctx is cancelled or the watcher is closed.
func (w *dirWatcher) Run(ctx context.Context) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if ignored(filepath.Base(ev.Name)) || (ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write)) {
				continue
			}
			w.log.Debug("%s %s", ev.Op, ev.Name)
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("%v", err)

		case <-timer.C:
			w.apply(ctx, pending)
			pending = make(map[string]struct{})
		}
	}
}

// apply settles a batch of changed paths by looking at what is on disk now.
func (w *dirWatcher) apply(ctx context.Context, changed map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var upserts []string
	for path := range changed {
		info, err := os.Stat(path)
		switch {
		case err == nil && info.Mode().IsRegular():
			upserts = append(upserts, path)
		case errors.Is(err, os.ErrNotExist):
			w.removeOwned(ctx, filepath.Base(path))
		}
	}

	if len(upserts) > 0 {
		if err := w.upsert(ctx, upserts); err != nil {
			w.report("Processing failed: %s", domain.UserMessage(err))
		}
	}
	w.saveStateOrWarn()
}

// upsert processes paths and then drops the versions the watcher stored
// for them before, so the knowledge is never empty while a file is being
// updated. The records created by the call become the watcher's.
func (w *dirWatcher) upsert(ctx context.Context, paths []string) error {
	var (
		blobs []domain.DocumentBlob
		infos = make(map[string]os.FileInfo)
	)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			w.log.Warn("skipping %s: %v", p, err)
			continue
		}
		b, err := readBlobs([]string{p})
		if err != nil {
			w.log.Warn("skipping %s: %v", p, err)
			continue
		}
		blobs = append(blobs, b...)
		infos[b[0].Name] = info
	}
	if len(blobs) == 0 {
		return nil
	}

	before, err := w.storedRefs(ctx)
	if err != nil {
		return err
	}
	result, err := w.knowledge.ProcessFiles(ctx, w.scope, blobs)
	if result == nil {
		return err
	}
	for _, r := range result.Files {
		w.report("Processed %s (%s)", r.Name, r.Status)
	}
	after, listErr := w.storedRefs(ctx)
	if listErr != nil {
		return errors.Join(err, listErr)
	}

	for name, info := range infos {
		var created []string
		for _, ref := range after[name] {
			if !slices.Contains(before[name], ref) {
				created = append(created, ref)
			}
		}
		if len(created) == 0 {
			continue
		}
		previous := w.owned[name].Refs
		w.owned[name] = newWatchedFile(created, info)
		for _, ref := range previous {
			if _, err := w.knowledge.RemoveFile(ctx, w.scope, ref); err != nil && !errors.Is(err, domain.ErrNotFound) {
				w.log.Warn("dropping previous version %s: %v", ref, err)
			}
		}
	}
	return err
}

// removeOwned drops every record the watcher stored for name.
func (w *dirWatcher) removeOwned(ctx context.Context, name string) {
	file, ok := w.owned[name]
	if !ok {
		return
	}
	var kept []string
	for _, ref := range file.Refs {
		result, err := w.knowledge.RemoveFile(ctx, w.scope, ref)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			w.report("Removing %s failed: %s", name, domain.UserMessage(err))
			kept = append(kept, ref)
		default:
			w.report("Removed %s, %d file(s) left", result.Removed, result.Remaining)
		}
	}
	if len(kept) == 0 {
		delete(w.owned, name)
		return
	}
	file.Refs = kept
	w.owned[name] = file
}

// forgetMissing drops owned refs that are no longer stored.
func (w *dirWatcher) forgetMissing(stored map[string][]string) {
	for name, file := range w.owned {
		var kept []string
		for _, ref := range file.Refs {
			if slices.Contains(stored[name], ref) {
				kept = append(kept, ref)
			}
		}
		if len(kept) == 0 {
			delete(w.owned, name)
			continue
		}
		file.Refs = kept
		w.owned[name] = file
	}
}

func (w *dirWatcher) saveStateOrWarn() {
	w.state.setOwned(w.scope.Key(), w.owned)
	if err := w.state.save(filepath.Join(w.dir, WatchStateFile)); err != nil {
		w.log.Warn("saving %s: %v", WatchStateFile, err)
	}
}

// storedRefs maps stored file names to their refs.
func (w *dirWatcher) storedRefs(ctx context.Context) (map[string][]string, error) {
	files, err := w.knowledge.ListFiles(ctx, w.scope)
	if err != nil {
		return nil, err
	}
	refs := make(map[string][]string, len(files))
	for _, f := range files {
		refs[f.Name] = append(refs[f.Name], f.Ref)
	}
	return refs, nil
}

func (w *dirWatcher) report(format string, args ...any) {
	fmt.Fprintf(w.out, format+"\n", args...)
}

// ignored reports whether a file name is hidden or an editor/office temp file.
func ignored(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasPrefix(name, "~$") ||
		strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") ||
		strings.HasSuffix(name, ".tmp")
}
