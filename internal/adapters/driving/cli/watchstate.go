package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// WatchStateFile is the hidden file, inside a watched directory, listing
// the records the watcher stored for each of its files.
const WatchStateFile = ".ragify-watch.toml"

// watchedFile is what the watcher stored for one file name.
type watchedFile struct {
	Scope   string   `toml:"scope"`
	Name    string   `toml:"name"`
	Refs    []string `toml:"refs"`
	Size    int64    `toml:"size"`
	ModTime int64    `toml:"mod_time"`
}

func newWatchedFile(refs []string, info os.FileInfo) watchedFile {
	return watchedFile{Refs: refs, Size: info.Size(), ModTime: info.ModTime().UnixNano()}
}

// matches reports whether info still describes the stored version.
func (f watchedFile) matches(info os.FileInfo) bool {
	return f.Size == info.Size() && f.ModTime == info.ModTime().UnixNano()
}

// watchState is the content of WatchStateFile. Several scopes may watch
// the same directory, so entries carry their scope key.
type watchState struct {
	Files []watchedFile `toml:"files"`
}

// loadWatchState reads path. A missing file is an empty state.
func loadWatchState(path string) (*watchState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &watchState{}, nil
	}
	if err != nil {
		return nil, err
	}
	var st watchState
	if err := toml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &st, nil
}

// owned returns the entries of one scope keyed by file name.
func (st *watchState) owned(scope string) map[string]watchedFile {
	out := make(map[string]watchedFile)
	for _, f := range st.Files {
		if f.Scope == scope && len(f.Refs) > 0 {
			out[f.Name] = f
		}
	}
	return out
}

// setOwned replaces the entries of one scope.
func (st *watchState) setOwned(scope string, owned map[string]watchedFile) {
	st.Files = slices.DeleteFunc(st.Files, func(f watchedFile) bool { return f.Scope == scope })
	names := make([]string, 0, len(owned))
	for name := range owned {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		f := owned[name]
		f.Scope, f.Name = scope, name
		st.Files = append(st.Files, f)
	}
}

// save writes the state by rename so a crash never leaves it half written.
func (st *watchState) save(path string) error {
	data, err := toml.Marshal(st)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
