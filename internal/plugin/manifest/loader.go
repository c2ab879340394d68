package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is one discovered plugin. Err is set when the plugin was found but
// its manifest is unusable.
type Entry struct {
	// Key is the directory name, or the file name without .lua for a
	// single-file plugin. It usually equals Name.
	Key      string
	Name     string
	Path     string
	Manifest *Manifest
	Err      error
}

// Loader discovers script plugins in a list of directories. Earlier
// directories take precedence over later ones.
type Loader struct {
	paths      []string
	discovered map[string]*Entry
}

// NewLoader creates a loader searching paths in order.
func NewLoader(paths ...string) *Loader {
	return &Loader{
		paths:      paths,
		discovered: make(map[string]*Entry),
	}
}

// Paths returns the search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// Discover scans every search path and returns the plugins sorted by name.
// Missing directories are skipped.
func (l *Loader) Discover() ([]*Entry, error) {
	l.discovered = make(map[string]*Entry)

	var errs []string
	for _, base := range l.paths {
		if err := l.discoverIn(base); err != nil {
			errs = append(errs, err.Error())
		}
	}

	entries := make([]*Entry, 0, len(l.discovered))
	for _, e := range l.discovered {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	if len(errs) > 0 {
		return entries, fmt.Errorf("plugin discovery: %s", strings.Join(errs, "; "))
	}
	return entries, nil
}

func (l *Loader) discoverIn(base string) error {
	dirEntries, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, de := range dirEntries {
		if !de.IsDir() {
			if filepath.Ext(de.Name()) == ".lua" {
				l.add(fileEntry(base, de.Name()))
			}
			continue
		}
		l.add(Inspect(filepath.Join(base, de.Name())))
	}
	return nil
}

// add keeps the first discovery of a name.
func (l *Loader) add(e *Entry) {
	if _, exists := l.discovered[e.Name]; !exists {
		l.discovered[e.Name] = e
	}
}

// Inspect examines one plugin directory.
func Inspect(dir string) *Entry {
	name := filepath.Base(dir)
	e := &Entry{Key: name, Name: name, Path: dir}

	m, err := LoadDir(dir)
	switch {
	case err == nil:
		e.Manifest = m
		e.Name = m.Name
		return e
	case !errors.Is(err, ErrNoEntryPoint):
		e.Err = fmt.Errorf("invalid manifest: %w", err)
		return e
	}

	if _, err := os.Stat(filepath.Join(dir, DefaultMain)); err == nil {
		e.Manifest = Minimal(name, dir, DefaultMain)
		return e
	}
	e.Err = ErrNoEntryPoint
	return e
}

// Get returns a discovered plugin by name.
func (l *Loader) Get(name string) (*Entry, bool) {
	e, ok := l.discovered[name]
	return e, ok
}

// Find returns the plugin named name from the first search path holding it.
func (l *Loader) Find(name string) (*Entry, error) {
	if e, ok := l.discovered[name]; ok {
		return e, nil
	}
	for _, base := range l.paths {
		dir := filepath.Join(base, name)
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			if e := Inspect(dir); e.Err == nil {
				l.discovered[e.Name] = e
				return e, nil
			}
		}
		file := name + ".lua"
		if _, err := os.Stat(filepath.Join(base, file)); err == nil {
			e := fileEntry(base, file)
			l.discovered[name] = e
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func fileEntry(base, file string) *Entry {
	name := strings.TrimSuffix(file, ".lua")
	return &Entry{Key: name, Name: name, Path: base, Manifest: Minimal(name, base, file)}
}

// ByKey returns the discovered plugin stored under a directory or file key.
func (l *Loader) ByKey(key string) (*Entry, bool) {
	for _, e := range l.discovered {
		if e.Key == key {
			return e, true
		}
	}
	return nil, false
}

// Refresh forgets the plugin stored under key and reads it from disk
// again. Unlike Find it reports a broken manifest instead of skipping it.
func (l *Loader) Refresh(key string) (*Entry, error) {
	for name, e := range l.discovered {
		if e.Key == key {
			delete(l.discovered, name)
		}
	}
	for _, base := range l.paths {
		dir := filepath.Join(base, key)
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			e := Inspect(dir)
			if e.Err != nil {
				return e, fmt.Errorf("plugin %s: %w", key, e.Err)
			}
			l.add(e)
			return e, nil
		}
		file := key + ".lua"
		if _, err := os.Stat(filepath.Join(base, file)); err == nil {
			e := fileEntry(base, file)
			l.add(e)
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
}

// Errors returns the discovered plugins that could not be loaded.
func (l *Loader) Errors() []*Entry {
	var out []*Entry
	for _, e := range l.discovered {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
