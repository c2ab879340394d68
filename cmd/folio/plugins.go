package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dshills/folio/internal/config"
	"github.com/dshills/folio/internal/logging"
	"github.com/dshills/folio/internal/plugin/lua"
	"github.com/dshills/folio/internal/plugin/manifest"
	"github.com/dshills/folio/internal/plugin/watcher"
	"github.com/dshills/folio/internal/reader"
)

// loadPlugins discovers script plugins and activates them. Broken plugins
// are logged and skipped.
func loadPlugins(ctx context.Context, s *reader.Session, l *manifest.Loader, opts []lua.StateOption, logger *logging.Logger) error {
	entries, err := l.Discover()
	if err != nil {
		logger.Warn("%v", err)
	}
	descs, err := lua.Descriptors(entries, opts...)
	if err != nil {
		logger.Warn("%v", err)
	}
	if err := s.Register(ctx, descs...); err != nil {
		logger.Warn("%v", err)
	}
	logger.Info("loaded %d plugin(s) from %d path(s)", len(descs), len(l.Paths()))
	return s.Activate(ctx)
}

// render prints the markup of every unit, one per line.
func render(ctx context.Context, s *reader.Session, w io.Writer) error {
	els, err := s.Render(ctx)
	if errors.Is(err, reader.ErrNoContentTree) {
		_, err = fmt.Fprintf(w, "# %s: native track, nothing to render\n", s.Document().ID)
		return err
	}
	if err != nil {
		return err
	}
	for _, el := range els {
		if _, err := fmt.Fprintln(w, el.Markup()); err != nil {
			return err
		}
	}
	return nil
}

// reloader applies plugin file changes to a session.
type reloader struct {
	session *reader.Session
	loader  *manifest.Loader
	opts    []lua.StateOption
	logger  *logging.Logger
}

func (r *reloader) apply(ctx context.Context, c watcher.Change) error {
	old, known := r.loader.ByKey(c.Key)

	if c.Op.Has(watcher.OpRemoved) {
		if !known || old.Err != nil {
			return nil
		}
		r.logger.Info("plugin %s removed", old.Name)
		if err := r.session.Remove(ctx, old.Name); err != nil {
			return err
		}
		_, _ = r.loader.Refresh(c.Key)
		return nil
	}

	e, err := r.loader.Refresh(c.Key)
	if err != nil {
		return err
	}
	if known && old.Err == nil && old.Name != e.Name {
		if err := r.session.Remove(ctx, old.Name); err != nil {
			r.logger.Warn("remove %s: %v", old.Name, err)
		}
	}
	return r.session.Reload(ctx, lua.NewDescriptor(e.Manifest, r.opts...))
}

// watch re-renders the document after every plugin change until ctx ends.
func watch(ctx context.Context, cfg config.Config, s *reader.Session, l *manifest.Loader, opts []lua.StateOption, logger *logging.Logger) error {
	w, err := watcher.New(
		watcher.WithDelay(cfg.Reader.WatchDelay.Std()),
		watcher.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range cfg.Reader.PluginDirs {
		if err := w.Add(dir); err != nil {
			if errors.Is(err, watcher.ErrPathNotExist) {
				logger.Warn("not watching %s: %v", dir, err)
				continue
			}
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	if len(w.Roots()) == 0 {
		return errors.New("no plugin directory to watch")
	}

	r := &reloader{session: s, loader: l, opts: opts, logger: logger}
	logger.Info("watching %d plugin path(s)", len(w.Roots()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors():
			if !ok {
				return nil
			}
			logger.Warn("watcher: %v", err)
		case c, ok := <-w.Changes():
			if !ok {
				return nil
			}
			if err := r.apply(ctx, c); err != nil {
				logger.Warn("reload %s: %v", c.Key, err)
				continue
			}
			if err := render(ctx, s, os.Stdout); err != nil {
				logger.Warn("render: %v", err)
			}
		}
	}
}
