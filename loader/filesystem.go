package loader

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/twigo-lang/twigo/cache"
)

// Logger is used to print watch-driven cache invalidations and watcher
// errors.
var Logger = log.New(os.Stderr, "[twigo] ", 0)

// FileSystemLoader resolves a key against an ordered list of root
// directories, appending Suffix if the key doesn't already carry it. The
// first root under which the file exists wins. This is an optional
// embedder-side adapter, not a core engine component: the core only
// depends on the Loader interface above.
type FileSystemLoader struct {
	Roots  []string
	Suffix string
}

// NewFileSystemLoader returns a loader searching roots in order, treating
// each key as a path relative to whichever root contains it.
func NewFileSystemLoader(suffix string, roots ...string) *FileSystemLoader {
	return &FileSystemLoader{Roots: roots, Suffix: suffix}
}

func (l *FileSystemLoader) Load(key string) (string, error) {
	name := key
	if l.Suffix != "" && !strings.HasSuffix(name, l.Suffix) {
		name += l.Suffix
	}
	for _, root := range l.Roots {
		path := filepath.Join(root, name)
		content, err := os.ReadFile(path)
		if err == nil {
			return string(content), nil
		}
	}
	return "", &NotFoundError{Key: key}
}

// Watcher observes a FileSystemLoader's roots and invalidates a Cache
// entry whenever the corresponding source file changes, so the next
// render recompiles it. It invalidates one key at a time rather than
// recompiling eagerly; the engine recompiles lazily on the next Fetch
// miss.
type Watcher struct {
	loader  *FileSystemLoader
	cache   *cache.Cache
	watcher *fsnotify.Watcher
}

// NewWatcher creates a Watcher that invalidates entries of c as files
// under l's roots change. Call WatchRoots to start observing, then Run in
// its own goroutine.
func NewWatcher(l *FileSystemLoader, c *cache.Cache) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{loader: l, cache: c, watcher: fsw}, nil
}

// WatchRoots recursively adds every directory under the loader's roots to
// the underlying fsnotify watcher.
func (w *Watcher) WatchRoots() error {
	for _, root := range w.loader.Roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return w.watcher.Add(path)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Run blocks, invalidating cache entries as change events arrive. Call it
// in its own goroutine; it returns when Close is called.
func (w *Watcher) Run() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			key := w.keyForPath(ev.Name)
			if key == "" {
				continue
			}
			w.cache.Invalidate(key)
			Logger.Printf("invalidated %q (%s)", key, ev.Op)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error { return w.watcher.Close() }

// keyForPath reverses FileSystemLoader's resolution: strips whichever
// root prefix matches and the configured suffix, yielding the key that
// was originally passed to Load.
func (w *Watcher) keyForPath(path string) string {
	for _, root := range w.loader.Roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		rel = filepath.ToSlash(rel)
		if w.loader.Suffix != "" {
			rel = strings.TrimSuffix(rel, w.loader.Suffix)
		}
		return rel
	}
	return ""
}
