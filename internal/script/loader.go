package script

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"strings"
)

const byteOrderMark = "\ufeff"

// Loader reads scripts from a working copy.
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a loader over fsys, rooted at the working copy.
func NewLoader(fsys fs.FS) *Loader {
	return &Loader{fsys: fsys}
}

// NewDirLoader returns a loader over the working copy at dir.
func NewDirLoader(dir string) *Loader {
	return NewLoader(os.DirFS(dir))
}

// Load reads the script at the repository-relative path p. A leading byte
// order mark is dropped.
func (l *Loader) Load(p string) (Script, error) {
	name := strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
	if !fs.ValidPath(name) {
		return Script{}, &MissingScriptError{Path: p, Err: fs.ErrInvalid}
	}

	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return Script{}, &MissingScriptError{Path: p, Err: err}
	}

	return Script{
		Name:     path.Base(name),
		Path:     name,
		Contents: strings.TrimPrefix(string(data), byteOrderMark),
	}, nil
}

// LoadAll loads every path in order. The first failure aborts the whole load
// and no scripts are returned.
func (l *Loader) LoadAll(paths []string) ([]Script, error) {
	scripts := make([]Script, 0, len(paths))
	for _, p := range paths {
		s, err := l.Load(p)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

// IsMissing reports whether err is a missing-script failure.
func IsMissing(err error) bool {
	return errors.Is(err, ErrMissingScript)
}
