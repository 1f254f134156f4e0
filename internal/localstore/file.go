package localstore

import (
    "context"
    "errors"
    "fmt"
    "net/url"
    "os"
    "path/filepath"
    "sync"
)

// File stores one file per key under a directory. Writes go through a temp
// file and a rename so a crash never leaves a half-written queue behind.
type File struct {
    dir string
    mu  sync.Mutex
}

func NewFile(dir string) (*File, error) {
    if dir == "" { return nil, errors.New("localstore: directory is required") }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return nil, fmt.Errorf("localstore: create dir: %w", err)
    }
    return &File{dir: dir}, nil
}

func (f *File) path(key string) string {
    return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    b, err := os.ReadFile(f.path(key))
    if errors.Is(err, os.ErrNotExist) { return "", false, nil }
    if err != nil { return "", false, err }
    return string(b), true, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    tmp, err := os.CreateTemp(f.dir, ".tmp-*")
    if err != nil { return err }
    if _, err := tmp.WriteString(value); err != nil {
        _ = tmp.Close()
        _ = os.Remove(tmp.Name())
        return err
    }
    if err := tmp.Sync(); err != nil {
        _ = tmp.Close()
        _ = os.Remove(tmp.Name())
        return err
    }
    if err := tmp.Close(); err != nil {
        _ = os.Remove(tmp.Name())
        return err
    }
    return os.Rename(tmp.Name(), f.path(key))
}

func (f *File) Remove(_ context.Context, key string) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    err := os.Remove(f.path(key))
    if errors.Is(err, os.ErrNotExist) { return nil }
    return err
}
