package media

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DirSource serves media objects from a local directory tree. Keys are
// slash-separated paths relative to the root. Listing is paginated the way a
// remote bucket would be so callers exercise the same token loop.
type DirSource struct {
	root     string
	pageSize int
}

// NewDirSource creates a source over the given directory
func NewDirSource(root string, pageSize int) *DirSource {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &DirSource{root: root, pageSize: pageSize}
}

// List returns one page of objects under the prefix, ordered by key. The
// token is the numeric offset of the next page.
func (d *DirSource) List(ctx context.Context, prefix, token string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objects, err := d.scan(prefix)
	if err != nil {
		return nil, err
	}

	offset := 0
	if token != "" {
		offset, err = strconv.Atoi(token)
		if err != nil || offset < 0 {
			return nil, fmt.Errorf("invalid page token %q", token)
		}
	}

	if offset >= len(objects) {
		return &Page{}, nil
	}

	end := offset + d.pageSize
	next := ""
	if end < len(objects) {
		next = strconv.Itoa(end)
	} else {
		end = len(objects)
	}

	return &Page{Objects: objects[offset:end], NextToken: next}, nil
}

// Download reads the object's bytes
func (d *DirSource) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := d.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// scan walks the tree and collects regular files under the prefix
func (d *DirSource) scan(prefix string) ([]Object, error) {
	var objects []Object

	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		objects = append(objects, Object{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("media directory %s does not exist", d.root)
		}
		return nil, fmt.Errorf("failed to list media directory: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// resolve maps a key back to a path inside the root, rejecting escapes
func (d *DirSource) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}
