package cloud

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirContainer is a filesystem-backed container, used for staging a
// publication locally (e.g. to a mounted bucket) and in tests.
type DirContainer struct {
	Root string
}

// NewDirContainer creates the backing directory if needed.
func NewDirContainer(root string) (*DirContainer, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}
	return &DirContainer{Root: root}, nil
}

// List implements Container.
func (c *DirContainer) List(ctx context.Context) ([]Object, error) {
	var objects []Object

	err := filepath.WalkDir(c.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(c.Root, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sum := md5.Sum(data)

		objects = append(objects, Object{
			Name: filepath.ToSlash(rel),
			ETag: hex.EncodeToString(sum[:]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return objects, nil
}

// Upload implements Container.
func (c *DirContainer) Upload(ctx context.Context, name string, src io.Reader) error {
	dst := filepath.Join(c.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, src)
	return err
}

// Delete implements Container.
func (c *DirContainer) Delete(ctx context.Context, name string) error {
	return os.Remove(filepath.Join(c.Root, filepath.FromSlash(name)))
}
