// Package cloud publishes the frozen static site to an object-storage
// container: a plain diff-based upload/delete against the remote
// listing, keyed by MD5 etags the way object stores compare content.
package cloud

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Object is a stored object's listing entry.
type Object struct {
	Name string
	ETag string
}

// Container abstracts the remote object store. Implementations are
// expected to return MD5 hex digests as etags.
type Container interface {
	List(ctx context.Context) ([]Object, error)
	Upload(ctx context.Context, name string, src io.Reader) error
	Delete(ctx context.Context, name string) error
}

// Report lists what a publication changed.
type Report struct {
	Added     []string
	Refreshed []string
	Deleted   []string
}

// Empty reports whether nothing changed.
func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Refreshed) == 0 && len(r.Deleted) == 0
}

// Publisher synchronizes a local directory into a container.
type Publisher struct {
	Dir       string
	Container Container
}

// Publish uploads new and changed files and deletes remote objects with
// no local counterpart.
func (p *Publisher) Publish(ctx context.Context) (Report, error) {
	local, err := p.localFiles()
	if err != nil {
		return Report{}, err
	}

	remote, err := p.Container.List(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("cannot list container: %w", err)
	}
	etags := make(map[string]string, len(remote))
	for _, obj := range remote {
		etags[obj.Name] = obj.ETag
	}

	var report Report

	names := make([]string, 0, len(local))
	for name := range local {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		etag, exists := etags[name]
		if exists && etag == local[name] {
			continue
		}

		if err := p.upload(ctx, name); err != nil {
			return Report{}, err
		}
		if exists {
			report.Refreshed = append(report.Refreshed, name)
		} else {
			report.Added = append(report.Added, name)
		}
		slog.Info("uploaded object", "name", name)
	}

	for _, obj := range remote {
		if _, exists := local[obj.Name]; exists {
			continue
		}
		if err := p.Container.Delete(ctx, obj.Name); err != nil {
			return Report{}, fmt.Errorf("cannot delete %s: %w", obj.Name, err)
		}
		report.Deleted = append(report.Deleted, obj.Name)
		slog.Info("deleted stale object", "name", obj.Name)
	}
	sort.Strings(report.Deleted)

	return report, nil
}

func (p *Publisher) upload(ctx context.Context, name string) error {
	f, err := os.Open(filepath.Join(p.Dir, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer f.Close()

	if err := p.Container.Upload(ctx, name, f); err != nil {
		return fmt.Errorf("cannot upload %s: %w", name, err)
	}
	return nil
}

// localFiles maps slash-separated relative paths to MD5 digests.
func (p *Publisher) localFiles() (map[string]string, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(p.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel, err := filepath.Rel(p.Dir, path)
		if err != nil {
			return err
		}

		sum, err := md5sum(path)
		if err != nil {
			return err
		}

		files[filepath.ToSlash(rel)] = sum
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot walk site directory: %w", err)
	}

	return files, nil
}

func md5sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
