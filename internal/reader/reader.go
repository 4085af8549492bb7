// Package reader loads document source files, optionally converting
// them to HTML through an external program.
package reader

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"unicode/utf8"
)

// File reads source files from the content repository as-is. Non-text
// content is rejected: the pipeline only ever deals with markup.
type File struct {
	Root string
}

// NewFile creates a reader rooted at the repository directory.
func NewFile(root string) *File {
	return &File{Root: root}
}

// Read returns the file's content as text.
func (r *File) Read(ctx context.Context, relPath string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Root, filepath.FromSlash(relPath)))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8 text", relPath)
	}
	return string(data), nil
}

// Auto dispatches between the plain file reader and the converter,
// based on the file's extension.
type Auto struct {
	File       *File
	Converter  *Converter
	ConvertExt string
}

// Read implements the content reader contract.
func (a *Auto) Read(ctx context.Context, relPath string) (string, error) {
	if a.Converter != nil && filepath.Ext(relPath) == a.ConvertExt {
		return a.Converter.Read(ctx, relPath)
	}
	return a.File.Read(ctx, relPath)
}

// Converter reads source files by piping them through an external
// document converter (e.g. asciidoctor), treated as a black box that
// prints HTML on stdout.
type Converter struct {
	Root    string
	Program string
}

// NewConverter creates a converting reader rooted at the repository
// directory.
func NewConverter(root, program string) *Converter {
	return &Converter{Root: root, Program: program}
}

// Read converts the file and returns the resulting HTML.
func (c *Converter) Read(ctx context.Context, relPath string) (string, error) {
	absPath := filepath.Join(c.Root, filepath.FromSlash(relPath))
	if _, err := os.Stat(absPath); err != nil {
		return "", err
	}

	// -q silences warnings; the missing stylesheet keeps the output bare.
	cmd := exec.CommandContext(ctx, c.Program,
		"-q", "-a", "stylesheet=missing.css", "--out-file", "-", absPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed on %s: %w: %s",
			c.Program, relPath, err, bytes.TrimSpace(stderr.Bytes()))
	}

	if !utf8.Valid(stdout.Bytes()) {
		return "", fmt.Errorf("%s produced non-text output for %s", c.Program, relPath)
	}

	return stdout.String(), nil
}
