package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileRead(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, "notes"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes", "git.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes", "binary.html"), []byte{0xff, 0xfe, 0x00}, 0644); err != nil {
		t.Fatal(err)
	}

	reader := NewFile(root)

	t.Run("existing file", func(t *testing.T) {
		markup, err := reader.Read(ctx, "notes/git.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if markup != "<html></html>" {
			t.Errorf("markup = %q", markup)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := reader.Read(ctx, "notes/missing.html"); err == nil {
			t.Error("expected an error")
		}
	})

	t.Run("non-text content", func(t *testing.T) {
		if _, err := reader.Read(ctx, "notes/binary.html"); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestAutoDispatch(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	if err := os.WriteFile(filepath.Join(root, "plain.html"), []byte("<html></html>"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "source.adoc"), []byte("= Title"), 0644); err != nil {
		t.Fatal(err)
	}

	auto := &Auto{
		File: NewFile(root),
		// A converter that just prints a marker stands in for the real
		// document converter.
		Converter:  NewConverter(root, "echo"),
		ConvertExt: ".adoc",
	}

	t.Run("plain files bypass the converter", func(t *testing.T) {
		markup, err := auto.Read(ctx, "plain.html")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if markup != "<html></html>" {
			t.Errorf("markup = %q", markup)
		}
	})

	t.Run("convertible files go through the converter", func(t *testing.T) {
		output, err := auto.Read(ctx, "source.adoc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// echo prints its arguments back, proving the converter ran.
		if output == "= Title" {
			t.Errorf("converter was bypassed: %q", output)
		}
	})
}

func TestConverterMissingFile(t *testing.T) {
	converter := NewConverter(t.TempDir(), "echo")

	if _, err := converter.Read(context.Background(), "missing.adoc"); err == nil {
		t.Error("expected an error")
	}
}

func TestConverterFailure(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "doc.adoc"), []byte("= Title"), 0644); err != nil {
		t.Fatal(err)
	}

	converter := NewConverter(root, "false")

	if _, err := converter.Read(context.Background(), "doc.adoc"); err == nil {
		t.Error("expected an error")
	}
}
