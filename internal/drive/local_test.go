package drive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLocalProviderListFolder(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "1234 - João Silva", "01 - Documentos Pessoais", "RG_Joao.pdf"), "x")
	mustWriteFile(t, filepath.Join(root, "1234 - João Silva", "01 - Documentos Pessoais", "notes.txt"), "y")

	p := NewLocalProvider(root)
	ctx := context.Background()

	top, err := p.ListFolder(ctx, "", "")
	if err != nil {
		t.Fatalf("list root: %v", err)
	}
	if len(top.Folders) != 1 || top.Folders[0].Name != "1234 - João Silva" {
		t.Fatalf("root folders = %+v", top.Folders)
	}

	sub, err := p.ListFolder(ctx, "", top.Folders[0].ID)
	if err != nil {
		t.Fatalf("list employee: %v", err)
	}
	if len(sub.Folders) != 1 {
		t.Fatalf("employee folders = %+v", sub.Folders)
	}

	docs, err := p.ListFolder(ctx, "", sub.Folders[0].ID)
	if err != nil {
		t.Fatalf("list docs: %v", err)
	}
	if len(docs.Files) != 2 {
		t.Fatalf("files = %+v", docs.Files)
	}
	// ReadDir order is sorted by name.
	if docs.Files[0].Name != "RG_Joao.pdf" || docs.Files[1].Name != "notes.txt" {
		t.Errorf("file order = %q, %q", docs.Files[0].Name, docs.Files[1].Name)
	}
	for _, f := range docs.Files {
		if f.ModifiedTime == "" {
			t.Errorf("file %s has no modified time", f.Name)
		}
	}
}

func TestLocalProviderDownloadAndRename(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "emp", "doc.txt"), "hello")

	p := NewLocalProvider(root)
	ctx := context.Background()

	data, err := p.Download(ctx, "emp/doc.txt")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q", data)
	}

	if err := p.Rename(ctx, "emp/doc.txt", "renamed.txt"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "emp", "renamed.txt")); err != nil {
		t.Errorf("renamed file missing: %v", err)
	}

	if _, err := p.Download(ctx, "emp/doc.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("download old id: got %v, want ErrFileNotFound", err)
	}
	if err := p.Rename(ctx, "emp/renamed.txt", "../escape.txt"); err == nil {
		t.Error("rename with path separator accepted")
	}
}

func TestLocalProviderRejectsEscapingIDs(t *testing.T) {
	p := NewLocalProvider(t.TempDir())
	for _, id := range []string{"..", "../x", "/etc/passwd"} {
		if _, err := p.Download(context.Background(), id); err == nil {
			t.Errorf("id %q accepted", id)
		}
	}
}

func TestPlainTextExtractor(t *testing.T) {
	ex := PlainTextExtractor{}
	ctx := context.Background()

	text, err := ex.Extract(ctx, []byte("carteira de identidade"), "text/plain; charset=utf-8")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "carteira de identidade" {
		t.Errorf("text = %q", text)
	}

	text, err = ex.Extract(ctx, []byte{0xff, 0xfe, 0x00}, "application/pdf")
	if err != nil {
		t.Fatalf("extract binary: %v", err)
	}
	if text != "" {
		t.Errorf("binary payload produced text %q", text)
	}
}
