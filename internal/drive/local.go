package drive

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// LocalProvider serves an employee tree from a directory on disk. File
// and folder IDs are paths relative to the root, so they stay stable
// across restarts. The driveID argument is ignored.
type LocalProvider struct {
	root string
}

// NewLocalProvider returns a provider rooted at dir.
func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{root: dir}
}

// ListFolder lists the folder identified by parentID. An empty parentID
// means the root. Entries are returned sorted by name so scan order is
// stable.
func (p *LocalProvider) ListFolder(ctx context.Context, _ string, parentID string) (Listing, error) {
	if err := ctx.Err(); err != nil {
		return Listing{}, err
	}
	dir, err := p.resolve(parentID)
	if err != nil {
		return Listing{}, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return Listing{}, ErrFileNotFound
	}
	if err != nil {
		return Listing{}, fmt.Errorf("list %q: %w", parentID, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out Listing
	for _, e := range entries {
		id := filepath.ToSlash(filepath.Join(parentID, e.Name()))
		if e.IsDir() {
			out.Folders = append(out.Folders, Folder{ID: id, Name: e.Name()})
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out.Files = append(out.Files, File{
			ID:           id,
			Name:         e.Name(),
			ModifiedTime: info.ModTime().UTC().Format(time.RFC3339),
			MimeType:     mime.TypeByExtension(filepath.Ext(e.Name())),
		})
	}
	return out, nil
}

// Download reads the file identified by fileID.
func (p *LocalProvider) Download(ctx context.Context, fileID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := p.resolve(fileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("download %q: %w", fileID, err)
	}
	return data, nil
}

// Rename renames the file in place. The file keeps its parent folder;
// only the base name changes, so the returned new ID shares the old
// prefix. Callers that track IDs must rescan after renames.
func (p *LocalProvider) Rename(ctx context.Context, fileID, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	oldPath, err := p.resolve(fileID)
	if err != nil {
		return err
	}
	if strings.ContainsAny(newName, `/\`) {
		return fmt.Errorf("rename %q: new name %q contains a path separator", fileID, newName)
	}
	newPath := filepath.Join(filepath.Dir(oldPath), newName)
	if err := os.Rename(oldPath, newPath); err != nil {
		if os.IsNotExist(err) {
			return ErrFileNotFound
		}
		return fmt.Errorf("rename %q: %w", fileID, err)
	}
	return nil
}

// resolve maps a relative ID onto the root, rejecting escapes.
func (p *LocalProvider) resolve(id string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid id %q", id)
	}
	return filepath.Join(p.root, clean), nil
}

// PlainTextExtractor extracts text from plain-text documents. Binary
// formats yield no text, which degrades classification to filename-only.
type PlainTextExtractor struct{}

// Extract returns the document body for text mime types and valid UTF-8
// payloads, and an empty string otherwise.
func (PlainTextExtractor) Extract(_ context.Context, data []byte, mimeType string) (string, error) {
	base := mimeType
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	switch {
	case strings.HasPrefix(base, "text/"):
	case base == "application/json", base == "application/xml":
	case base == "" && utf8.Valid(data):
	default:
		return "", nil
	}
	if !utf8.Valid(data) {
		return "", nil
	}
	return string(data), nil
}
