// Package export writes cached conversations out as markdown documents with
// their image attachments alongside.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/mlevan/parley/src/chatmsg"
	"github.com/mlevan/parley/src/convstore"
)

// Exporter writes conversations to a filesystem. The afero abstraction lets
// tests export into memory.
type Exporter struct {
	fs     afero.Fs
	db     *convstore.DB
	logger *slog.Logger
}

// New creates an exporter.
func New(fs afero.Fs, db *convstore.DB, logger *slog.Logger) *Exporter {
	return &Exporter{
		fs:     fs,
		db:     db,
		logger: logger.With("component", "export"),
	}
}

// ExportConversation writes one conversation as markdown under dir and
// returns the path of the markdown file. Image attachments are written to an
// images/ subdirectory and linked from the document; a missing attachment
// payload degrades to a note instead of failing the export.
func (e *Exporter) ExportConversation(ctx context.Context, localID, dir string) (string, error) {
	conv, err := convstore.GetConversation(ctx, e.db.DB(), localID)
	if err != nil {
		return "", err
	}
	messages, err := conv.Messages()
	if err != nil {
		return "", err
	}

	if err := e.fs.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	var doc strings.Builder
	title := conv.Title
	if title == "" {
		title = "Untitled conversation"
	}
	fmt.Fprintf(&doc, "# %s\n\n", title)
	fmt.Fprintf(&doc, "Exported %s\n", time.Now().Format("2006-01-02 15:04"))
	if conv.Model != "" {
		fmt.Fprintf(&doc, "Model: %s\n", conv.Model)
	}
	doc.WriteString("\n")

	for _, msg := range messages {
		e.renderMessage(ctx, &doc, msg, dir)
	}

	name := slugify(title) + ".md"
	path := filepath.Join(dir, name)
	if err := afero.WriteFile(e.fs, path, []byte(doc.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	e.logger.Info("conversation exported", "conversation_id", localID, "path", path)
	return path, nil
}

// ExportAll exports every cached conversation under dir and returns the
// written paths.
func (e *Exporter) ExportAll(ctx context.Context, dir string) ([]string, error) {
	metas, err := convstore.ListConversations(ctx, e.db.DB())
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, meta := range metas {
		path, err := e.ExportConversation(ctx, meta.ID, dir)
		if err != nil {
			return paths, fmt.Errorf("failed to export %s: %w", meta.ID, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (e *Exporter) renderMessage(ctx context.Context, doc *strings.Builder, msg *chatmsg.Message, dir string) {
	switch msg.Role {
	case chatmsg.RoleUser:
		doc.WriteString("## User\n\n")
	default:
		doc.WriteString("## Assistant\n\n")
	}

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case chatmsg.TextPart:
			doc.WriteString(p.Text)
			doc.WriteString("\n\n")
		case chatmsg.ThoughtPart:
			for _, line := range strings.Split(strings.TrimRight(p.Text, "\n"), "\n") {
				doc.WriteString("> ")
				doc.WriteString(line)
				doc.WriteString("\n")
			}
			doc.WriteString("\n")
		case chatmsg.ImagePart:
			ref, err := e.writeImage(ctx, p, dir)
			if err != nil {
				e.logger.Warn("failed to export image", "attachment_id", p.AttachmentID, "error", err)
				doc.WriteString("_[image unavailable]_\n\n")
				continue
			}
			fmt.Fprintf(doc, "![image](%s)\n\n", ref)
		}
	}

	if msg.IsError {
		doc.WriteString("_[this response ended with an error]_\n\n")
	}
}

// writeImage stores an image part's payload under images/ and returns the
// relative link target.
func (e *Exporter) writeImage(ctx context.Context, img chatmsg.ImagePart, dir string) (string, error) {
	if img.AttachmentID == "" {
		return "", fmt.Errorf("image part has no attachment reference")
	}
	att, err := convstore.GetAttachment(ctx, e.db.DB(), img.AttachmentID)
	if err != nil {
		return "", err
	}

	imagesDir := filepath.Join(dir, "images")
	if err := e.fs.MkdirAll(imagesDir, 0755); err != nil {
		return "", err
	}

	name := img.AttachmentID + extForMime(att.MimeType)
	if err := afero.WriteFile(e.fs, filepath.Join(imagesDir, name), att.Data, 0644); err != nil {
		return "", err
	}
	return filepath.Join("images", name), nil
}

func extForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// slugify turns a title into a filesystem-safe file name.
func slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			if s := b.String(); len(s) > 0 && s[len(s)-1] != '-' {
				b.WriteRune('-')
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "conversation"
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return slug
}
