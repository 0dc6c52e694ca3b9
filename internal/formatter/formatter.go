// package formatter exports item sets to CSV, Markdown and JSON and downloads item media
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/genx/internal/models"
	"github.com/desertthunder/genx/internal/shared"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ParseFormat normalizes a format name; "" and "md" are accepted aliases.
func ParseFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, raw)
	}
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch format {
	case FormatCSV:
		return ".csv"
	case FormatMarkdown:
		return ".md"
	default:
		return ".json"
	}
}

// ExportToCSV converts items to CSV with columns: Identity, URL, Kind, Model, Prompt, Timestamp, Liked, Visibility, References
func ExportToCSV(items []models.Item) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Identity", "URL", "Kind", "Model", "Prompt", "Timestamp", "Liked", "Visibility", "References"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range items {
		record := []string{
			item.Identity(),
			item.URL,
			string(item.MediaKind()),
			item.Model,
			item.Prompt,
			formatTimestamp(item.Timestamp),
			strconv.FormatBool(item.IsLiked),
			shared.VisibilityString(item.IsPublic),
			strings.Join(item.References, " "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders items as a Markdown gallery under title.
func ExportToMarkdown(title string, items []models.Item) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Gallery export"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Items**: %d\n\n", len(items))

	for i, item := range items {
		label := item.Prompt
		if label == "" {
			label = item.Identity()
		}
		fmt.Fprintf(&buf, "## %d. %s\n\n", i+1, shared.Truncate(label, 80))

		if item.MediaKind() == models.KindVideo {
			fmt.Fprintf(&buf, "[video](%s)\n\n", item.URL)
		} else {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", item.Identity(), item.URL)
		}

		if item.Model != "" {
			fmt.Fprintf(&buf, "- **Model**: %s\n", item.Model)
		}
		if ts := formatTimestamp(item.Timestamp); ts != "" {
			fmt.Fprintf(&buf, "- **Created**: %s\n", ts)
		}
		fmt.Fprintf(&buf, "- **Visibility**: %s\n", shared.VisibilityString(item.IsPublic))
		for _, ref := range item.References {
			fmt.Fprintf(&buf, "- **Reference**: %s\n", ref)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes items as an indented JSON array.
func ExportToJSON(items []models.Item) ([]byte, error) {
	if items == nil {
		items = []models.Item{}
	}
	return shared.MarshalJSON(items, true)
}

// Export renders items in format.
func Export(items []models.Item, format, title string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(items)
	case FormatMarkdown:
		return ExportToMarkdown(title, items)
	default:
		return ExportToJSON(items)
	}
}

// WriteExport writes items in format to path, creating parent directories.
func WriteExport(items []models.Item, format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("items_%d%s", time.Now().Unix(), Extension(format))
	}

	data, err := Export(items, format, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// FileName derives a stable local file name for item from its identity and url extension.
func FileName(item models.Item) string {
	base := sanitize(item.Identity())
	if base == "" {
		base = "item"
	}

	ext := strings.ToLower(path.Ext(models.StripQuery(item.URL)))
	if ext == "" || len(ext) > 6 {
		if item.MediaKind() == models.KindVideo {
			ext = ".mp4"
		} else {
			ext = ".png"
		}
	}
	return base + ext
}

// Download fetches the content at url with client and returns the raw bytes.
func Download(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	return data, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
