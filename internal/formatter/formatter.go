// package formatter renders playlists to export formats (JSON, CSV, Markdown, plain text, M3U)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/CleepDevice/cleepapp-localmusic/internal/models"
	"github.com/CleepDevice/cleepapp-localmusic/internal/shared"
)

// Export format names.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
	FormatM3U      = "m3u"
)

// Formats lists the supported export formats.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText, FormatM3U}

// ParseFormat validates a format name. An empty name selects JSON.
func ParseFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return FormatJSON, nil
	}
	if format == "md" {
		return FormatMarkdown, nil
	}
	if !slices.Contains(Formats, format) {
		return "", fmt.Errorf("%w: unknown format %q (one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats, ", "))
	}
	return format, nil
}

// PlaylistExport is one playlist with the catalog metadata of its tracks, in playlist order.
type PlaylistExport struct {
	Name      string             `json:"name"`
	IsDefault bool               `json:"is_default"`
	Tracks    []models.FileEntry `json:"tracks"`
}

// NewPlaylistExport joins a playlist with the catalog. Tracks missing from the catalog keep only their filename.
func NewPlaylistExport(entry models.PlaylistEntry, catalog []models.FileEntry) PlaylistExport {
	byName := make(map[string]models.FileEntry, len(catalog))
	for _, f := range catalog {
		byName[f.Filename] = f
	}

	tracks := make([]models.FileEntry, 0, len(entry.Tracks))
	for _, name := range entry.Tracks {
		f, ok := byName[name]
		if !ok {
			f = models.FileEntry{Filename: name}
		}
		tracks = append(tracks, f)
	}
	return PlaylistExport{Name: entry.Name, IsDefault: entry.IsDefault, Tracks: tracks}
}

// MarshalJSON encodes v, indented when pretty is set.
func MarshalJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// FormatDuration renders seconds as m:ss, or "-" when unknown.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// ExportToJSON renders the playlist as indented JSON.
func ExportToJSON(export PlaylistExport) ([]byte, error) {
	return MarshalJSON(export, true)
}

// ExportToCSV renders the tracks with columns: Position, Filename, Title, Artist, Duration
func ExportToCSV(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Filename", "Title", "Artist", "Duration"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Filename,
			track.Title,
			track.Artist,
			strconv.Itoa(track.Duration),
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

// ExportToMarkdown renders the playlist as a Markdown document.
func ExportToMarkdown(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)
	if export.IsDefault {
		buf.WriteString("**Default playlist**\n\n")
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "**Duration**: %s\n\n", FormatDuration(totalDuration(export.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s [%s]\n", i+1, trackLabel(track), FormatDuration(track.Duration))
	}
	return buf.Bytes(), nil
}

// ExportToText renders the playlist as plain text.
func ExportToText(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Name)
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, trackLabel(track))
	}
	return buf.Bytes(), nil
}

// ExportToM3U renders an extended M3U playlist. Entries point at the track path when known, else its filename.
func ExportToM3U(export PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	fmt.Fprintf(&buf, "#PLAYLIST:%s\n", export.Name)
	for _, track := range export.Tracks {
		duration := track.Duration
		if duration <= 0 {
			duration = -1
		}
		fmt.Fprintf(&buf, "#EXTINF:%d,%s\n", duration, trackLabel(track))

		location := track.Path
		if location == "" {
			location = track.Filename
		}
		buf.WriteString(location + "\n")
	}
	return buf.Bytes(), nil
}

// Render dispatches to the exporter of format.
func Render(export PlaylistExport, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatM3U:
		return ExportToM3U(export)
	case FormatJSON, "":
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch format {
	case FormatMarkdown:
		return ".md"
	case FormatCSV, FormatText, FormatM3U:
		return "." + format
	default:
		return ".json"
	}
}

// WriteExport renders export and writes it to {dir}/{base}{ext}, returning the path written.
//
// An empty base defaults to the [Slug] of the playlist name.
func WriteExport(export PlaylistExport, format, dir, base string) (string, error) {
	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if base == "" {
		base = Slug(export.Name)
	}
	path := filepath.Join(dir, base+Extension(format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Slug turns a playlist name into a filesystem-safe base name.
func Slug(name string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "_")
	if slug == "" {
		return "playlist"
	}
	return slug
}

func trackLabel(track models.FileEntry) string {
	switch {
	case track.Title != "" && track.Artist != "":
		return track.Artist + " - " + track.Title
	case track.Title != "":
		return track.Title
	default:
		return track.Filename
	}
}

func totalDuration(tracks []models.FileEntry) int {
	total := 0
	for _, t := range tracks {
		total += t.Duration
	}
	return total
}
