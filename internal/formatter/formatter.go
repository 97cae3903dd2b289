// package formatter exports generated blends to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/shared"
)

// Format is an export format accepted by `blend export`.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the format names plus the md and txt shorthands.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q (want csv, markdown, text or json)", shared.ErrInvalidArgument, s)
}

// BlendExport is everything known about a session's blend, flattened for export.
type BlendExport struct {
	SessionID   string                     `json:"session_id"`
	Code        string                     `json:"code"`
	Creator     string                     `json:"creator"`
	Partner     string                     `json:"partner"`
	Result      *models.BlendResult        `json:"result,omitempty"`
	Playlist    models.BlendPlaylist       `json:"playlist"`
	Published   []models.PublishedPlaylist `json:"published,omitempty"`
	GeneratedAt *time.Time                 `json:"generated_at,omitempty"`
}

// NewBlendExport builds an export from a session and its two listeners.
func NewBlendExport(session *models.Session, creator, partner *models.Listener) *BlendExport {
	export := &BlendExport{
		SessionID: session.ID(),
		Code:      session.Code,
		Result:    session.Result,
		Playlist:  models.BlendPlaylist{Config: session.Config},
	}
	if creator != nil {
		export.Creator = creator.Name()
	}
	if partner != nil {
		export.Partner = partner.Name()
	}
	if p := session.Publication; p != nil {
		export.Playlist = p.Playlist
		export.Published = []models.PublishedPlaylist{p.Creator, p.Partner}
		generatedAt := p.GeneratedAt
		export.GeneratedAt = &generatedAt
	}
	return export
}

// Title names the blend after both listeners.
func (e *BlendExport) Title() string {
	if e.Creator == "" || e.Partner == "" {
		return "Blend " + e.Code
	}
	return fmt.Sprintf("%s + %s", e.Creator, e.Partner)
}

// ExportToCSV writes the playlist with columns: Position, ID, Name, Artists, Album, Popularity, URL
func ExportToCSV(export *BlendExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Name", "Artists", "Album", "Popularity", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range export.Playlist.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Name,
			track.ArtistNames(),
			track.Album.Name,
			strconv.Itoa(track.Popularity),
			track.URL,
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

// ExportToMarkdown renders score, insights, shared artists and the track table, with an optional cover image.
func ExportToMarkdown(export *BlendExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", export.Title()))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Session**: %s\n", export.Code))
	if r := export.Result; r != nil {
		buf.WriteString(fmt.Sprintf("**Compatibility**: %d%%\n", r.Score))
	}
	cfg := export.Playlist.Config
	buf.WriteString(fmt.Sprintf("**Window**: %s-term\n", cfg.Window))
	buf.WriteString(fmt.Sprintf("**Ratio**: %d/%d\n", percent(cfg.Ratio), 100-percent(cfg.Ratio)))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(export.Playlist.Tracks)))

	if r := export.Result; r != nil {
		if len(r.Insights) > 0 {
			buf.WriteString("## Insights\n\n")
			for _, in := range r.Insights {
				buf.WriteString(fmt.Sprintf("- %s\n", in.Text))
			}
			buf.WriteString("\n")
		}

		if len(r.SharedArtists) > 0 {
			buf.WriteString("## Shared Artists\n\n")
			for i, a := range r.SharedArtists {
				buf.WriteString(fmt.Sprintf("%d. %s (%.1f)\n", i+1, a.Name, a.AveragePopularity))
			}
			buf.WriteString("\n")
		}
	}

	if len(export.Published) > 0 {
		buf.WriteString("## Published\n\n")
		for _, p := range export.Published {
			buf.WriteString(fmt.Sprintf("- [%s](%s)\n", p.ExternalID, p.URL))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Tracks\n\n")
	buf.WriteString("| # | Title | Artists | Album | Popularity |\n")
	buf.WriteString("|---|-------|---------|-------|------------|\n")
	for i, track := range export.Playlist.Tracks {
		title := escapeCell(track.Name)
		if track.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, track.URL)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d |\n",
			i+1, title, escapeCell(track.ArtistNames()), escapeCell(track.Album.Name), track.Popularity))
	}

	return buf.Bytes(), nil
}

// ExportToText renders the blend as plain text
func ExportToText(export *BlendExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Blend: %s\n", export.Title()))
	buf.WriteString(fmt.Sprintf("Session: %s\n", export.Code))
	if r := export.Result; r != nil {
		buf.WriteString(fmt.Sprintf("Compatibility: %d%%\n", r.Score))
		for _, in := range r.Insights {
			buf.WriteString(fmt.Sprintf("  * %s\n", in.Text))
		}
	}
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(export.Playlist.Tracks)))

	for i, track := range export.Playlist.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.ArtistNames(), track.Name))
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes the full export with indentation.
func ExportToJSON(export *BlendExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// Export renders export in format.
func Export(export *BlendExport, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export, "")
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
}

func percent(ratio float64) int {
	return int(ratio*100 + 0.5)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CoverURL returns the album artwork of the first playlist track that has one.
func (e *BlendExport) CoverURL() string {
	for _, t := range e.Playlist.Tracks {
		if t.Album.ImageURL != "" {
			return t.Album.ImageURL
		}
	}
	return ""
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile  string
	SummaryFile string
}

// WriteCSVExport writes {base}_tracks.csv and a {base}_summary.json holding the score and insights.
//
// Defaults to the session code as the base filename.
func WriteCSVExport(export *BlendExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = "blend_" + export.Code
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summary := *export
	summary.Playlist.Tracks = nil
	summaryJSON, err := shared.MarshalJSON(summary, true)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_summary.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &CSVExportResult{
		TracksFile:  tracksFile,
		SummaryFile: summaryFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports the blend to Markdown in a dedicated directory.
//
// Directory name defaults to blend_{code}. When download is set the first available album
// artwork is saved as cover.jpg. Creates {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *BlendExport, outputDir string, download bool) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "blend_" + export.Code
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL := export.CoverURL(); download && imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports the blend to plain text.
//
// Defaults to blend_{code}.txt as the filename.
func WriteTextExport(export *BlendExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("blend_%s.txt", export.Code)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport exports the blend as JSON.
//
// Defaults to blend_{code}.json as the filename.
func WriteJSONExport(export *BlendExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("blend_%s.json", export.Code)
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate JSON: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}
