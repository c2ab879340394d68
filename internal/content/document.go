package content

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Track identifies which rendering backend displays a document.
type Track int

const (
	// TrackTree renders from the unified content tree.
	TrackTree Track = iota
	// TrackNative hands the document to a native paginated renderer.
	TrackNative
)

// String returns the track name.
func (t Track) String() string {
	switch t {
	case TrackTree:
		return "tree"
	case TrackNative:
		return "native"
	default:
		return "unknown"
	}
}

// ParseTrack parses a track name.
func ParseTrack(s string) (Track, error) {
	switch strings.ToLower(s) {
	case "tree":
		return TrackTree, nil
	case "native":
		return TrackNative, nil
	default:
		return TrackTree, fmt.Errorf("%w: %q", ErrUnknownTrack, s)
	}
}

// Format is the source format a document was parsed from.
type Format string

// Known source formats.
const (
	FormatEPUB     Format = "epub"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatPDF      Format = "pdf"
)

// Metadata contains document-level information.
type Metadata struct {
	Title     string            `json:"title"`
	Author    string            `json:"author,omitempty"`
	Language  string            `json:"language,omitempty"`
	Publisher string            `json:"publisher,omitempty"`
	Format    Format            `json:"format"`
	Custom    map[string]string `json:"custom,omitempty"`
}

// Chapter is one section of the content tree.
type Chapter struct {
	ID    string  `json:"id"`
	Title string  `json:"title,omitempty"`
	Href  string  `json:"href,omitempty"`
	Units []*Node `json:"units"`
}

// Document is an immutable snapshot of a parsed document.
type Document struct {
	ID       string     `json:"id"`
	Metadata Metadata   `json:"metadata"`
	Chapters []*Chapter `json:"chapters,omitempty"`

	// PageCount is reported by the native renderer; zero on the tree track.
	PageCount int `json:"pageCount,omitempty"`

	index map[string]*Node
}

// HasTree reports whether the document carries a content tree.
func (d *Document) HasTree() bool {
	return d != nil && len(d.Chapters) > 0
}

// PreferredTrack returns the track a document should be rendered on.
func (d *Document) PreferredTrack() Track {
	if d.HasTree() {
		return TrackTree
	}
	return TrackNative
}

// Unit looks up a content unit by its stable identifier, at any depth.
func (d *Document) Unit(id string) (*Node, bool) {
	if d == nil || id == "" {
		return nil, false
	}
	if d.index == nil {
		d.buildIndex()
	}
	n, ok := d.index[id]
	return n, ok
}

// UnitCount returns the number of top-level units across all chapters.
func (d *Document) UnitCount() int {
	if d == nil {
		return 0
	}
	count := 0
	for _, ch := range d.Chapters {
		count += len(ch.Units)
	}
	return count
}

// ChapterOf returns the index of the chapter containing a top-level unit,
// or -1.
func (d *Document) ChapterOf(unitID string) int {
	if d == nil {
		return -1
	}
	for i, ch := range d.Chapters {
		for _, u := range ch.Units {
			if u.ID == unitID {
				return i
			}
		}
	}
	return -1
}

// Validate checks that every unit carries a unique non-empty identifier.
func (d *Document) Validate() error {
	if d == nil {
		return ErrNilDocument
	}
	seen := make(map[string]bool)
	for ci, ch := range d.Chapters {
		for _, u := range ch.Units {
			var err error
			u.Walk(func(n *Node) bool {
				if n.ID == "" {
					if n.Type == NodeText {
						return true
					}
					err = fmt.Errorf("%w: chapter %d has a %s unit without id", ErrMissingUnitID, ci, n.Type)
					return false
				}
				if seen[n.ID] {
					err = fmt.Errorf("%w: %q", ErrDuplicateUnitID, n.ID)
					return false
				}
				seen[n.ID] = true
				return true
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Document) buildIndex() {
	d.index = make(map[string]*Node)
	for _, ch := range d.Chapters {
		for _, u := range ch.Units {
			u.Walk(func(n *Node) bool {
				if n.ID != "" {
					d.index[n.ID] = n
				}
				return true
			})
		}
	}
}

// DecodeDocument reads a pre-parsed document in its JSON form and validates it.
func DecodeDocument(r io.Reader) (*Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	doc.buildIndex()
	return &doc, nil
}
