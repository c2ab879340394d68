package content

// Location is the reader's current position.
type Location struct {
	ChapterIndex int     `json:"chapterIndex"`
	UnitID       string  `json:"unitId,omitempty"`
	Page         int     `json:"page,omitempty"`
	Progress     float64 `json:"progress"`
}

// Selection is the current text selection. The zero value is no selection.
type Selection struct {
	Text        string `json:"text"`
	StartUnitID string `json:"startUnitId,omitempty"`
	EndUnitID   string `json:"endUnitId,omitempty"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

// Empty reports whether nothing is selected.
func (s Selection) Empty() bool {
	return s.Text == ""
}

// ReaderState is the read-only view of reader settings.
type ReaderState struct {
	Theme    string         `json:"theme,omitempty"`
	FontSize int            `json:"fontSize,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Provider supplies read-only snapshots of the active document. It is
// implemented by the renderer (or the native renderer proxy).
type Provider interface {
	Document() *Document
	Location() Location
	Selection() Selection
	VisibleUnits() []string
	ReaderState() ReaderState
}

// TextSource is implemented by providers that can extract text for a unit
// without a content tree, such as a native renderer's text layer.
type TextSource interface {
	UnitText(id string) (string, bool)
}

// Snapshot is a Provider backed by plain values. The renderer refreshes it
// through the setters.
type Snapshot struct {
	doc      *Document
	location Location
	sel      Selection
	visible  []string
	state    ReaderState
	text     map[string]string
}

// NewSnapshot creates a snapshot for doc.
func NewSnapshot(doc *Document) *Snapshot {
	return &Snapshot{doc: doc}
}

// Document returns the document.
func (s *Snapshot) Document() *Document { return s.doc }

// Location returns the current location.
func (s *Snapshot) Location() Location { return s.location }

// Selection returns the current selection.
func (s *Snapshot) Selection() Selection { return s.sel }

// ReaderState returns the reader state.
func (s *Snapshot) ReaderState() ReaderState { return s.state }

// VisibleUnits returns a copy of the visible unit ids.
func (s *Snapshot) VisibleUnits() []string {
	out := make([]string, len(s.visible))
	copy(out, s.visible)
	return out
}

// UnitText returns text registered for a unit by a native text layer.
func (s *Snapshot) UnitText(id string) (string, bool) {
	t, ok := s.text[id]
	return t, ok
}

// SetLocation updates the location.
func (s *Snapshot) SetLocation(l Location) { s.location = l }

// SetSelection updates the selection.
func (s *Snapshot) SetSelection(sel Selection) { s.sel = sel }

// SetVisibleUnits updates the visible unit ids.
func (s *Snapshot) SetVisibleUnits(ids []string) {
	s.visible = make([]string, len(ids))
	copy(s.visible, ids)
}

// SetReaderState updates the reader state.
func (s *Snapshot) SetReaderState(st ReaderState) { s.state = st }

// SetUnitText records text for a unit that has no tree node, as supplied by a
// native renderer's text layer.
func (s *Snapshot) SetUnitText(id, text string) {
	if s.text == nil {
		s.text = make(map[string]string)
	}
	s.text[id] = text
}
