package domain

import "unicode/utf8"

// DraftField names an editable field of the draft buffer.
type DraftField string

const (
	DraftFieldUserInput DraftField = "user_input"
	DraftFieldContent   DraftField = "content"
	DraftFieldCitations DraftField = "citations"
)

// IsValid returns true if this is a known field
func (f DraftField) IsValid() bool {
	switch f {
	case DraftFieldUserInput, DraftFieldContent, DraftFieldCitations:
		return true
	default:
		return false
	}
}

// SaveStatus is the autosave indicator shown next to the editor.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)

// SelectionRange is a half-open range of rune offsets into the content.
type SelectionRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Collapsed returns true for a caret without a selected span.
func (r SelectionRange) Collapsed() bool {
	return r.End <= r.Start
}

// Within returns true if the range fits inside text.
func (r SelectionRange) Within(text string) bool {
	return r.Start >= 0 && r.End <= utf8.RuneCountInString(text)
}

// DraftBuffer is the uncommitted working copy of one chapter. Exactly one
// exists per editing session.
type DraftBuffer struct {
	ChapterID string          `json:"chapter_id"`
	UserInput string          `json:"user_input"`
	Content   string          `json:"content"`
	Citations []Citation      `json:"citations"`
	Selection *SelectionRange `json:"selection,omitempty"`

	// Generating is set while a generation request for this chapter is
	// outstanding. Content then holds a placeholder.
	Generating bool `json:"generating"`

	// ContentTransient marks content that must not be committed, such as
	// a generation failure message.
	ContentTransient bool `json:"content_transient"`
}

// NewDraftBuffer copies the committed state of a chapter.
func NewDraftBuffer(c *Chapter) *DraftBuffer {
	return &DraftBuffer{
		ChapterID: c.ID,
		UserInput: c.UserInput,
		Content:   c.Content,
		Citations: CloneCitations(c.Citations),
	}
}

// CommittableContent returns the content that a commit would record.
// Transient content and generation placeholders fall back to the chapter's
// committed content.
func (b *DraftBuffer) CommittableContent(c *Chapter) string {
	if b.ContentTransient || b.Generating {
		return c.Content
	}
	return b.Content
}

// IsDirty reports whether the buffer differs from the chapter's committed
// values.
func (b *DraftBuffer) IsDirty(c *Chapter) bool {
	return b.UserInput != c.UserInput ||
		b.CommittableContent(c) != c.Content ||
		!CitationsEqual(b.Citations, c.Citations)
}

// Candidate builds the history entry a commit of this buffer would produce.
func (b *DraftBuffer) Candidate(c *Chapter) HistoryEntry {
	return HistoryEntry{
		UserInput: b.UserInput,
		Content:   b.CommittableContent(c),
		Citations: CloneCitations(b.Citations),
	}
}

// Rebase carries commits made outside the session into the buffer. base is
// the chapter the buffer was last loaded or committed from; every field the
// buffer still holds unchanged from base takes its value from current, so
// only the fields edited here can overwrite current. It reports whether
// the buffer changed.
func (b *DraftBuffer) Rebase(base, current *Chapter) bool {
	if base == nil || current == nil {
		return false
	}
	changed := false
	if b.UserInput == base.UserInput && b.UserInput != current.UserInput {
		b.UserInput = current.UserInput
		changed = true
	}
	if !b.Generating && !b.ContentTransient && b.Content == base.Content && b.Content != current.Content {
		b.Content = current.Content
		if b.Selection != nil && !b.Selection.Within(b.Content) {
			b.Selection = nil
		}
		changed = true
	}
	if CitationsEqual(b.Citations, base.Citations) && !CitationsEqual(b.Citations, current.Citations) {
		b.Citations = CloneCitations(current.Citations)
		changed = true
	}
	return changed
}

// Clone returns a deep copy.
func (b *DraftBuffer) Clone() *DraftBuffer {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Citations = CloneCitations(b.Citations)
	if b.Selection != nil {
		sel := *b.Selection
		cp.Selection = &sel
	}
	return &cp
}
