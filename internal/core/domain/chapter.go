package domain

import (
	"strings"
	"time"
)

// Citation links an inline marker such as "[2]" to a source record.
type Citation struct {
	Key        string `json:"key"`
	SourceName string `json:"source_name"`
	URL        string `json:"url,omitempty"`
}

// HistoryEntry is an immutable committed snapshot of a chapter.
type HistoryEntry struct {
	Timestamp time.Time  `json:"timestamp"`
	UserInput string     `json:"user_input"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

// SameText reports whether two entries carry identical user input and
// content. Citations are not considered.
func (e HistoryEntry) SameText(other HistoryEntry) bool {
	return e.UserInput == other.UserInput && e.Content == other.Content
}

// IndexedHistoryEntry pairs an entry with its position in storage order so
// that a newest-first listing can still address entries for revert.
type IndexedHistoryEntry struct {
	Index int `json:"index"`
	HistoryEntry
}

// Chapter is a titled section of a proposal with its own committed state
// and append-only history.
type Chapter struct {
	ID         string `json:"id"`
	ProposalID string `json:"proposal_id"`
	Title      string `json:"title"`
	Position   int    `json:"position"`

	// Committed state
	UserInput string         `json:"user_input"`
	Content   string         `json:"content"`
	Citations []Citation     `json:"citations"`
	History   []HistoryEntry `json:"history"`

	// TemplateKey is set when the chapter was created from a template
	TemplateKey string `json:"template_key,omitempty"`

	// Review artefacts produced by the content generator
	ReviewerQuestions        string `json:"reviewer_questions,omitempty"`
	StrengtheningSuggestions string `json:"strengthening_suggestions,omitempty"`
	GapCheckResult           string `json:"gap_check_result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewChapter creates an empty chapter.
func NewChapter(proposalID, title, templateKey string, position int) *Chapter {
	now := time.Now()
	return &Chapter{
		ID:          NewID("chap"),
		ProposalID:  proposalID,
		Title:       title,
		Position:    position,
		Citations:   []Citation{},
		History:     []HistoryEntry{},
		TemplateKey: templateKey,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NormalizeChapterTitle trims the title and rejects an empty result.
func NormalizeChapterTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", NewValidationError("title", MsgEmptyChapterTitle)
	}
	return trimmed, nil
}

// Snapshot captures the committed state as a history entry.
func (c *Chapter) Snapshot(at time.Time) HistoryEntry {
	return HistoryEntry{
		Timestamp: at,
		UserInput: c.UserInput,
		Content:   c.Content,
		Citations: CloneCitations(c.Citations),
	}
}

// LastHistoryEntry returns the most recent entry, if any.
func (c *Chapter) LastHistoryEntry() (HistoryEntry, bool) {
	if len(c.History) == 0 {
		return HistoryEntry{}, false
	}
	return c.History[len(c.History)-1], true
}

// AppendHistory appends entry unless it has the same text as the last
// entry. It reports whether the entry was appended.
func (c *Chapter) AppendHistory(entry HistoryEntry) bool {
	if last, ok := c.LastHistoryEntry(); ok && last.SameText(entry) {
		return false
	}
	entry.Citations = CloneCitations(entry.Citations)
	c.History = append(c.History, entry)
	return true
}

// Commit records entry in the history (deduplicated) and always updates the
// committed fields.
func (c *Chapter) Commit(entry HistoryEntry) bool {
	appended := c.AppendHistory(entry)
	c.UserInput = entry.UserInput
	c.Content = entry.Content
	c.Citations = CloneCitations(entry.Citations)
	c.UpdatedAt = entry.Timestamp
	return appended
}

// RevertTo preserves the current committed state as a new entry (unless it
// duplicates the last one) and then restores the entry at index. History
// is never truncated.
func (c *Chapter) RevertTo(index int, at time.Time) (bool, error) {
	if index < 0 || index >= len(c.History) {
		return false, ErrNotFound
	}
	target := c.History[index]

	appended := c.AppendHistory(c.Snapshot(at))

	c.UserInput = target.UserInput
	c.Content = target.Content
	c.Citations = CloneCitations(target.Citations)
	c.UpdatedAt = at
	return appended, nil
}

// HistoryNewestFirst returns the history for display, most recent first.
func (c *Chapter) HistoryNewestFirst() []IndexedHistoryEntry {
	out := make([]IndexedHistoryEntry, 0, len(c.History))
	for i := len(c.History) - 1; i >= 0; i-- {
		out = append(out, IndexedHistoryEntry{Index: i, HistoryEntry: c.History[i]})
	}
	return out
}

// Clone returns a deep copy.
func (c *Chapter) Clone() *Chapter {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Citations = CloneCitations(c.Citations)
	cp.History = make([]HistoryEntry, len(c.History))
	for i, h := range c.History {
		h.Citations = CloneCitations(h.Citations)
		cp.History[i] = h
	}
	return &cp
}

// CloneCitations copies a citation list. The result is never nil.
func CloneCitations(in []Citation) []Citation {
	out := make([]Citation, len(in))
	copy(out, in)
	return out
}

// CitationsEqual compares two ordered citation lists structurally. A nil
// list equals an empty one.
func CitationsEqual(a, b []Citation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ChapterTemplate is a predefined chapter kind offered when adding a chapter.
type ChapterTemplate struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ChapterTemplates lists the available templates in display order.
var ChapterTemplates = []ChapterTemplate{
	{Key: "background", Name: "計畫背景與目的"},
	{Key: "innovation", Name: "創新性"},
	{Key: "kpi", Name: "目標與KPI"},
	{Key: "tech", Name: "技術可行性"},
	{Key: "market", Name: "市場分析"},
	{Key: "execution", Name: "執行方法"},
	{Key: "budget", Name: "預算與資源配置"},
	{Key: "risk", Name: "風險與因應策略"},
	{Key: "esg", Name: "ESG與永續/淨零"},
}

// TemplateByKey looks up a chapter template.
func TemplateByKey(key string) (ChapterTemplate, bool) {
	for _, t := range ChapterTemplates {
		if t.Key == key {
			return t, true
		}
	}
	return ChapterTemplate{}, false
}

// NeedsTemplateDraft reports whether the chapter was created from a
// template and has not received any content yet.
func (c *Chapter) NeedsTemplateDraft() bool {
	return c.TemplateKey != "" && c.Content == "" && len(c.History) == 0
}
