package services

import (
	"strings"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
)

// InsertCitation places the next citation marker at the end of the
// selection, regenerates the reference list below the content and appends
// the citation to the buffer. Offsets are in runes. A rejected request
// leaves the buffer untouched.
func InsertCitation(buf *domain.DraftBuffer, sel *domain.SelectionRange, sourceName, url string) (domain.Citation, error) {
	if sel == nil || sel.Collapsed() || !sel.Within(buf.Content) {
		return domain.Citation{}, domain.NewValidationError("selection", domain.MsgSelectionRequired)
	}
	sourceName = strings.TrimSpace(sourceName)
	if sourceName == "" {
		return domain.Citation{}, domain.NewValidationError("source_name", domain.MsgSourceNameRequired)
	}

	citation := domain.Citation{
		Key:        domain.CitationKey(len(buf.Citations) + 1),
		SourceName: sourceName,
		URL:        strings.TrimSpace(url),
	}

	runes := []rune(buf.Content)
	marked := string(runes[:sel.End]) + citation.Key + string(runes[sel.End:])

	citations := append(domain.CloneCitations(buf.Citations), citation)
	body := domain.BodyWithoutReferences(marked)

	buf.Content = body + domain.RenderReferences(citations)
	buf.Citations = citations
	buf.Selection = nil
	return citation, nil
}
