package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrGenerationInProgress indicates a generation request is already
	// outstanding for the same chapter
	ErrGenerationInProgress = errors.New("generation already in progress")

	// ErrRateLimited indicates the content generator rejected the call
	// because of quota or rate limits
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceError indicates the content generator failed for a reason
	// other than rate limiting
	ErrServiceError = errors.New("generation service error")

	// ErrParseFailure indicates a generator response did not match the
	// expected structure
	ErrParseFailure = errors.New("unparseable generator response")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a backing service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNotConfigured indicates no content generator is configured
	ErrNotConfigured = errors.New("content generator not configured")
)

// User-facing messages shown in notifications.
const (
	MsgEmptyChapterTitle   = "章節標題不能為空。"
	MsgSelectionRequired   = "請先在內容中選取要插入引用的位置。"
	MsgSourceNameRequired  = "請輸入資料來源名稱。"
	MsgComparisonTooFew    = "請至少選擇兩個專案進行比較。"
	MsgWeightOutOfRange    = "權重必須介於 0 到 100 之間。"
	MsgRateLimitExhausted  = "AI 服務用量已達上限。請稍後再試，或檢查您的方案與帳單設定。"
	MsgGenerationBusy      = "此章節正在生成中，請稍候。"
	MsgRefineNeedsContent  = "請先生成或填寫一些內容才能進行精修。"
	MsgGenerationNotReady  = "尚未設定 AI 服務。"
	MsgCriterionIDRequired = "評分面向必須有識別碼。"
	MsgNoChapters          = "此計畫尚無章節。"
	MsgProposalTitleEmpty  = "計畫名稱不能為空。"
	MsgUnknownTemplate     = "找不到指定的章節範本。"
	MsgUnknownField        = "無法編輯此欄位。"
	MsgInvalidProvider     = "不支援的 AI 服務供應商。"
	MsgInvalidTone         = "不支援的寫作語氣。"
	MsgScopeRequired       = "請指定評分範圍。"
)

// ValidationError is a user-correctable rejection. It never accompanies a
// state change.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidInput, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidInput, e.Field, e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// UserMessage returns the message to show for err, falling back to the
// error text.
func UserMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	if errors.Is(err, ErrRateLimited) {
		return MsgRateLimitExhausted
	}
	if errors.Is(err, ErrGenerationInProgress) {
		return MsgGenerationBusy
	}
	if errors.Is(err, ErrNotConfigured) {
		return MsgGenerationNotReady
	}
	return err.Error()
}
