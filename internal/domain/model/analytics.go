package model

import (
	"encoding/json"
	"time"
)

// ChatAnalyticsRecord is one advisor chat call as persisted for reporting.
// Token counts are nil when the backend reported no usage metadata.
type ChatAnalyticsRecord struct {
	ID                   string          `json:"id"                     db:"id"`
	SessionID            string          `json:"session_id"             db:"session_id"`
	UserID               string          `json:"user_id"                db:"user_id"`
	ModelName            string          `json:"model_name"             db:"model_name"`
	Prompt               string          `json:"prompt"                 db:"prompt"`
	Response             *string         `json:"response"               db:"response"`
	PromptTokenCount     *int            `json:"prompt_token_count"     db:"prompt_token_count"`
	CandidatesTokenCount *int            `json:"candidates_token_count" db:"candidates_token_count"`
	TotalTokenCount      *int            `json:"total_token_count"      db:"total_token_count"`
	ThoughtsTokenCount   *int            `json:"thoughts_token_count"   db:"thoughts_token_count"`
	FinishReason         *string         `json:"finish_reason"          db:"finish_reason"`
	ResponseTimeMS       int             `json:"response_time_ms"       db:"response_time_ms"`
	Success              bool            `json:"success"                db:"success"`
	ErrorMessage         *string         `json:"error_message"          db:"error_message"`
	ContextSnapshot      json.RawMessage `json:"context_snapshot"       db:"context_snapshot"`
	CreatedAt            time.Time       `json:"created_at"             db:"created_at"`
}
