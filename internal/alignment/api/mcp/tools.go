// Package mcp exposes read-only alignment tools over the Model Context
// Protocol. The tools read the same store the HTTP service writes; no
// tool mutates anything.
package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// AlignmentGetInput represents the MCP tool input for fetching one alignment.
type AlignmentGetInput struct {
	AlignmentID string `json:"alignment_id" jsonschema:"alignment identifier"`
}

// AlignmentEntry represents a readable alignment metadata entry.
type AlignmentEntry struct {
	ID          string `json:"id" jsonschema:"alignment identifier"`
	TemplateID  string `json:"template_id" jsonschema:"question template identifier"`
	Status      string `json:"status" jsonschema:"workflow status (draft, active, analyzing, resolving, complete, stalled)"`
	Round       int    `json:"round" jsonschema:"current round number"`
	CreatedAt   string `json:"created_at" jsonschema:"RFC3339 timestamp when the alignment was created"`
	UpdatedAt   string `json:"updated_at" jsonschema:"RFC3339 timestamp when the alignment was last updated"`
	CompletedAt string `json:"completed_at,omitempty" jsonschema:"RFC3339 timestamp when the alignment completed"`
	StalledAt   string `json:"stalled_at,omitempty" jsonschema:"RFC3339 timestamp when the alignment stalled"`
}

// ParticipantEntry represents one seated participant.
type ParticipantEntry struct {
	UserID      string `json:"user_id" jsonschema:"participant user identifier"`
	Role        string `json:"role" jsonschema:"participant role (owner, partner)"`
	DisplayName string `json:"display_name" jsonschema:"participant display name"`
	JoinedAt    string `json:"joined_at" jsonschema:"RFC3339 timestamp when the participant joined"`
}

// AlignmentGetResult represents the MCP tool output for fetching one alignment.
type AlignmentGetResult struct {
	Alignment    AlignmentEntry     `json:"alignment" jsonschema:"alignment metadata"`
	Participants []ParticipantEntry `json:"participants" jsonschema:"seated participants in join order"`
}

// AlignmentListInput represents the MCP tool input for listing alignments.
type AlignmentListInput struct {
	UserID    string `json:"user_id" jsonschema:"user whose alignments to list"`
	Filter    string `json:"filter,omitempty" jsonschema:"optional AIP-160 filter over status, round, template_id, created_at, updated_at"`
	PageSize  int    `json:"page_size,omitempty" jsonschema:"maximum entries to return (default 50, max 200)"`
	PageToken string `json:"page_token,omitempty" jsonschema:"resume token from a previous listing"`
}

// AlignmentListResult represents the MCP tool output for listing alignments.
type AlignmentListResult struct {
	Alignments    []AlignmentEntry `json:"alignments" jsonschema:"alignments the user participates in, newest first"`
	NextPageToken string           `json:"next_page_token,omitempty" jsonschema:"resume token for the next page"`
}

// AnalysisGetInput represents the MCP tool input for fetching an analysis.
type AnalysisGetInput struct {
	AlignmentID string `json:"alignment_id" jsonschema:"alignment identifier"`
	Round       int    `json:"round,omitempty" jsonschema:"round to fetch; omit for the newest analysis"`
}

// AnalysisSummary represents an analysis without its conflict detail.
type AnalysisSummary struct {
	ID                string   `json:"id" jsonschema:"analysis identifier"`
	AlignmentID       string   `json:"alignment_id" jsonschema:"alignment identifier"`
	Round             int      `json:"round" jsonschema:"analyzed round"`
	Engine            string   `json:"engine" jsonschema:"engine source (openai, fallback)"`
	Score             int      `json:"score" jsonschema:"alignment score from 0 to 100"`
	AlignedCount      int      `json:"aligned_count" jsonschema:"number of aligned items"`
	ConflictCount     int      `json:"conflict_count" jsonschema:"number of open conflicts"`
	HiddenAssumptions []string `json:"hidden_assumptions,omitempty" jsonschema:"assumptions one side holds silently"`
	Gaps              []string `json:"gaps,omitempty" jsonschema:"topics neither side addressed"`
	Imbalances        []string `json:"imbalances,omitempty" jsonschema:"one-sided commitments"`
	CreatedAt         string   `json:"created_at" jsonschema:"RFC3339 timestamp when the analysis completed"`
}

// AnalysisGetResult represents the MCP tool output for fetching an analysis.
type AnalysisGetResult struct {
	Analysis AnalysisSummary `json:"analysis" jsonschema:"analysis summary; conflict_list returns the conflict detail"`
}

// ConflictListInput represents the MCP tool input for listing conflicts.
type ConflictListInput struct {
	AlignmentID string `json:"alignment_id" jsonschema:"alignment identifier"`
	Round       int    `json:"round,omitempty" jsonschema:"round to fetch; omit for the newest analysis"`
}

// ConflictEntry represents one open conflict from an analysis report.
type ConflictEntry struct {
	ID                  string `json:"id" jsonschema:"conflict identifier within the analysis"`
	QuestionID          string `json:"question_id" jsonschema:"question the conflict is about"`
	Severity            string `json:"severity" jsonschema:"severity (minor, moderate, critical)"`
	Description         string `json:"description" jsonschema:"what the parties disagree on"`
	PersonAPosition     string `json:"person_a_position" jsonschema:"first participant's position"`
	PersonBPosition     string `json:"person_b_position" jsonschema:"second participant's position"`
	SuggestedResolution string `json:"suggested_resolution,omitempty" jsonschema:"engine-suggested compromise"`
}

// ConflictListResult represents the MCP tool output for listing conflicts.
type ConflictListResult struct {
	AlignmentID string          `json:"alignment_id" jsonschema:"alignment identifier"`
	Round       int             `json:"round" jsonschema:"analyzed round"`
	Conflicts   []ConflictEntry `json:"conflicts" jsonschema:"open conflicts for the round"`
}

// AlignmentGetTool defines the MCP tool schema for fetching one alignment.
func AlignmentGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "alignment_get",
		Description: "Fetches one alignment with its participants",
	}
}

// AlignmentListTool defines the MCP tool schema for listing alignments.
func AlignmentListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "alignment_list",
		Description: "Lists a user's alignments with optional filtering",
	}
}

// AnalysisGetTool defines the MCP tool schema for fetching an analysis.
func AnalysisGetTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "analysis_get",
		Description: "Fetches an analysis summary for a round",
	}
}

// ConflictListTool defines the MCP tool schema for listing conflicts.
func ConflictListTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "conflict_list",
		Description: "Lists the open conflicts from a round's analysis",
	}
}
