package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/filter"
	"github.com/concordhq/concord/internal/alignment/storage"
)

// Store is the read surface the tools consume.
type Store interface {
	GetAlignment(ctx context.Context, id string) (storage.AlignmentRecord, error)
	ListAlignmentsByUser(ctx context.Context, req storage.ListAlignmentsRequest) (storage.AlignmentPage, error)
	ListParticipants(ctx context.Context, alignmentID string) ([]storage.ParticipantRecord, error)
	GetAnalysisByRound(ctx context.Context, alignmentID string, round int) (storage.AnalysisRecord, error)
	GetLatestAnalysis(ctx context.Context, alignmentID string) (storage.AnalysisRecord, error)
}

// AlignmentGetHandler fetches one alignment with its participants.
func AlignmentGetHandler(store Store) mcp.ToolHandlerFor[AlignmentGetInput, AlignmentGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AlignmentGetInput) (*mcp.CallToolResult, AlignmentGetResult, error) {
		id := strings.TrimSpace(input.AlignmentID)
		if id == "" {
			return nil, AlignmentGetResult{}, fmt.Errorf("alignment_id is required")
		}
		alignment, err := store.GetAlignment(ctx, id)
		if err != nil {
			return nil, AlignmentGetResult{}, fmt.Errorf("fetch alignment: %w", err)
		}
		participants, err := store.ListParticipants(ctx, id)
		if err != nil {
			return nil, AlignmentGetResult{}, fmt.Errorf("list participants: %w", err)
		}
		result := AlignmentGetResult{
			Alignment:    alignmentEntry(alignment),
			Participants: make([]ParticipantEntry, 0, len(participants)),
		}
		for _, participant := range participants {
			result.Participants = append(result.Participants, ParticipantEntry{
				UserID:      participant.UserID,
				Role:        string(participant.Role),
				DisplayName: participant.DisplayName,
				JoinedAt:    formatTimestamp(participant.CreatedAt),
			})
		}
		return nil, result, nil
	}
}

// AlignmentListHandler lists a user's alignments, newest first. The
// filter grammar is the same one the HTTP listing accepts.
func AlignmentListHandler(store Store) mcp.ToolHandlerFor[AlignmentListInput, AlignmentListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AlignmentListInput) (*mcp.CallToolResult, AlignmentListResult, error) {
		userID := strings.TrimSpace(input.UserID)
		if userID == "" {
			return nil, AlignmentListResult{}, fmt.Errorf("user_id is required")
		}
		condition, err := filter.ParseAlignmentFilter(input.Filter)
		if err != nil {
			return nil, AlignmentListResult{}, fmt.Errorf("parse filter: %w", err)
		}
		page, err := store.ListAlignmentsByUser(ctx, storage.ListAlignmentsRequest{
			UserID:       userID,
			PageSize:     input.PageSize,
			PageToken:    input.PageToken,
			FilterClause: condition.Clause,
			FilterParams: condition.Params,
		})
		if err != nil {
			return nil, AlignmentListResult{}, fmt.Errorf("list alignments: %w", err)
		}
		result := AlignmentListResult{
			Alignments:    make([]AlignmentEntry, 0, len(page.Alignments)),
			NextPageToken: page.NextPageToken,
		}
		for _, alignment := range page.Alignments {
			result.Alignments = append(result.Alignments, alignmentEntry(alignment))
		}
		return nil, result, nil
	}
}

// AnalysisGetHandler fetches an analysis summary. The conflict bodies
// stay out of the summary; conflict_list returns them.
func AnalysisGetHandler(store Store) mcp.ToolHandlerFor[AnalysisGetInput, AnalysisGetResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AnalysisGetInput) (*mcp.CallToolResult, AnalysisGetResult, error) {
		record, report, err := fetchAnalysis(ctx, store, input.AlignmentID, input.Round)
		if err != nil {
			return nil, AnalysisGetResult{}, err
		}
		return nil, AnalysisGetResult{
			Analysis: AnalysisSummary{
				ID:                record.ID,
				AlignmentID:       record.AlignmentID,
				Round:             record.Round,
				Engine:            string(record.Engine),
				Score:             report.Score,
				AlignedCount:      len(report.AlignedItems),
				ConflictCount:     len(report.Conflicts),
				HiddenAssumptions: report.HiddenAssumptions,
				Gaps:              report.Gaps,
				Imbalances:        report.Imbalances,
				CreatedAt:         formatTimestamp(record.CreatedAt),
			},
		}, nil
	}
}

// ConflictListHandler lists the open conflicts from a round's analysis.
func ConflictListHandler(store Store) mcp.ToolHandlerFor[ConflictListInput, ConflictListResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ConflictListInput) (*mcp.CallToolResult, ConflictListResult, error) {
		record, report, err := fetchAnalysis(ctx, store, input.AlignmentID, input.Round)
		if err != nil {
			return nil, ConflictListResult{}, err
		}
		result := ConflictListResult{
			AlignmentID: record.AlignmentID,
			Round:       record.Round,
			Conflicts:   make([]ConflictEntry, 0, len(report.Conflicts)),
		}
		for _, conflict := range report.Conflicts {
			result.Conflicts = append(result.Conflicts, ConflictEntry{
				ID:                  conflict.ID,
				QuestionID:          conflict.QuestionID,
				Severity:            string(conflict.Severity),
				Description:         conflict.Description,
				PersonAPosition:     conflict.PersonAPosition,
				PersonBPosition:     conflict.PersonBPosition,
				SuggestedResolution: conflict.SuggestedResolution,
			})
		}
		return nil, result, nil
	}
}

func fetchAnalysis(ctx context.Context, store Store, alignmentID string, round int) (storage.AnalysisRecord, domain.Report, error) {
	id := strings.TrimSpace(alignmentID)
	if id == "" {
		return storage.AnalysisRecord{}, domain.Report{}, fmt.Errorf("alignment_id is required")
	}
	if round < 0 {
		return storage.AnalysisRecord{}, domain.Report{}, fmt.Errorf("round must be positive")
	}
	var (
		record storage.AnalysisRecord
		err    error
	)
	if round == 0 {
		record, err = store.GetLatestAnalysis(ctx, id)
	} else {
		record, err = store.GetAnalysisByRound(ctx, id, round)
	}
	if err != nil {
		return storage.AnalysisRecord{}, domain.Report{}, fmt.Errorf("fetch analysis: %w", err)
	}
	var report domain.Report
	if err := json.Unmarshal([]byte(record.ReportJSON), &report); err != nil {
		return storage.AnalysisRecord{}, domain.Report{}, fmt.Errorf("decode stored report: %w", err)
	}
	return record, report, nil
}

func alignmentEntry(record storage.AlignmentRecord) AlignmentEntry {
	return AlignmentEntry{
		ID:          record.ID,
		TemplateID:  record.TemplateID,
		Status:      string(record.Status),
		Round:       record.Round,
		CreatedAt:   formatTimestamp(record.CreatedAt),
		UpdatedAt:   formatTimestamp(record.UpdatedAt),
		CompletedAt: formatTimestampPtr(record.CompletedAt),
		StalledAt:   formatTimestampPtr(record.StalledAt),
	}
}

func formatTimestamp(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

func formatTimestampPtr(value *time.Time) string {
	if value == nil {
		return ""
	}
	return formatTimestamp(*value)
}
