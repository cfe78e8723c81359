package httpapi

import (
	"net/http"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/filter"
	"github.com/concordhq/concord/internal/alignment/service"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/httpx"
)

type createAlignmentRequest struct {
	TemplateID  string `json:"template_id"`
	DisplayName string `json:"display_name"`
	UserID      string `json:"user_id"`
}

type createAlignmentResponse struct {
	Alignment   alignmentPayload   `json:"alignment"`
	Participant participantPayload `json:"participant"`
	Grant       string             `json:"grant"`
}

// handleCreateAlignment opens a draft alignment. The route is public:
// the response grant is the caller's first credential, and a user id is
// minted when the caller does not bring one.
func (s *Server) handleCreateAlignment(w http.ResponseWriter, r *http.Request) {
	var body createAlignmentRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	result, err := s.service.CreateAlignment(r.Context(), service.CreateAlignmentInput{
		TemplateID:  body.TemplateID,
		DisplayName: body.DisplayName,
		UserID:      body.UserID,
	})
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, createAlignmentResponse{
		Alignment:   alignmentFromRecord(result.Alignment),
		Participant: participantFromRecord(result.Participant),
		Grant:       result.Grant,
	})
}

type listAlignmentsResponse struct {
	Alignments    []alignmentPayload `json:"alignments"`
	NextPageToken string             `json:"nextPageToken,omitempty"`
}

func (s *Server) handleListAlignments(w http.ResponseWriter, r *http.Request) {
	grant, ok := grantFromContext(r.Context())
	if !ok {
		httpx.WriteStatusError(w, r, apperrors.New(apperrors.CodeUnauthenticated, "bearer access grant is required"))
		return
	}
	condition, err := filter.ParseAlignmentFilter(r.URL.Query().Get("filter"))
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	page, err := s.service.ListAlignments(r.Context(), storage.ListAlignmentsRequest{
		UserID:       grant.UserID,
		PageSize:     pageSize,
		PageToken:    r.URL.Query().Get("page_token"),
		FilterClause: condition.Clause,
		FilterParams: condition.Params,
	})
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	payloads := make([]alignmentPayload, 0, len(page.Alignments))
	for _, record := range page.Alignments {
		payloads = append(payloads, alignmentFromRecord(record))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listAlignmentsResponse{
		Alignments:    payloads,
		NextPageToken: page.NextPageToken,
	})
}

type alignmentViewResponse struct {
	Alignment    alignmentPayload     `json:"alignment"`
	Participants []participantPayload `json:"participants"`
}

func (s *Server) handleGetAlignment(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	view, err := s.service.GetAlignment(r.Context(), alignmentID, grant.UserID)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, alignmentViewResponse{
		Alignment:    alignmentFromRecord(view.Alignment),
		Participants: participantsFromRecords(view.Participants),
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	template, err := s.service.TemplateForAlignment(r.Context(), alignmentID, grant.UserID)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, template)
}

type listTemplatesResponse struct {
	Templates []domain.Template `json:"templates"`
}

// handleListTemplates serves the template catalog. Public: callers pick
// a template before they hold any grant.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.service.ListTemplates(r.Context())
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listTemplatesResponse{Templates: templates})
}
