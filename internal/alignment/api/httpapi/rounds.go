package httpapi

import (
	"net/http"
	"strings"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/service"
	"github.com/concordhq/concord/internal/platform/httpx"
)

type saveDraftRequest struct {
	Round   int                      `json:"round"`
	Answers map[string]domain.Answer `json:"answers"`
}

type responseEnvelope struct {
	Response responsePayload `json:"response"`
}

// handleSaveDraft upserts the caller's draft answers for a round.
// Drafts stay invisible to the partner until submission.
func (s *Server) handleSaveDraft(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	var body saveDraftRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	response, err := s.service.SaveDraft(r.Context(), service.AnswersInput{
		AlignmentID: alignmentID,
		UserID:      grant.UserID,
		Round:       body.Round,
		Answers:     body.Answers,
	})
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, responseEnvelope{Response: responseFromDomain(response)})
}

type submitResponseRequest struct {
	Round int `json:"round"`
}

func (s *Server) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	var body submitResponseRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	response, err := s.service.SubmitResponse(r.Context(), alignmentID, grant.UserID, body.Round)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, responseEnvelope{Response: responseFromDomain(response)})
}

func (s *Server) handleGetOwnResponse(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	round, err := queryInt(r, "round")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	response, err := s.service.GetOwnResponse(r.Context(), alignmentID, grant.UserID, round)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, responseEnvelope{Response: responseFromDomain(response)})
}

type runAnalysisRequest struct {
	Round int `json:"round"`
}

type analysisEnvelope struct {
	Analysis analysisPayload `json:"analysis"`
}

func (s *Server) handleRunAnalysis(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	var body runAnalysisRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	analysis, err := s.service.RunAnalysis(r.Context(), alignmentID, grant.UserID, body.Round)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, analysisEnvelope{Analysis: analysisFromDomain(analysis)})
}

// handleGetAnalysis returns one round's analysis, or the newest one when
// no round parameter is present. An explicit round still validates, so
// round=0 is a request error rather than an alias for latest.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	var analysis domain.Analysis
	if strings.TrimSpace(r.URL.Query().Get("round")) == "" {
		analysis, err = s.service.GetLatestAnalysis(r.Context(), alignmentID, grant.UserID)
	} else {
		var round int
		round, err = queryInt(r, "round")
		if err == nil {
			analysis, err = s.service.GetAnalysis(r.Context(), alignmentID, grant.UserID, round)
		}
	}
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, analysisEnvelope{Analysis: analysisFromDomain(analysis)})
}

type submitResolutionsRequest struct {
	Round int                     `json:"round"`
	Items []domain.ResolutionItem `json:"items"`
}

type submitResolutionsResponse struct {
	ResolutionSet resolutionSetPayload `json:"resolutionSet"`
	Alignment     alignmentPayload     `json:"alignment"`
	RoundAdvanced bool                 `json:"roundAdvanced"`
	Stalled       bool                 `json:"stalled"`
	NextAnalysis  *analysisPayload     `json:"nextAnalysis,omitempty"`
}

// handleSubmitResolutions records the caller's conflict choices. The
// second participant's submission advances or stalls the round, and the
// response says which happened.
func (s *Server) handleSubmitResolutions(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	var body submitResolutionsRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	result, err := s.service.SubmitResolutions(r.Context(), service.SubmitResolutionsInput{
		AlignmentID: alignmentID,
		UserID:      grant.UserID,
		Round:       body.Round,
		Items:       body.Items,
	})
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	payload := submitResolutionsResponse{
		ResolutionSet: resolutionSetFromDomain(result.ResolutionSet),
		Alignment:     alignmentFromRecord(result.Alignment),
		RoundAdvanced: result.RoundAdvanced,
		Stalled:       result.Stalled,
	}
	if result.NextAnalysis != nil {
		next := analysisFromDomain(*result.NextAnalysis)
		payload.NextAnalysis = &next
	}
	_ = httpx.WriteJSON(w, http.StatusOK, payload)
}

type resolutionSetEnvelope struct {
	ResolutionSet resolutionSetPayload `json:"resolutionSet"`
}

func (s *Server) handleGetOwnResolutionSet(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	round, err := queryInt(r, "round")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	set, err := s.service.GetOwnResolutionSet(r.Context(), alignmentID, grant.UserID, round)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, resolutionSetEnvelope{ResolutionSet: resolutionSetFromDomain(set)})
}
