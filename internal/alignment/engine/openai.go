package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/concordhq/concord/internal/alignment/domain"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/timeouts"
)

const tracerName = "github.com/concordhq/concord/internal/alignment/engine"

// analysisInstructions pins the output contract. parseReport rejects
// anything that deviates, so this wording and the decoder must move
// together.
const analysisInstructions = `Compare how two participants answered the same question set for a shared agreement.
Respond with a single JSON object and nothing else, using exactly these fields:
{"alignedItems":[{"questionId":"","description":"","sharedValue":""}],"conflicts":[{"id":"","questionId":"","severity":"critical|moderate|minor","description":"","personAPosition":"","personBPosition":"","suggestedResolution":""}],"hiddenAssumptions":[""],"gaps":[""],"imbalances":[""],"score":0}
Score runs 0-100 for overall alignment. Record every real disagreement as a conflict; an empty conflicts list means the participants agree. Flag unanswered questions as gaps, unstated premises as hiddenAssumptions, and one-sided effort as imbalances.
When agreedPositions are present they were settled in an earlier round; do not reopen them unless the new answers contradict them.`

// OpenAIConfig configures the primary reasoning engine client.
type OpenAIConfig struct {
	// BaseURL is the API root, e.g. https://api.openai.com/v1.
	BaseURL string
	APIKey  string
	Model   string
	// HTTPClient defaults to a client capped at timeouts.EngineRequest.
	HTTPClient *http.Client
}

// OpenAIProvider calls the OpenAI Responses API and decodes the
// model's JSON report.
type OpenAIProvider struct {
	cfg OpenAIConfig
}

// NewOpenAIProvider validates the configuration and returns a provider.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		return nil, errors.New("engine base url is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("engine api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("engine model is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.EngineRequest}
	}
	return &OpenAIProvider{cfg: cfg}, nil
}

// Analyze runs one comparison against the Responses API.
func (p *OpenAIProvider) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := validateRequest(req); err != nil {
		return Result{}, err
	}
	prompt, err := buildPrompt(req)
	if err != nil {
		return Result{}, err
	}
	outputText, err := p.invoke(ctx, prompt)
	if err != nil {
		return Result{}, err
	}
	report, err := parseReport(outputText)
	if err != nil {
		return Result{}, err
	}
	return Result{Report: report, Source: domain.EngineSourceOpenAI}, nil
}

func (p *OpenAIProvider) invoke(ctx context.Context, prompt string) (output string, err error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine.responses",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("engine.model", p.cfg.Model)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, "engine request failed")
		}
		span.End()
	}()

	requestBody, err := json.Marshal(map[string]any{
		"model": p.cfg.Model,
		"input": prompt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal engine request: %w", err)
	}
	responsesURL := strings.TrimSuffix(p.cfg.BaseURL, "/") + "/responses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material travels only in the Authorization header and
	// is never echoed in errors or response payloads.
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	res, err := p.cfg.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", apperrors.Wrap(apperrors.CodeEngineTimeout, "reasoning engine request timed out", err)
		}
		return "", apperrors.Wrap(apperrors.CodeEngineUnavailable, "reasoning engine request failed", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, readErr := io.ReadAll(io.LimitReader(res.Body, 4096))
		if readErr != nil {
			return "", apperrors.Wrap(apperrors.CodeEngineUnavailable, "reasoning engine request failed", readErr)
		}
		return "", apperrors.WrapWithMetadata(
			apperrors.CodeEngineUnavailable,
			"reasoning engine request failed",
			map[string]string{"Status": strconv.Itoa(res.StatusCode)},
			fmt.Errorf("engine request status %d: %s", res.StatusCode, strings.TrimSpace(string(body))),
		)
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", apperrors.Wrap(apperrors.CodeEngineMalformedOutput, "reasoning engine response is not valid JSON", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return "", apperrors.New(apperrors.CodeEngineMalformedOutput, "reasoning engine response missing output text")
	}
	return outputText, nil
}

// promptQuestion pairs one question with both stated positions.
type promptQuestion struct {
	ID      string `json:"id"`
	Prompt  string `json:"prompt"`
	Kind    string `json:"kind"`
	PersonA string `json:"personA"`
	PersonB string `json:"personB"`
}

// promptPayload is the structured half of the prompt.
type promptPayload struct {
	Round           int               `json:"round"`
	Questions       []promptQuestion  `json:"questions"`
	AgreedPositions map[string]string `json:"agreedPositions,omitempty"`
}

func buildPrompt(req Request) (string, error) {
	payload := promptPayload{
		Round:     req.Round,
		Questions: make([]promptQuestion, 0, len(req.Questions)),
	}
	for _, question := range req.Questions {
		payload.Questions = append(payload.Questions, promptQuestion{
			ID:      question.ID,
			Prompt:  question.Prompt,
			Kind:    string(question.Kind),
			PersonA: req.PersonA.Answers[question.ID].Display(),
			PersonB: req.PersonB.Answers[question.ID].Display(),
		})
	}
	if len(req.MergedPositions) > 0 {
		payload.AgreedPositions = make(map[string]string, len(req.MergedPositions))
		for questionID, answer := range req.MergedPositions {
			payload.AgreedPositions[questionID] = answer.Display()
		}
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal engine prompt: %w", err)
	}
	return analysisInstructions + "\n\n" + string(encoded), nil
}

// parseReport decodes the model's output into a normalized report.
func parseReport(outputText string) (domain.Report, error) {
	raw, err := extractJSON(outputText)
	if err != nil {
		return domain.Report{}, err
	}
	var report domain.Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return domain.Report{}, apperrors.Wrap(apperrors.CodeEngineMalformedOutput, "reasoning engine report is not valid JSON", err)
	}
	for i := range report.Conflicts {
		report.Conflicts[i].Severity = domain.Severity(strings.ToLower(strings.TrimSpace(string(report.Conflicts[i].Severity))))
	}
	normalized, err := domain.NormalizeReport(report)
	if err != nil {
		return domain.Report{}, apperrors.Wrap(apperrors.CodeEngineMalformedOutput, "reasoning engine report failed validation", err)
	}
	return normalized, nil
}

// extractJSON returns the outermost JSON object in the text. Models
// sometimes wrap the report in markdown fences or prose; everything
// outside the outer braces is discarded.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", apperrors.New(apperrors.CodeEngineMalformedOutput, "reasoning engine report contains no JSON object")
	}
	return text[start : end+1], nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
