package counsel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/verdictlabs/verdict/pkg/logger"
)

const systemPrompt = `You are the VERDICT Judicial Panel, a collective of three AI judges providing legal guidance.
Always reason carefully, reference applicable U.S. law where possible, and acknowledge uncertainty when facts are thin.
Respond in valid JSON with the structure:
{
  "panel_summary": "...",
  "judges": [
    {"judge": "...", "specialty": "...", "opinion": "..."}
  ],
  "citations": ["..."]
}
If you must ask a clarifying question, do so via the panel_summary field.`

const emptySummaryFallback = "I could not generate an opinion with the provided information."
const emptyResponseFallback = "No analysis was generated."

// Judge is one panel member's opinion in a normalized response.
type Judge struct {
	Judge     string `json:"judge"`
	Specialty string `json:"specialty"`
	Opinion   string `json:"opinion"`
}

// defaultPanel backfills missing names and specialties, and stands in
// entirely when the model returns no usable judge entries.
var defaultPanel = []Judge{
	{Judge: "Judge Morrison", Specialty: "Constitutional & Appellate Law"},
	{Judge: "Judge Chen", Specialty: "Corporate & Contract Law"},
	{Judge: "Judge Rodriguez", Specialty: "Civil Rights & Criminal Procedure"},
}

// Result is the normalized panel response returned to callers.
type Result struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	Judges    []Judge  `json:"judges"`
	Citations []string `json:"citations"`
}

// chatCompleter is the slice of the OpenAI client the service needs. Tests
// substitute a fake; production wires *openai.Client.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config carries the model settings for the counsel service.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Service orchestrates counsel sessions: it builds prompts from transcript
// history, calls the model, validates the structured output, and records the
// exchange.
type Service struct {
	store  *SessionStore
	client chatCompleter
	cfg    Config
	logger *logger.Logger
}

// NewService builds the counsel service. The model client is constructed here,
// up front, so request handling never mutates service state; the session store
// is the only shared mutable state. A missing API key leaves the client unset
// and every ask reports a configuration error.
func NewService(store *SessionStore, log *logger.Logger, cfg Config) *Service {
	s := &Service{
		store:  store,
		cfg:    cfg,
		logger: log,
	}
	if cfg.APIKey != "" {
		s.client = openai.NewClient(cfg.APIKey)
	}
	return s
}

// newServiceWithClient injects a model client directly; used by tests.
func newServiceWithClient(store *SessionStore, log *logger.Logger, cfg Config, client chatCompleter) *Service {
	s := NewService(store, log, cfg)
	s.client = client
	return s
}

// CreateSession allocates a new session and returns its id.
func (s *Service) CreateSession() string {
	return s.store.Create()
}

func (s *Service) ensureClient() (chatCompleter, error) {
	if s.client == nil {
		s.logger.Error("OpenAI API key missing for counsel service")
		return nil, fmt.Errorf("%w: OpenAI API key is not set", ErrConfiguration)
	}
	return s.client, nil
}

// AskQuestion runs one conversational turn: fetch the transcript, build the
// user prompt, call the model, normalize its structured output, append the
// exchange, and return the panel response. Malformed model output degrades to
// a best-effort answer; it never fails the request.
func (s *Service) AskQuestion(ctx context.Context, sessionID, caseTitle, facts, question, jurisdiction, caseType string) (*Result, error) {
	s.logger.Info("Counsel ask",
		"session_id", sessionID,
		"jurisdiction", jurisdiction,
		"case_type", caseType,
		"question_len", len(question),
	)

	client, err := s.ensureClient()
	if err != nil {
		return nil, err
	}

	transcript, err := s.store.Snapshot(sessionID)
	if err != nil {
		return nil, err
	}

	userPrompt := buildPrompt(caseTitle, facts, question, jurisdiction, caseType)

	messages := make([]openai.ChatCompletionMessage, 0, len(transcript)+1)
	for _, m := range transcript {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})

	callCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	resp, err := client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: float32(s.cfg.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Error("Chat completion failed", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("%w: completion failed: %v", ErrService, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrService)
	}

	summary, judges, citations := s.parseResponse(resp.Choices[0].Message.Content)

	err = s.store.Append(sessionID,
		Message{Role: "user", Content: userPrompt},
		Message{Role: "assistant", Content: historySnippet(summary, judges, citations)},
	)
	if err != nil {
		return nil, err
	}

	return &Result{
		SessionID: sessionID,
		Answer:    summary,
		Judges:    judges,
		Citations: citations,
	}, nil
}

// buildPrompt concatenates the fixed sections, omitting absent ones entirely.
func buildPrompt(caseTitle, facts, question, jurisdiction, caseType string) string {
	title := strings.TrimSpace(caseTitle)
	if title == "" {
		title = "General Consultation"
	}

	sections := []string{
		"Case Title: " + title,
		"Question: " + strings.TrimSpace(question),
	}
	if jurisdiction != "" {
		sections = append(sections, "Jurisdiction: "+strings.TrimSpace(jurisdiction))
	}
	if caseType != "" {
		sections = append(sections, "Case Type: "+strings.TrimSpace(caseType))
	}
	if facts != "" {
		sections = append(sections, "Facts:\n"+strings.TrimSpace(facts))
	}

	return strings.Join(sections, "\n\n")
}

type panelPayload struct {
	PanelSummary string `json:"panel_summary"`
	Judges       []struct {
		Judge     string `json:"judge"`
		Specialty string `json:"specialty"`
		Opinion   string `json:"opinion"`
	} `json:"judges"`
	Citations []string `json:"citations"`
}

// parseResponse validates the model's output against the panel contract. Any
// malformed output degrades: unparseable JSON becomes the summary text, a
// missing summary gets a fixed fallback, and an empty judge list is
// synthesized from the default roster so callers always receive structured
// opinions.
func (s *Service) parseResponse(content string) (string, []Judge, []string) {
	var payload panelPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		s.logger.Warn("Model output was not valid JSON; falling back to plain text")
		payload.PanelSummary = strings.TrimSpace(content)
		if payload.PanelSummary == "" {
			payload.PanelSummary = emptyResponseFallback
		}
	}

	summary := strings.TrimSpace(payload.PanelSummary)
	if summary == "" {
		summary = emptySummaryFallback
	}

	judges := make([]Judge, 0, len(payload.Judges))
	for idx, j := range payload.Judges {
		opinion := strings.TrimSpace(j.Opinion)
		if opinion == "" {
			continue
		}
		name := strings.TrimSpace(j.Judge)
		specialty := strings.TrimSpace(j.Specialty)
		if name == "" && idx < len(defaultPanel) {
			name = defaultPanel[idx].Judge
		}
		if specialty == "" && idx < len(defaultPanel) {
			specialty = defaultPanel[idx].Specialty
		}
		if name == "" {
			name = fmt.Sprintf("Panel Judge %d", idx+1)
		}
		judges = append(judges, Judge{Judge: name, Specialty: specialty, Opinion: opinion})
	}

	if len(judges) == 0 {
		for _, member := range defaultPanel {
			judges = append(judges, Judge{Judge: member.Judge, Specialty: member.Specialty, Opinion: summary})
		}
	}

	citations := payload.Citations
	if citations == nil {
		citations = []string{}
	}

	return summary, judges, citations
}

// historySnippet flattens a normalized answer into the textual form stored in
// the transcript; future turns replay this, not the raw JSON.
func historySnippet(summary string, judges []Judge, citations []string) string {
	lines := []string{summary}
	for _, j := range judges {
		if j.Specialty != "" {
			lines = append(lines, fmt.Sprintf("%s (%s): %s", j.Judge, j.Specialty, j.Opinion))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", j.Judge, j.Opinion))
		}
	}
	if len(citations) > 0 {
		lines = append(lines, "Citations: "+strings.Join(citations, ", "))
	}
	return strings.Join(lines, "\n\n")
}
