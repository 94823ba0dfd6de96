package counsel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/verdictlabs/verdict/pkg/logger"
)

// fakeCompleter replays canned model outputs, one per call, and records the
// requests it receives. Safe for concurrent callers.
type fakeCompleter struct {
	mu       sync.Mutex
	outputs  []string
	err      error
	noChoice bool
	requests []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	if f.noChoice {
		return openai.ChatCompletionResponse{}, nil
	}

	output := f.outputs[0]
	if len(f.outputs) > 1 {
		f.outputs = f.outputs[1:]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: "assistant", Content: output}},
		},
	}, nil
}

func newTestService(t *testing.T, fake *fakeCompleter) (*Service, *SessionStore) {
	t.Helper()
	store := NewSessionStore(logger.NewNop(), 0)
	svc := newServiceWithClient(store, logger.NewNop(), Config{Model: "gpt-4o-mini", MaxTokens: 512}, fake)
	return svc, store
}

func TestAskQuestionValidJSON(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{
		`{"panel_summary": "The claim is likely time-barred.",
		  "judges": [
		    {"judge": "Judge Morrison", "specialty": "Constitutional & Appellate Law", "opinion": "Barred by the statute of limitations."},
		    {"judge": "", "specialty": "", "opinion": "Equitable tolling is unlikely to apply."}
		  ],
		  "citations": ["28 U.S.C. 2401"]}`,
	}}
	svc, _ := newTestService(t, fake)
	sessionID := svc.CreateSession()

	result, err := svc.AskQuestion(context.Background(), sessionID, "Doe v. Agency", "", "Is the claim barred?", "federal", "")
	if err != nil {
		t.Fatalf("AskQuestion() error = %v", err)
	}

	if result.Answer != "The claim is likely time-barred." {
		t.Errorf("Answer = %q", result.Answer)
	}
	if len(result.Judges) != 2 {
		t.Fatalf("Judges = %d entries, want 2", len(result.Judges))
	}
	// Missing name/specialty backfilled from the roster by position.
	if result.Judges[1].Judge != "Judge Chen" {
		t.Errorf("backfilled judge = %q, want Judge Chen", result.Judges[1].Judge)
	}
	if result.Judges[1].Specialty != "Corporate & Contract Law" {
		t.Errorf("backfilled specialty = %q", result.Judges[1].Specialty)
	}
	if len(result.Citations) != 1 || result.Citations[0] != "28 U.S.C. 2401" {
		t.Errorf("Citations = %v", result.Citations)
	}
}

func TestAskQuestionPromptSections(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{`{"panel_summary": "ok"}`}}
	svc, _ := newTestService(t, fake)
	sessionID := svc.CreateSession()

	_, err := svc.AskQuestion(context.Background(), sessionID, "", "The tenant stopped paying rent.", "May the landlord evict?", "California", "contract")
	if err != nil {
		t.Fatal(err)
	}

	req := fake.requests[0]
	prompt := req.Messages[len(req.Messages)-1].Content

	want := "Case Title: General Consultation\n\n" +
		"Question: May the landlord evict?\n\n" +
		"Jurisdiction: California\n\n" +
		"Case Type: contract\n\n" +
		"Facts:\nThe tenant stopped paying rent."
	if prompt != want {
		t.Errorf("prompt = %q, want %q", prompt, want)
	}

	// Optional sections are absent, not emitted as empty labels.
	_, err = svc.AskQuestion(context.Background(), sessionID, "Doe v. Roe", "", "Second question?", "", "")
	if err != nil {
		t.Fatal(err)
	}
	prompt = fake.requests[1].Messages[len(fake.requests[1].Messages)-1].Content
	if strings.Contains(prompt, "Jurisdiction:") || strings.Contains(prompt, "Facts:") {
		t.Errorf("omitted sections leaked into prompt: %q", prompt)
	}
}

func TestAskQuestionTranscriptGrowth(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{
		`{"panel_summary": "First answer."}`,
		`{"panel_summary": "Second answer."}`,
	}}
	svc, store := newTestService(t, fake)
	sessionID := svc.CreateSession()

	for _, q := range []string{"First question?", "Second question?"} {
		if _, err := svc.AskQuestion(context.Background(), sessionID, "", "", q, "", ""); err != nil {
			t.Fatal(err)
		}
	}

	transcript, err := store.Snapshot(sessionID)
	if err != nil {
		t.Fatal(err)
	}

	wantRoles := []string{"system", "user", "assistant", "user", "assistant"}
	if len(transcript) != len(wantRoles) {
		t.Fatalf("transcript length = %d, want %d", len(transcript), len(wantRoles))
	}
	for i, role := range wantRoles {
		if transcript[i].Role != role {
			t.Errorf("entry %d role = %q, want %q", i, transcript[i].Role, role)
		}
	}

	// The second call must replay the full history to the model.
	secondReq := fake.requests[1]
	if len(secondReq.Messages) != 4 {
		t.Errorf("second request carried %d messages, want 4 (history + new prompt)", len(secondReq.Messages))
	}
	// The assistant history entry is the flattened rendering, not raw JSON.
	if strings.Contains(transcript[2].Content, "panel_summary") {
		t.Errorf("assistant history looks like raw JSON: %q", transcript[2].Content)
	}
	if !strings.Contains(transcript[2].Content, "First answer.") {
		t.Errorf("assistant history missing summary: %q", transcript[2].Content)
	}
}

func TestAskQuestionUnknownSession(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{`{"panel_summary": "ok"}`}}
	svc, store := newTestService(t, fake)

	_, err := svc.AskQuestion(context.Background(), "never-created", "", "", "Question?", "", "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("error = %v, want ErrSessionNotFound", err)
	}
	if len(fake.requests) != 0 {
		t.Error("model should not be called for an unknown session")
	}
	if store.Len() != 0 {
		t.Error("no session state should have been created")
	}
}

func TestAskQuestionNotJSON(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{"not json at all"}}
	svc, _ := newTestService(t, fake)
	sessionID := svc.CreateSession()

	result, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", "")
	if err != nil {
		t.Fatalf("malformed model output must not fail the request: %v", err)
	}

	if result.Answer != "not json at all" {
		t.Errorf("Answer = %q, want raw text", result.Answer)
	}
	if len(result.Judges) != len(defaultPanel) {
		t.Fatalf("Judges = %d entries, want full default roster", len(result.Judges))
	}
	for i, j := range result.Judges {
		if j.Judge != defaultPanel[i].Judge || j.Specialty != defaultPanel[i].Specialty {
			t.Errorf("judge %d = %+v, want roster member %+v", i, j, defaultPanel[i])
		}
		if j.Opinion != "not json at all" {
			t.Errorf("judge %d opinion = %q, want the summary", i, j.Opinion)
		}
	}
	if len(result.Citations) != 0 {
		t.Errorf("Citations = %v, want empty", result.Citations)
	}
}

func TestAskQuestionEmptyFieldsJSON(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{`{}`}}
	svc, _ := newTestService(t, fake)
	sessionID := svc.CreateSession()

	result, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer == "" {
		t.Error("Answer must never be empty")
	}
	if len(result.Judges) == 0 {
		t.Error("Judges must never be empty")
	}
	for _, j := range result.Judges {
		if j.Opinion == "" {
			t.Error("every judge must carry a non-empty opinion")
		}
	}
}

func TestAskQuestionJudgesWithEmptyOpinionDropped(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{
		`{"panel_summary": "s", "judges": [
			{"judge": "A", "specialty": "X", "opinion": "kept"},
			{"judge": "B", "specialty": "Y", "opinion": "   "}
		]}`,
	}}
	svc, _ := newTestService(t, fake)
	sessionID := svc.CreateSession()

	result, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Judges) != 1 || result.Judges[0].Opinion != "kept" {
		t.Errorf("Judges = %+v, want only the entry with a real opinion", result.Judges)
	}
}

func TestAskQuestionProviderFailure(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("connection refused")}
	svc, store := newTestService(t, fake)
	sessionID := svc.CreateSession()

	_, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", "")
	if !errors.Is(err, ErrService) {
		t.Errorf("error = %v, want ErrService", err)
	}

	// A failed call must not record a partial exchange.
	transcript, _ := store.Snapshot(sessionID)
	if len(transcript) != 1 {
		t.Errorf("transcript length = %d after failure, want 1", len(transcript))
	}
}

func TestAskQuestionEmptyChoices(t *testing.T) {
	fake := &fakeCompleter{noChoice: true}
	svc, _ := newTestService(t, fake)
	sessionID := svc.CreateSession()

	_, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", "")
	if !errors.Is(err, ErrService) {
		t.Errorf("error = %v, want ErrService", err)
	}
}

func TestNewServiceBuildsClientUpFront(t *testing.T) {
	store := NewSessionStore(logger.NewNop(), 0)

	svc := NewService(store, logger.NewNop(), Config{APIKey: "test-key"})
	if svc.client == nil {
		t.Error("a configured service must carry its client from construction")
	}

	svc = NewService(store, logger.NewNop(), Config{})
	if svc.client != nil {
		t.Error("an unconfigured service must not carry a client")
	}
}

func TestAskQuestionConcurrent(t *testing.T) {
	fake := &fakeCompleter{outputs: []string{`{"panel_summary": "ok"}`}}
	svc, store := newTestService(t, fake)

	// Request handling must not mutate service state; the session store is
	// the only shared mutable state, and it serializes internally. Run many
	// first-requests at once so the race detector can see any violation.
	const goroutines = 16
	const asksPerSession = 4

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*asksPerSession)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessionID := svc.CreateSession()
			for j := 0; j < asksPerSession; j++ {
				if _, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", ""); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent AskQuestion() error = %v", err)
	}
	if store.Len() != goroutines {
		t.Errorf("sessions = %d, want %d", store.Len(), goroutines)
	}
}

func TestAskQuestionMissingAPIKey(t *testing.T) {
	store := NewSessionStore(logger.NewNop(), 0)
	svc := NewService(store, logger.NewNop(), Config{})
	sessionID := svc.CreateSession()

	_, err := svc.AskQuestion(context.Background(), sessionID, "", "", "Question?", "", "")
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("error = %v, want ErrConfiguration", err)
	}
}
