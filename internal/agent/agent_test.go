package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-assistant/internal/models"
)

type recordingGenerator struct {
	prompts []string
	reply   string
	err     error
}

func (g *recordingGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

type searchCall struct {
	query string
	k     int
}

type fakeDocs struct {
	loaded bool
	calls  []searchCall
}

func (d *fakeDocs) Search(_ context.Context, query string, k int) (string, error) {
	d.calls = append(d.calls, searchCall{query, k})
	if !d.loaded {
		return models.NoDocumentLoaded, nil
	}
	if query == "" {
		return "first chunks", nil
	}
	return "matching chunks", nil
}

func (d *fakeDocs) Loaded() bool { return d.loaded }

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		question string
		want     Tool
	}{
		{"Quelles sont les étapes pour renouveler mon titre ?", ToolSteps},
		{"Comment faire une demande de logement ?", ToolSteps},
		{"What is the PROCEDURE?", ToolSteps},
		{"Give me each step", ToolSteps},
		{"Quelle est la date du rendez-vous ?", ToolRAG},
		{"", ToolRAG},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectIntent(tt.question))
		})
	}
}

func TestWorkflowRAG(t *testing.T) {
	gen := &recordingGenerator{reply: "Le rendez-vous est le 3 mars."}
	docs := &fakeDocs{loaded: true}
	w := NewWorkflow(docs, NewTools(gen), 3)

	out, err := w.Run(context.Background(), "Quelle est la date ?")
	require.NoError(t, err)
	assert.Equal(t, ToolRAG, out.Tool)
	assert.Equal(t, RetrievalResult{Context: "matching chunks"}, out.Step)
	assert.Equal(t, "Le rendez-vous est le 3 mars.", out.Answer.Answer)
	assert.Equal(t, []searchCall{{"Quelle est la date ?", 3}}, docs.calls)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "CONTEXT:\nmatching chunks")
}

func TestWorkflowSteps(t *testing.T) {
	gen := &recordingGenerator{reply: "1. Go"}
	docs := &fakeDocs{loaded: true}
	w := NewWorkflow(docs, NewTools(gen), 3)

	out, err := w.Run(context.Background(), "Comment faire pour déménager ?")
	require.NoError(t, err)
	assert.Equal(t, ToolSteps, out.Tool)
	plan, ok := out.Step.(StepsResult)
	require.True(t, ok)
	assert.Equal(t, "1. Go", plan.Plan)
	assert.Empty(t, docs.calls)
	assert.Len(t, gen.prompts, 2)
}

func TestWorkflowPropagatesErrors(t *testing.T) {
	boom := errors.New("llm down")
	w := NewWorkflow(&fakeDocs{loaded: true}, NewTools(&recordingGenerator{err: boom}), 3)
	_, err := w.Run(context.Background(), "procédure ?")
	assert.ErrorIs(t, err, boom)
}

func TestAssistantValidation(t *testing.T) {
	a := NewAssistant(NewTools(&recordingGenerator{reply: "ok"}), 3)
	ctx := context.Background()

	_, err := a.Do(ctx, &fakeDocs{}, Request{Action: ActionQA, Input: "date ?"})
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = a.Do(ctx, nil, Request{Action: ActionOverview})
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = a.Do(ctx, &fakeDocs{loaded: true}, Request{Action: ActionLetter, Input: "   "})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = a.Do(ctx, nil, Request{Action: ActionGeneral})
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = a.Do(ctx, nil, Request{Action: "dance"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestAssistantActions(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		wantSearch  []searchCall
		wantContext string
		wantPrompt  string
	}{
		{
			name:        "qa",
			req:         Request{Action: ActionQA, Input: "Quelle date ?"},
			wantSearch:  []searchCall{{"Quelle date ?", 3}},
			wantContext: "matching chunks",
			wantPrompt:  "Use ONLY the following document extract",
		},
		{
			name:        "overview",
			req:         Request{Action: ActionOverview},
			wantSearch:  []searchCall{{"", 3}},
			wantContext: "first chunks",
			wantPrompt:  "Summarize the following document in French",
		},
		{
			name:        "steps",
			req:         Request{Action: ActionSteps, Input: "renouveler"},
			wantSearch:  []searchCall{{"", 3}},
			wantContext: "first chunks",
			wantPrompt:  "USER REQUEST:\nrenouveler",
		},
		{
			name:        "letter",
			req:         Request{Action: ActionLetter, Input: "reporter le rendez-vous"},
			wantSearch:  []searchCall{{"", 3}},
			wantContext: "first chunks",
			wantPrompt:  "USER GOAL:\nreporter le rendez-vous",
		},
		{
			name:        "checklist",
			req:         Request{Action: ActionChecklist, Input: "passeport"},
			wantSearch:  []searchCall{{"", 3}},
			wantContext: "first chunks",
			wantPrompt:  "TASK:\npasseport",
		},
		{
			name:        "simplify english",
			req:         Request{Action: ActionSimplify, Mode: ModeEnglish},
			wantSearch:  []searchCall{{"", 3}},
			wantContext: "first chunks",
			wantPrompt:  "Use this style: clear and simple English.",
		},
		{
			name:       "general",
			req:        Request{Action: ActionGeneral, Input: "Comment obtenir la CAF ?"},
			wantPrompt: "QUESTION:\nComment obtenir la CAF ?",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &recordingGenerator{reply: "answer"}
			docs := &fakeDocs{loaded: true}
			a := NewAssistant(NewTools(gen), 3)

			resp, err := a.Do(context.Background(), docs, tt.req)
			require.NoError(t, err)
			assert.Equal(t, "answer", resp.Answer)
			assert.Equal(t, tt.req.Action, resp.Action)
			assert.Equal(t, tt.wantContext, resp.Context)
			assert.Equal(t, tt.wantSearch, docs.calls)
			require.Len(t, gen.prompts, 1)
			assert.Contains(t, gen.prompts[0], tt.wantPrompt)
		})
	}
}

func TestAssistantAgentWithoutDocument(t *testing.T) {
	gen := &recordingGenerator{reply: "answer"}
	a := NewAssistant(NewTools(gen), 3)

	resp, err := a.Do(context.Background(), &fakeDocs{}, Request{Action: ActionAgent, Input: "date ?"})
	require.NoError(t, err)
	assert.Equal(t, ToolRAG, resp.Tool)
	assert.Equal(t, models.NoDocumentLoaded, resp.Context)
}

func TestSimplifyStyle(t *testing.T) {
	lang, style := simplifyStyle("")
	assert.Equal(t, "French", lang)
	assert.Contains(t, style, "teenager")

	lang, style = simplifyStyle(ModeFormalFrench)
	assert.Equal(t, "French", lang)
	assert.Contains(t, style, "official letter")
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" QA ")
	require.NoError(t, err)
	assert.Equal(t, ActionQA, a)

	_, err = ParseAction("translate")
	assert.ErrorIs(t, err, ErrUnknownAction)

	assert.Equal(t, "Overview request", HistoryQuestion(Request{Action: ActionOverview}))
	assert.Equal(t, ModeSimpleFrench, HistoryQuestion(Request{Action: ActionSimplify}))
}
