package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	ErrNoDocument    = errors.New("no document loaded, upload a document first")
	ErrEmptyInput    = errors.New("input must not be empty")
	ErrUnknownAction = errors.New("unknown action")
)

// Action is one task the assistant can perform.
type Action string

const (
	ActionQA        Action = "qa"
	ActionOverview  Action = "overview"
	ActionSteps     Action = "steps"
	ActionLetter    Action = "letter"
	ActionChecklist Action = "checklist"
	ActionSimplify  Action = "simplify"
	ActionGeneral   Action = "general"
	ActionAgent     Action = "agent"
)

var actions = map[Action]struct {
	needsDocument bool
	needsInput    bool
}{
	ActionQA:        {needsDocument: true, needsInput: true},
	ActionOverview:  {needsDocument: true},
	ActionSteps:     {needsDocument: true, needsInput: true},
	ActionLetter:    {needsDocument: true, needsInput: true},
	ActionChecklist: {needsDocument: true, needsInput: true},
	ActionSimplify:  {needsDocument: true},
	ActionGeneral:   {needsInput: true},
	ActionAgent:     {needsInput: true},
}

func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := actions[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Retriever is the document search the assistant reads from.
type Retriever interface {
	Search(ctx context.Context, query string, k int) (string, error)
	Loaded() bool
}

type Request struct {
	Action Action
	Input  string
	Mode   string
}

type Response struct {
	Action  Action `json:"action"`
	Answer  string `json:"answer"`
	Context string `json:"context,omitempty"`
	Tool    Tool   `json:"tool,omitempty"`
}

// Assistant runs actions against a document.
type Assistant struct {
	tools *Tools
	topK  int
}

func NewAssistant(tools *Tools, topK int) *Assistant {
	if topK <= 0 {
		topK = 3
	}
	return &Assistant{tools: tools, topK: topK}
}

func (a *Assistant) Do(ctx context.Context, docs Retriever, req Request) (Response, error) {
	rules, ok := actions[req.Action]
	if !ok {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	input := strings.TrimSpace(req.Input)
	if rules.needsDocument && (docs == nil || !docs.Loaded()) {
		return Response{}, ErrNoDocument
	}
	if rules.needsInput && input == "" {
		return Response{}, ErrEmptyInput
	}

	log.Debug().Str("action", string(req.Action)).Msg("Running action")

	resp := Response{Action: req.Action}
	var err error
	switch req.Action {
	case ActionQA:
		resp.Context, err = docs.Search(ctx, input, a.topK)
		if err == nil {
			resp.Answer, err = a.tools.DocumentQA(ctx, resp.Context, input)
		}
	case ActionGeneral:
		resp.Answer, err = a.tools.General(ctx, input)
	case ActionAgent:
		if docs == nil {
			return Response{}, ErrNoDocument
		}
		var out Outcome
		out, err = NewWorkflow(docs, a.tools, a.topK).Run(ctx, input)
		resp.Answer, resp.Tool, resp.Context = out.Answer.Answer, out.Tool, textOf(out.Step)
	default:
		// the remaining actions work from a broad view of the document
		resp.Context, err = docs.Search(ctx, "", a.topK)
		if err != nil {
			break
		}
		switch req.Action {
		case ActionOverview:
			resp.Answer, err = a.tools.Summarize(ctx, resp.Context)
		case ActionSteps:
			resp.Answer, err = a.tools.Steps(ctx, input, resp.Context)
		case ActionLetter:
			resp.Answer, err = a.tools.Letter(ctx, input, resp.Context)
		case ActionChecklist:
			resp.Answer, err = a.tools.Checklist(ctx, input, resp.Context)
		case ActionSimplify:
			resp.Answer, err = a.tools.Simplify(ctx, resp.Context, req.Mode)
		}
	}
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// HistoryQuestion is what a history entry records as the question.
func HistoryQuestion(req Request) string {
	switch req.Action {
	case ActionOverview:
		return "Overview request"
	case ActionSimplify:
		if req.Mode == "" {
			return ModeSimpleFrench
		}
		return req.Mode
	default:
		return req.Input
	}
}

func textOf(s StepResult) string {
	if s == nil {
		return ""
	}
	return s.Text()
}
