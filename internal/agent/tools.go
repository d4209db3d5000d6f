package agent

import (
	"context"
	"fmt"

	"document-assistant/internal/llmservice"
	"document-assistant/internal/models"
)

// Simplify modes.
const (
	ModeSimpleFrench = "Simple French (young audience)"
	ModeFormalFrench = "Formal French"
	ModeEnglish      = "English"
)

// Tools renders the prompt for each assistant task and asks the generator.
type Tools struct {
	gen llmservice.Generator
}

func NewTools(gen llmservice.Generator) *Tools {
	return &Tools{gen: gen}
}

// Steps writes a numbered plan for request. docContext may be empty.
func (t *Tools) Steps(ctx context.Context, request, docContext string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.StepsPromptTemplate, docContext, request))
}

func (t *Tools) Summarize(ctx context.Context, document string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.SummaryPromptTemplate, document))
}

func (t *Tools) Letter(ctx context.Context, goal, docContext string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.LetterPromptTemplate, docContext, goal))
}

func (t *Tools) Checklist(ctx context.Context, task, docContext string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.ChecklistPromptTemplate, docContext, task))
}

func (t *Tools) Simplify(ctx context.Context, document, mode string) (string, error) {
	language, style := simplifyStyle(mode)
	return t.gen.Generate(ctx, fmt.Sprintf(models.SimplifyPromptTemplate, language, style, document))
}

func (t *Tools) General(ctx context.Context, question string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.GeneralPromptTemplate, question))
}

// DocumentQA answers strictly from the document extract.
func (t *Tools) DocumentQA(ctx context.Context, docContext, question string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.QAPromptTemplate, docContext, question))
}

func (t *Tools) Answer(ctx context.Context, docContext, question string) (string, error) {
	return t.gen.Generate(ctx, fmt.Sprintf(models.AnswerPromptTemplate, docContext, question))
}

// unknown modes fall back to simple French
func simplifyStyle(mode string) (language, style string) {
	switch mode {
	case ModeFormalFrench:
		return "French", "formal French, as in an official letter, but still clear."
	case ModeEnglish:
		return "English", "clear and simple English."
	default:
		return "French", "very simple French, like you explain to a teenager, with short sentences."
	}
}
