package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Tool is the route picked for a free-form question.
type Tool string

const (
	ToolRAG   Tool = "rag"
	ToolSteps Tool = "steps"
)

var stepKeywords = []string{"step", "procédure", "procedure", "comment faire", "étapes"}

// DetectIntent routes procedural questions to the steps tool and everything
// else to document retrieval.
func DetectIntent(question string) Tool {
	q := strings.ToLower(question)
	for _, kw := range stepKeywords {
		if strings.Contains(q, kw) {
			return ToolSteps
		}
	}
	return ToolRAG
}

// StepResult is the output of one workflow stage.
type StepResult interface {
	Text() string
	isStepResult()
}

// RetrievalResult holds the document context found for the question.
type RetrievalResult struct {
	Context string
}

// StepsResult holds a generated procedural plan.
type StepsResult struct {
	Plan string
}

// AnswerResult holds the final answer.
type AnswerResult struct {
	Answer string
}

func (r RetrievalResult) Text() string { return r.Context }
func (r StepsResult) Text() string     { return r.Plan }
func (r AnswerResult) Text() string    { return r.Answer }

func (RetrievalResult) isStepResult() {}
func (StepsResult) isStepResult()     {}
func (AnswerResult) isStepResult()    {}

// Outcome is the trace of a workflow run.
type Outcome struct {
	Tool   Tool
	Step   StepResult
	Answer AnswerResult
}

// Workflow runs analyze, tool and answer in sequence.
type Workflow struct {
	docs  Retriever
	tools *Tools
	topK  int
}

func NewWorkflow(docs Retriever, tools *Tools, topK int) *Workflow {
	return &Workflow{docs: docs, tools: tools, topK: topK}
}

func (w *Workflow) Run(ctx context.Context, question string) (Outcome, error) {
	tool := DetectIntent(question)
	log.Debug().Str("tool", string(tool)).Msg("Intent detected")

	step, err := w.runTool(ctx, tool, question)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s tool: %w", tool, err)
	}

	answer, err := w.tools.Answer(ctx, step.Text(), question)
	if err != nil {
		return Outcome{}, fmt.Errorf("answer: %w", err)
	}
	return Outcome{Tool: tool, Step: step, Answer: AnswerResult{Answer: answer}}, nil
}

func (w *Workflow) runTool(ctx context.Context, tool Tool, question string) (StepResult, error) {
	switch tool {
	case ToolSteps:
		plan, err := w.tools.Steps(ctx, question, "")
		if err != nil {
			return nil, err
		}
		return StepsResult{Plan: plan}, nil
	default:
		found, err := w.docs.Search(ctx, question, w.topK)
		if err != nil {
			return nil, err
		}
		return RetrievalResult{Context: found}, nil
	}
}
