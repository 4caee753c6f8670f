package evaluation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/smallnest/docchat/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/tools"
)

// ErrInvalidScore is returned when the model output has no integer score
// between 1 and 5.
var ErrInvalidScore = errors.New("invalid trajectory score")

// Step is one tool call made by an agent.
type Step struct {
	Tool        string `validate:"required"`
	ToolInput   string
	Log         string
	Observation string
}

// Trajectory is one agent run.
type Trajectory struct {
	Input      string `validate:"required"`
	Steps      []Step `validate:"dive"`
	Prediction string `validate:"required"`
	// Reference is an optional expected answer.
	Reference string
}

// StepsFromAgent converts the intermediate steps of a langchaingo agent.
func StepsFromAgent(steps []schema.AgentStep) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		out[i] = Step{
			Tool:        s.Action.Tool,
			ToolInput:   s.Action.ToolInput,
			Log:         s.Action.Log,
			Observation: s.Observation,
		}
	}
	return out
}

// Result is the verdict for one trajectory.
type Result struct {
	// Score is RawScore mapped to [0, 1].
	Score     float64
	RawScore  int
	Reasoning string
}

// TrajectoryEvaluator scores trajectories with a model.
type TrajectoryEvaluator struct {
	llm      llms.Model
	tools    []tools.Tool
	callOpts []llms.CallOption
	validate *validator.Validate
}

// Option configures a TrajectoryEvaluator.
type Option func(*TrajectoryEvaluator)

// WithTools describes the tools the agent had available.
func WithTools(t ...tools.Tool) Option {
	return func(e *TrajectoryEvaluator) { e.tools = append(e.tools, t...) }
}

// WithCallOptions replaces the model call options. The default is temperature 0.
func WithCallOptions(opts ...llms.CallOption) Option {
	return func(e *TrajectoryEvaluator) { e.callOpts = opts }
}

// NewTrajectoryEvaluator creates an evaluator backed by llm.
func NewTrajectoryEvaluator(llm llms.Model, opts ...Option) *TrajectoryEvaluator {
	e := &TrajectoryEvaluator{
		llm:      llm,
		callOpts: []llms.CallOption{llms.WithTemperature(0)},
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EvaluateAgentTrajectory asks the model to grade t.
func (e *TrajectoryEvaluator) EvaluateAgentTrajectory(ctx context.Context, t Trajectory) (Result, error) {
	if err := e.validate.Struct(t); err != nil {
		return Result{}, fmt.Errorf("invalid trajectory: %w", err)
	}

	prompt, err := trajectoryPrompt.Format(map[string]any{
		"tool_descriptions": describeTools(e.tools),
		"question":          t.Input,
		"reference":         t.Reference,
		"agent_trajectory":  formatSteps(t.Steps),
		"answer":            t.Prediction,
	})
	if err != nil {
		return Result{}, err
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, e.llm, prompt, e.callOpts...)
	if err != nil {
		return Result{}, fmt.Errorf("evaluate trajectory: %w", err)
	}
	res, err := parseScore(out)
	if err != nil {
		return Result{}, err
	}
	log.Debug("trajectory for %q scored %d", t.Input, res.RawScore)
	return res, nil
}

var trajectoryPrompt = prompts.NewPromptTemplate(
	`An AI language model has been given access to a set of tools to help answer a user's question.
{{if .tool_descriptions}}
The tools given to the AI model are:
[TOOL_DESCRIPTIONS]
{{.tool_descriptions}}
[END_TOOL_DESCRIPTIONS]
{{end}}
The question the human asked the AI model was:
[QUESTION]
{{.question}}
[END_QUESTION]
{{if .reference}}
An expert wrote the following reference answer:
[REFERENCE]
{{.reference}}
[END_REFERENCE]
{{end}}
The AI language model decided to use the following set of tools to answer the question:
[AGENT_TRAJECTORY]
{{.agent_trajectory}}
[END_AGENT_TRAJECTORY]

The AI language model's final answer to the question was:
[RESPONSE]
{{.answer}}
[END_RESPONSE]

Evaluate the AI language model's answer step by step against these criteria:

i. Is the final answer helpful?
ii. Does the AI language model use a logical sequence of tools to answer the question?
iii. Does the AI language model use the tools in a helpful way?
iv. Does the AI language model use too many steps to answer the question?
v. Are the appropriate tools used to answer the question?

Write your reasoning, then finish with a line of the form "Score: N" where N is an integer from 1 to 5.`,
	[]string{"tool_descriptions", "question", "reference", "agent_trajectory", "answer"},
)

func describeTools(ts []tools.Tool) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = fmt.Sprintf("Tool %d: %s\nDescription: %s", i+1, t.Name(), t.Description())
	}
	return strings.Join(parts, "\n\n")
}

func formatSteps(steps []Step) string {
	if len(steps) == 0 {
		return "No tools were used."
	}
	var sb strings.Builder
	for i, s := range steps {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Step %d:\n", i+1)
		if s.Log != "" {
			fmt.Fprintf(&sb, "Thought: %s\n", strings.TrimSpace(s.Log))
		}
		fmt.Fprintf(&sb, "Tool used: %s\nTool input: %s\nTool output: %s", s.Tool, s.ToolInput, s.Observation)
	}
	return sb.String()
}

var scorePattern = regexp.MustCompile(`(?i)score:\s*(\d+(?:\.\d+)?)`)

// parseScore reads the last "Score: N" in text. Everything before it is
// the reasoning.
func parseScore(text string) (Result, error) {
	matches := scorePattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return Result{}, fmt.Errorf("%w: no score in %q", ErrInvalidScore, text)
	}
	last := matches[len(matches)-1]
	raw := text[last[2]:last[3]]
	if strings.Contains(raw, ".") {
		return Result{}, fmt.Errorf("%w: %s is not an integer", ErrInvalidScore, raw)
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if score < 1 || score > 5 {
		return Result{}, fmt.Errorf("%w: %d is outside 1-5", ErrInvalidScore, score)
	}
	return Result{
		Score:     float64(score-1) / 4,
		RawScore:  score,
		Reasoning: strings.TrimSpace(text[:last[0]]),
	}, nil
}
