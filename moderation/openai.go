package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ErrNoResult is returned when the moderation endpoint answers without a result.
var ErrNoResult = errors.New("moderation returned no result")

// OpenAI checks text with the OpenAI moderation endpoint.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates a moderator. An empty model uses the endpoint default.
func NewOpenAI(client *openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

func (m *OpenAI) Check(ctx context.Context, text string) (Result, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{Input: text, Model: m.model})
	if err != nil {
		return Result{}, fmt.Errorf("moderation: %w", err)
	}
	if len(resp.Results) == 0 {
		return Result{}, ErrNoResult
	}
	r := resp.Results[0]
	return Result{Flagged: r.Flagged, Categories: categories(r.Categories)}, nil
}

func categories(c openai.ResultCategories) []string {
	all := []struct {
		name string
		set  bool
	}{
		{"hate", c.Hate},
		{"hate/threatening", c.HateThreatening},
		{"harassment", c.Harassment},
		{"harassment/threatening", c.HarassmentThreatening},
		{"self-harm", c.SelfHarm},
		{"self-harm/intent", c.SelfHarmIntent},
		{"self-harm/instructions", c.SelfHarmInstructions},
		{"sexual", c.Sexual},
		{"sexual/minors", c.SexualMinors},
		{"violence", c.Violence},
		{"violence/graphic", c.ViolenceGraphic},
	}
	var out []string
	for _, cat := range all {
		if cat.set {
			out = append(out, cat.name)
		}
	}
	return out
}
