package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Insights is the derived theme summary of a note board. It is recomputed on
// demand, never persisted.
type Insights struct {
	WishesSummary  string `json:"wishesSummary"`
	WorriesSummary string `json:"worriesSummary"`
	FromFallback   bool   `json:"fromFallback,omitempty"`
}

// Summarizer asks the external service to condense wishes and worries into
// "Theme (count)" listings. On any failure it degrades to raw counts rather
// than surfacing an error to the board.
type Summarizer struct {
	Provider Provider
	Model    string
	Timeout  time.Duration
	Log      zerolog.Logger
}

func (s *Summarizer) Consolidate(ctx context.Context, wishes, worries []string) Insights {
	if s.Provider != nil {
		timeout := s.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		raw, err := s.Provider.CompleteJSON(ctx, s.Model, consolidatePrompt(wishes, worries))
		if err == nil {
			var out Insights
			if err := json.Unmarshal([]byte(raw), &out); err == nil &&
				out.WishesSummary != "" && out.WorriesSummary != "" {
				return out
			}
			s.Log.Warn().Err(err).Msg("summarizer returned malformed JSON, falling back")
		} else {
			s.Log.Warn().Err(err).Msg("summarizer unreachable, falling back")
		}
	}
	return FallbackInsights(wishes, worries)
}

// FallbackInsights is the deterministic degraded summary: raw counts only.
func FallbackInsights(wishes, worries []string) Insights {
	out := Insights{
		WishesSummary:  "No wishes yet",
		WorriesSummary: "No worries yet",
		FromFallback:   true,
	}
	if len(wishes) > 0 {
		out.WishesSummary = fmt.Sprintf("Various Wishes (%d)", len(wishes))
	}
	if len(worries) > 0 {
		out.WorriesSummary = fmt.Sprintf("Various Concerns (%d)", len(worries))
	}
	return out
}

func consolidatePrompt(wishes, worries []string) string {
	var b strings.Builder
	b.WriteString("You are a qualitative data analyst. You will be given a list of \"wishes\" and a list of \"worries\" from a team brainstorming session about AI.\n")
	b.WriteString("Your task is to identify the recurring themes in each list, count the occurrences of each theme, and provide a concise summary.\n\n")
	b.WriteString("Analyze the following wishes:\n")
	for _, w := range wishes {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	b.WriteString("\nAnalyze the following worries:\n")
	for _, w := range worries {
		fmt.Fprintf(&b, "- %s\n", w)
	}
	b.WriteString("\nBased on your analysis, generate a comma-separated summary for the wishes and another for the worries.\n")
	b.WriteString("For wishesSummary, list the main positive themes and their counts.\n")
	b.WriteString("For worriesSummary, list the main negative themes and their counts.\n")
	b.WriteString("Normalize the themes (e.g., \"losing my job\" and \"job displacement\" should both count towards \"Job Displacement\").\n\n")
	b.WriteString("Please respond with a JSON object containing:\n")
	b.WriteString("- wishesSummary: string (comma-separated themes with counts, e.g., \"Personalized Learning (2), Medical Breakthroughs (1)\")\n")
	b.WriteString("- worriesSummary: string (comma-separated themes with counts, e.g., \"Job Displacement (3), Privacy (2), AI Bias (1)\")")
	return b.String()
}
