package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/teamoffsite/promptbingo/internal/deck"
)

// ValidationResult is the validator service's output contract.
type ValidationResult struct {
	IsValidBingo   bool   `json:"isValidBingo"`
	WinningPattern string `json:"winningPattern,omitempty"`
}

// Validator checks a claimed bingo against the external service, then against
// the local line evaluation. The service's answer is advisory: free-text
// pattern parsing is fragile, so the deterministic evaluation always has the
// final word and the game never stalls on a service failure.
type Validator struct {
	Provider Provider
	Model    string
	Timeout  time.Duration
	Log      zerolog.Logger
}

func (v *Validator) Validate(ctx context.Context, card []string, marked [deck.Size]bool) ValidationResult {
	local := deck.EvaluateLines(marked)

	if v.Provider != nil {
		timeout := v.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		raw, err := v.Provider.CompleteJSON(ctx, v.Model, validatePrompt(card, marked))
		if err == nil {
			var res ValidationResult
			if err := json.Unmarshal([]byte(raw), &res); err == nil {
				if parsed := ParseWinningPattern(res.WinningPattern); res.IsValidBingo && parsed == local && parsed != deck.LineNone {
					return res
				}
				v.Log.Warn().
					Str("pattern", res.WinningPattern).
					Bool("serviceValid", res.IsValidBingo).
					Str("local", local.String()).
					Msg("validator disagreed with local evaluation, using local result")
			} else {
				v.Log.Warn().Err(err).Msg("validator returned malformed JSON")
			}
		} else {
			v.Log.Warn().Err(err).Msg("validator unreachable, falling back")
		}
	}

	if local == deck.LineNone {
		return ValidationResult{IsValidBingo: false}
	}
	return ValidationResult{IsValidBingo: true, WinningPattern: local.String()}
}

var (
	rowPattern = regexp.MustCompile(`row\s*([1-5])`)
	colPattern = regexp.MustCompile(`column\s*([1-5])`)
)

// ParseWinningPattern maps the service's natural-language pattern description
// back to a line identifier by substring matching. Unparseable input yields
// LineNone.
func ParseWinningPattern(s string) deck.Line {
	s = strings.ToLower(s)
	if m := rowPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return deck.LineRow1 + deck.Line(n-1)
	}
	if m := colPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return deck.LineCol1 + deck.Line(n-1)
	}
	if strings.Contains(s, "diagonal") {
		switch {
		case strings.Contains(s, "top-left"), strings.Contains(s, "main"):
			return deck.LineDiagMain
		case strings.Contains(s, "top-right"), strings.Contains(s, "anti"):
			return deck.LineDiagAnti
		}
	}
	return deck.LineNone
}

func validatePrompt(card []string, marked [deck.Size]bool) string {
	var b strings.Builder
	b.WriteString("You are an expert Bingo validator. You will be given a Bingo card and a pattern of marked squares.\n")
	b.WriteString("Your job is to determine if the marked squares form a valid Bingo pattern (a full row, column, or diagonal).\n\n")
	b.WriteString("Bingo Card (5x5 grid):")
	for i, entry := range card {
		if i%5 == 0 {
			fmt.Fprintf(&b, "\nRow %d: %s", i/5+1, entry)
		} else {
			fmt.Fprintf(&b, ", %s", entry)
		}
	}
	b.WriteString("\n\nMarked Squares (true = marked, false = not marked):")
	for i, m := range marked {
		if i%5 == 0 {
			fmt.Fprintf(&b, "\nRow %d: %t", i/5+1, m)
		} else {
			fmt.Fprintf(&b, ", %t", m)
		}
	}
	b.WriteString("\n\nBased on the card and marked squares provided above, determine if the player has a valid bingo.\n")
	b.WriteString("A valid bingo is a full row, column, or diagonal of marked squares.\n\n")
	b.WriteString("Please respond with a JSON object containing:\n")
	b.WriteString("- isValidBingo: boolean (true if there's a winning pattern)\n")
	b.WriteString("- winningPattern: string (description of the winning pattern if isValidBingo is true, otherwise omit this field)\n\n")
	b.WriteString("Example responses:\n")
	b.WriteString(`{"isValidBingo": true, "winningPattern": "Row 1 (horizontal)"}` + "\n")
	b.WriteString(`{"isValidBingo": true, "winningPattern": "Column 3 (vertical)"}` + "\n")
	b.WriteString(`{"isValidBingo": true, "winningPattern": "Main diagonal (top-left to bottom-right)"}` + "\n")
	b.WriteString(`{"isValidBingo": false}`)
	return b.String()
}
