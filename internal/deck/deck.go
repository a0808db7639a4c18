package deck

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// Size is the number of cells on a card.
	Size = 25
	// FreeSpaceIndex is the center cell, permanently marked.
	FreeSpaceIndex = 12
	// FreeSpace is the synthetic wildcard entry. It is never drawn from the
	// catalog, so a card holds 24 catalog prompts plus this marker.
	FreeSpace = "FREE"
)

var (
	ErrInsufficientCatalog = errors.New("catalog too small to deal a card")
	ErrDeckExhausted       = errors.New("no prompts left to draw")
)

// Line identifies a completed row, column or diagonal on a card.
type Line int

const (
	LineNone Line = iota
	LineRow1
	LineRow2
	LineRow3
	LineRow4
	LineRow5
	LineCol1
	LineCol2
	LineCol3
	LineCol4
	LineCol5
	LineDiagMain
	LineDiagAnti
)

// String matches the pattern descriptions the external validator produces.
func (l Line) String() string {
	switch {
	case l >= LineRow1 && l <= LineRow5:
		return fmt.Sprintf("Row %d (horizontal)", l-LineRow1+1)
	case l >= LineCol1 && l <= LineCol5:
		return fmt.Sprintf("Column %d (vertical)", l-LineCol1+1)
	case l == LineDiagMain:
		return "Main diagonal (top-left to bottom-right)"
	case l == LineDiagAnti:
		return "Anti-diagonal (top-right to bottom-left)"
	}
	return "none"
}

// lines holds cell indices per line in tie-break order: rows top to bottom,
// columns left to right, main diagonal, anti-diagonal.
var lines = []struct {
	id    Line
	cells [5]int
}{
	{LineRow1, [5]int{0, 1, 2, 3, 4}},
	{LineRow2, [5]int{5, 6, 7, 8, 9}},
	{LineRow3, [5]int{10, 11, 12, 13, 14}},
	{LineRow4, [5]int{15, 16, 17, 18, 19}},
	{LineRow5, [5]int{20, 21, 22, 23, 24}},
	{LineCol1, [5]int{0, 5, 10, 15, 20}},
	{LineCol2, [5]int{1, 6, 11, 16, 21}},
	{LineCol3, [5]int{2, 7, 12, 17, 22}},
	{LineCol4, [5]int{3, 8, 13, 18, 23}},
	{LineCol5, [5]int{4, 9, 14, 19, 24}},
	{LineDiagMain, [5]int{0, 6, 12, 18, 24}},
	{LineDiagAnti, [5]int{4, 8, 12, 16, 20}},
}

// DealCard draws 24 distinct prompts from catalog by uniform permutation and
// fixes the free space at the center cell.
func DealCard(catalog []string, rng *rand.Rand) ([]string, error) {
	if len(catalog) < Size-1 {
		return nil, ErrInsufficientCatalog
	}
	perm := rng.Perm(len(catalog))
	card := make([]string, Size)
	next := 0
	for i := range card {
		if i == FreeSpaceIndex {
			card[i] = FreeSpace
			continue
		}
		card[i] = catalog[perm[next]]
		next++
	}
	return card, nil
}

// EvaluateLines returns the first fully marked line in tie-break order, or
// LineNone. The order is fixed so callers observing simultaneous completions
// always see the same winner.
func EvaluateLines(marked [Size]bool) Line {
	for _, l := range lines {
		complete := true
		for _, ix := range l.cells {
			if !marked[ix] {
				complete = false
				break
			}
		}
		if complete {
			return l.id
		}
	}
	return LineNone
}

// DrawNext uniformly selects one prompt from available and returns it with the
// reduced pool. The input slice is not mutated.
func DrawNext(available []string, rng *rand.Rand) (string, []string, error) {
	if len(available) == 0 {
		return "", available, ErrDeckExhausted
	}
	ix := rng.Intn(len(available))
	prompt := available[ix]
	rest := make([]string, 0, len(available)-1)
	rest = append(rest, available[:ix]...)
	rest = append(rest, available[ix+1:]...)
	return prompt, rest, nil
}

// MarkCard derives the marked set for a card: the free space plus every cell
// whose prompt has been called. Re-running on the same inputs is idempotent.
func MarkCard(card []string, called []string) [Size]bool {
	calledSet := make(map[string]struct{}, len(called))
	for _, p := range called {
		calledSet[p] = struct{}{}
	}
	var marked [Size]bool
	for i, entry := range card {
		if i == FreeSpaceIndex && entry == FreeSpace {
			marked[i] = true
			continue
		}
		if _, ok := calledSet[entry]; ok {
			marked[i] = true
		}
	}
	return marked
}
