package orchestrator

import (
	"strings"

	"github.com/evalden/concento/pkg/types"
)

// defaultHistoryPairs bounds the conversation recap passed to the Q&A prompt:
// three question/answer pairs, up to six messages.
const defaultHistoryPairs = 3

// FormatHistory renders the last maxPairs question/answer pairs of turns as a
// compact transcript, one line per turn in original order: "Q: ..." for human
// turns, "A: ..." for assistant turns. Turns with unrecognised roles are
// skipped. An empty window yields "".
func FormatHistory(turns []types.Turn, maxPairs int) string {
	if maxPairs <= 0 {
		return ""
	}
	window := turns
	if n := 2 * maxPairs; len(window) > n {
		window = window[len(window)-n:]
	}
	var lines []string
	for _, turn := range window {
		switch turn.Role {
		case types.RoleHuman:
			lines = append(lines, "Q: "+turn.Text)
		case types.RoleAssistant:
			lines = append(lines, "A: "+turn.Text)
		}
	}
	return strings.Join(lines, "\n")
}
