package payload

import (
	"regexp"
	"strings"
)

// MaxAnchorRunes bounds how much preceding text identifies an instruction.
const MaxAnchorRunes = 200

// instructionRe matches author directives. The space after "INK:" is
// mandatory; engine markers such as <!-- INK:NEW --> never match.
var instructionRe = regexp.MustCompile(`<!-- INK: (.*?) -->`)

// Instruction is an author directive found in the review draft.
type Instruction struct {
	Anchor      string `json:"anchor"`
	Instruction string `json:"instruction"`
}

// ExtractInstructions returns text with every author directive removed and
// the directives in order of appearance. Each anchor is the trimmed trailing
// MaxAnchorRunes characters of the cleaned text before the directive, so it
// can be located in the returned text.
func ExtractInstructions(text string) (string, []Instruction) {
	matches := instructionRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, nil
	}

	var cleaned strings.Builder
	cleaned.Grow(len(text))
	instructions := make([]Instruction, 0, len(matches))
	last := 0
	for _, m := range matches {
		cleaned.WriteString(text[last:m[0]])
		instructions = append(instructions, Instruction{
			Anchor:      anchorBefore(cleaned.String()),
			Instruction: strings.TrimSpace(text[m[2]:m[3]]),
		})
		last = m[1]
	}
	cleaned.WriteString(text[last:])
	return cleaned.String(), instructions
}

// HasInstructions reports whether text still carries author directives.
func HasInstructions(text string) bool {
	return instructionRe.MatchString(text)
}

func anchorBefore(preceding string) string {
	runes := []rune(preceding)
	if len(runes) > MaxAnchorRunes {
		runes = runes[len(runes)-MaxAnchorRunes:]
	}
	return strings.TrimSpace(string(runes))
}
