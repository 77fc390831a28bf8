package prompts

import (
	"fmt"
	"strings"
)

const (
	MinGeneratedSessions = 10
	MaxGeneratedSessions = 14
)

// Exchange is one clarifying question and the learner's answer.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

const outlineShape = `{"type":"outline","title":"...","description":"...","sessions":[{"sessionNumber":1,"title":"...","subtitle":"..."}]}`

// ComposeOutlineDecision asks the model to either clarify the topic or propose an outline.
func ComposeOutlineDecision(topic string, transcript []Exchange) string {
	var b strings.Builder
	b.WriteString("You design short self-paced micro-courses. Each session is a 5 minute read.\n")
	fmt.Fprintf(&b, "The learner wants to learn about: %q\n", strings.TrimSpace(topic))

	if len(transcript) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, ex := range transcript {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", strings.TrimSpace(ex.Question), strings.TrimSpace(ex.Answer))
		}
	}

	b.WriteString("\nDecide whether the topic is specific enough to plan a course.\n")
	b.WriteString("If it is too vague, ask exactly one short clarifying question and reply with JSON only:\n")
	b.WriteString(`{"type":"question","question":"..."}`)
	b.WriteString("\nOtherwise reply with JSON only, in this shape:\n")
	b.WriteString(outlineShape)
	fmt.Fprintf(&b, "\nThe outline must have between %d and %d sessions numbered from 1 with no gaps. Every session needs a title.\n", MinGeneratedSessions, MaxGeneratedSessions)
	b.WriteString("Do not add any text outside the JSON.\n")
	return b.String()
}

// ComposeOutlineRevision asks for a full revised outline. priorOutlineJSON is embedded verbatim.
func ComposeOutlineRevision(topic, priorOutlineJSON, feedback string) string {
	var b strings.Builder
	b.WriteString("You design short self-paced micro-courses. Each session is a 5 minute read.\n")
	fmt.Fprintf(&b, "Original topic: %q\n", strings.TrimSpace(topic))
	b.WriteString("\nCurrent outline:\n")
	b.WriteString(strings.TrimSpace(priorOutlineJSON))
	b.WriteString("\n\nLearner feedback on the outline:\n")
	b.WriteString(strings.TrimSpace(feedback))
	b.WriteString("\n\nRevise the outline to address the feedback. Return the complete outline, not a diff, as JSON only:\n")
	b.WriteString(outlineShape)
	fmt.Fprintf(&b, "\nKeep between %d and %d sessions numbered from 1 with no gaps. Every session needs a title.\n", MinGeneratedSessions, MaxGeneratedSessions)
	return b.String()
}
