package prompts

import (
	"fmt"
	"strings"
)

// maxLessonExcerpt is in runes.
const maxLessonExcerpt = 6000

func ComposeTopicExpansion(courseTitle, lessonTitle, lessonContent, topic string) string {
	excerpt := strings.TrimSpace(lessonContent)
	if r := []rune(excerpt); len(r) > maxLessonExcerpt {
		excerpt = string(r[:maxLessonExcerpt])
	}
	var b strings.Builder
	fmt.Fprintf(&b, "A learner reading the lesson %q from the course %q wants to go deeper on: %q\n", lessonTitle, courseTitle, strings.TrimSpace(topic))
	b.WriteString("\nLesson text:\n")
	b.WriteString(excerpt)
	b.WriteString("\n\nWrite a 200-350 word explanation of that topic in the same voice as the lesson. ")
	b.WriteString("Use markdown paragraphs without headers and include one concrete example. ")
	b.WriteString("Do not repeat the lesson; add what it left out.\n")
	return b.String()
}
