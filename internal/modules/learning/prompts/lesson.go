package prompts

import (
	"fmt"
	"strings"

	types "github.com/yungbote/microlearn-backend/internal/domain"
)

// FeedbackWindow is how many recent course feedback entries a lesson prompt carries.
const FeedbackWindow = 3

type LessonInput struct {
	CourseTitle       string
	CourseDescription string
	TotalLessons      int
	SessionNumber     int
	LessonTitle       string
	LessonSubtitle    string
	// Feedback is oldest first. Only the last FeedbackWindow entries are used.
	Feedback []string
	// Research is nil unless the course research completed.
	Research *ResearchContext
}

type ResearchContext struct {
	Content string
	Sources []types.ResearchCitation
}

// LessonInputFrom assembles the input from persisted rows. research is ignored unless completed.
func LessonInputFrom(course *types.Course, lesson *types.Lesson, feedback []*types.LessonFeedback, research *types.CourseResearch) LessonInput {
	in := LessonInput{
		CourseTitle:       course.Title,
		CourseDescription: course.Description,
		TotalLessons:      course.TotalLessons,
		SessionNumber:     lesson.SessionNumber,
		LessonTitle:       lesson.Title,
		LessonSubtitle:    lesson.Subtitle,
	}
	for _, fb := range feedback {
		if fb != nil {
			in.Feedback = append(in.Feedback, fb.Feedback)
		}
	}
	if research != nil && research.Status == types.ResearchStatusCompleted && strings.TrimSpace(research.Content) != "" {
		in.Research = &ResearchContext{Content: research.Content, Sources: research.CitationList()}
	}
	return in
}

// HasSources reports whether the prompt will ask for [N] markers.
func (in LessonInput) HasSources() bool {
	return in.Research != nil && len(in.Research.Sources) > 0
}

// ComposeLesson builds the lesson generation prompt. Same input, same output.
func ComposeLesson(in LessonInput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are writing session %d of %d in the micro-course %q.\n", in.SessionNumber, in.TotalLessons, in.CourseTitle)
	if d := strings.TrimSpace(in.CourseDescription); d != "" {
		fmt.Fprintf(&b, "Course description: %s\n", d)
	}
	fmt.Fprintf(&b, "Lesson title: %q\n", in.LessonTitle)
	if s := strings.TrimSpace(in.LessonSubtitle); s != "" {
		fmt.Fprintf(&b, "Lesson subtitle: %q\n", s)
	}

	b.WriteString("\nWrite the lesson for a curious adult with no background in the subject, at roughly an 8th-grade reading level.\n")
	b.WriteString("Rules:\n")
	b.WriteString("- Use markdown with plain paragraphs. Do not use headers in the body of the lesson.\n")
	b.WriteString("- Include at least one concrete real-world example.\n")
	b.WriteString("- Aim for 500-700 words.\n")
	b.WriteString("- End with a \"Further Reading\" section that lists 2-3 credible sources by name.\n")
	if in.SessionNumber > 1 {
		b.WriteString("- Build on earlier sessions without repeating them.\n")
	}

	if fb := feedbackLines(in.Feedback); len(fb) > 0 {
		b.WriteString("\nRecent learner feedback on this course (oldest first). Adjust tone, depth and pacing to it:\n")
		for _, line := range fb {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	if in.Research != nil {
		b.WriteString("\nResearch notes for this course:\n")
		b.WriteString(strings.TrimSpace(in.Research.Content))
		b.WriteString("\n")
		if in.HasSources() {
			b.WriteString("\nSources:\n")
			for i, src := range in.Research.Sources {
				fmt.Fprintf(&b, "[%d] %s\n", i+1, sourceLabel(src))
			}
			b.WriteString("\nWhen a sentence relies on one of these sources, cite it with its bracketed number, for example [1]. ")
			b.WriteString("Use only numbers from the list above and never invent new ones.\n")
		}
	}

	return b.String()
}

func feedbackLines(all []string) []string {
	out := make([]string, 0, FeedbackWindow)
	for _, f := range all {
		if f = strings.Join(strings.Fields(f), " "); f != "" {
			out = append(out, f)
		}
	}
	if len(out) > FeedbackWindow {
		out = out[len(out)-FeedbackWindow:]
	}
	return out
}

func sourceLabel(src types.ResearchCitation) string {
	title := strings.TrimSpace(src.Title)
	if title == "" {
		title = src.Domain
	}
	if title == "" {
		return src.URL
	}
	return fmt.Sprintf("%s - %s", title, src.URL)
}
