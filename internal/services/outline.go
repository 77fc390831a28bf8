package services

import (
	"context"
	"strings"

	"github.com/yungbote/microlearn-backend/internal/modules/learning/outline"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/prompts"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

// PreviewInput carries the whole negotiation from the client. The server keeps no
// conversation state between turns.
type PreviewInput struct {
	Topic string
	// Transcript holds the answered questions. A trailing entry with an empty
	// answer is the question Answer responds to.
	Transcript      []prompts.Exchange
	Answer          string
	PreviousOutline *outline.Outline
	Feedback        string
}

type OutlineService interface {
	Preview(ctx context.Context, in PreviewInput) (outline.Reply, error)
}

type outlineService struct {
	log        *logger.Logger
	negotiator *outline.Negotiator
}

func NewOutlineService(baseLog *logger.Logger, negotiator *outline.Negotiator) OutlineService {
	return &outlineService{
		log:        baseLog.With("service", "OutlineService"),
		negotiator: negotiator,
	}
}

func (s *outlineService) Preview(ctx context.Context, in PreviewInput) (outline.Reply, error) {
	conv, input, err := conversationFrom(in)
	if err != nil {
		return outline.Reply{}, err
	}
	_, reply, err := s.negotiator.Submit(ctx, conv, input)
	if err != nil {
		return outline.Reply{}, err
	}
	return reply, nil
}

// conversationFrom rebuilds the negotiator state the client is in and returns
// the input for the next turn.
func conversationFrom(in PreviewInput) (outline.Conversation, string, error) {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return outline.Conversation{}, "", apierr.Validation("topic is required")
	}
	if len([]rune(topic)) > maxTopicLen {
		return outline.Conversation{}, "", apierr.Validation("topic must be at most %d characters", maxTopicLen)
	}

	if in.PreviousOutline != nil {
		prev := in.PreviousOutline.Clone()
		return outline.Conversation{
			State:   outline.StateAwaitingApproval,
			Topic:   topic,
			Outline: &prev,
		}, in.Feedback, nil
	}
	if strings.TrimSpace(in.Feedback) != "" {
		return outline.Conversation{}, "", apierr.Validation("feedback requires previous_outline")
	}

	transcript := make([]prompts.Exchange, 0, len(in.Transcript))
	pending := ""
	for i, ex := range in.Transcript {
		q := strings.TrimSpace(ex.Question)
		a := strings.TrimSpace(ex.Answer)
		if q == "" {
			return outline.Conversation{}, "", apierr.Validation("transcript entry %d has no question", i+1)
		}
		if a == "" {
			if i != len(in.Transcript)-1 {
				return outline.Conversation{}, "", apierr.Validation("transcript entry %d has no answer", i+1)
			}
			pending = q
			continue
		}
		transcript = append(transcript, prompts.Exchange{Question: q, Answer: a})
	}
	if pending == "" && strings.TrimSpace(in.Answer) != "" {
		return outline.Conversation{}, "", apierr.Validation("answer given but no question is pending")
	}

	conv := outline.Conversation{
		State:           outline.StateAwaitingTopic,
		Topic:           topic,
		Transcript:      transcript,
		PendingQuestion: pending,
	}
	if len(transcript) == 0 && pending == "" {
		// First turn: the negotiator takes the topic as input.
		conv.Topic = ""
		return conv, topic, nil
	}
	return conv, in.Answer, nil
}
