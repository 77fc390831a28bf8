package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/microlearn-backend/internal/modules/learning/content"
	"github.com/yungbote/microlearn-backend/internal/modules/learning/prompts"
	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
	"github.com/yungbote/microlearn-backend/internal/platform/openai"
)

type State string

const (
	StateAwaitingTopic    State = "awaiting_topic"
	StateAwaitingApproval State = "awaiting_approval"
	StateBuilt            State = "built"
)

const (
	ReplyQuestion = "question"
	ReplyOutline  = "outline"

	maxOutlineTokens = 2000
)

// ErrUnparseable means the model answered with something that is not a usable question or outline.
// The conversation is left as it was so the turn can be retried.
var ErrUnparseable = fmt.Errorf("could not process the outline response: %w", apierr.ErrProvider)

type Conversation struct {
	State           State
	Topic           string
	Transcript      []prompts.Exchange
	PendingQuestion string
	Outline         *Outline
}

func NewConversation() Conversation {
	return Conversation{State: StateAwaitingTopic}
}

func (c Conversation) clone() Conversation {
	out := c
	out.Transcript = append([]prompts.Exchange(nil), c.Transcript...)
	if c.Outline != nil {
		o := c.Outline.Clone()
		out.Outline = &o
	}
	return out
}

type Reply struct {
	Type     string   `json:"type"`
	Question string   `json:"question,omitempty"`
	Outline  *Outline `json:"outline,omitempty"`
}

type Negotiator struct {
	gen openai.Client
	log *logger.Logger
}

func NewNegotiator(gen openai.Client, baseLog *logger.Logger) *Negotiator {
	return &Negotiator{gen: gen, log: baseLog.With("module", "OutlineNegotiator")}
}

// Submit advances the conversation by one user turn. In AwaitingTopic the input is the
// topic (first turn) or the answer to the pending question; in AwaitingApproval it is
// feedback on the current outline. On error the returned conversation equals conv.
func (n *Negotiator) Submit(ctx context.Context, conv Conversation, input string) (Conversation, Reply, error) {
	input = strings.TrimSpace(input)
	switch conv.State {
	case "", StateAwaitingTopic:
		return n.decide(ctx, conv, input)
	case StateAwaitingApproval:
		return n.revise(ctx, conv, input)
	case StateBuilt:
		return conv, Reply{}, apierr.Validation("outline conversation is already built")
	default:
		return conv, Reply{}, apierr.Validation("unknown conversation state %q", conv.State)
	}
}

func (n *Negotiator) decide(ctx context.Context, conv Conversation, input string) (Conversation, Reply, error) {
	next := conv.clone()
	next.State = StateAwaitingTopic
	switch {
	case strings.TrimSpace(next.Topic) == "":
		if input == "" {
			return conv, Reply{}, apierr.Validation("topic is required")
		}
		next.Topic = input
	case next.PendingQuestion != "":
		if input == "" {
			return conv, Reply{}, apierr.Validation("an answer is required")
		}
		next.Transcript = append(next.Transcript, prompts.Exchange{Question: next.PendingQuestion, Answer: input})
		next.PendingQuestion = ""
	case input != "":
		return conv, Reply{}, apierr.Validation("no question is pending")
	}

	raw, err := n.gen.GenerateText(ctx, prompts.ComposeOutlineDecision(next.Topic, next.Transcript), maxOutlineTokens)
	if err != nil {
		return conv, Reply{}, apierr.Provider(err)
	}
	reply, err := ParseReply(raw)
	if err != nil {
		n.log.Warn("Unusable outline decision", "error", err, "topic", next.Topic)
		return conv, Reply{}, err
	}

	if reply.Type == ReplyQuestion {
		next.PendingQuestion = reply.Question
		return next, reply, nil
	}
	next.State = StateAwaitingApproval
	next.Outline = reply.Outline
	return next, reply, nil
}

func (n *Negotiator) revise(ctx context.Context, conv Conversation, feedback string) (Conversation, Reply, error) {
	if conv.Outline == nil {
		return conv, Reply{}, apierr.Validation("no outline to revise")
	}
	if feedback == "" {
		return conv, Reply{}, apierr.Validation("feedback is required")
	}
	prior, err := json.Marshal(conv.Outline)
	if err != nil {
		return conv, Reply{}, fmt.Errorf("encode outline: %w", err)
	}

	raw, err := n.gen.GenerateText(ctx, prompts.ComposeOutlineRevision(conv.Topic, string(prior), feedback), maxOutlineTokens)
	if err != nil {
		return conv, Reply{}, apierr.Provider(err)
	}
	reply, err := ParseReply(raw)
	if err == nil && reply.Type != ReplyOutline {
		err = fmt.Errorf("%w: revision returned a question", ErrUnparseable)
	}
	if err != nil {
		n.log.Warn("Unusable outline revision", "error", err, "topic", conv.Topic)
		return conv, Reply{}, err
	}

	next := conv.clone()
	next.Outline = reply.Outline
	return next, reply, nil
}

// Build approves the current outline. The conversation becomes terminal.
func (n *Negotiator) Build(conv Conversation) (Conversation, Outline, error) {
	if conv.State != StateAwaitingApproval || conv.Outline == nil {
		return conv, Outline{}, apierr.Validation("no outline awaiting approval")
	}
	approved, err := ValidateForBuild(*conv.Outline)
	if err != nil {
		return conv, Outline{}, err
	}
	next := conv.clone()
	next.State = StateBuilt
	next.Outline = &approved
	return next, approved, nil
}

type wireReply struct {
	Type        string    `json:"type"`
	Question    string    `json:"question"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Sessions    []Session `json:"sessions"`
	Outline     *Outline  `json:"outline"`
}

// ParseReply extracts a question or outline from raw model output, tolerating
// surrounding prose and code fences. Outlines come back normalized.
func ParseReply(raw string) (Reply, error) {
	body := content.ExtractObject(raw)
	if body == "" {
		return Reply{}, fmt.Errorf("%w: no JSON object found", ErrUnparseable)
	}
	var w wireReply
	if err := json.Unmarshal([]byte(body), &w); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	kind := strings.ToLower(strings.TrimSpace(w.Type))
	if kind == ReplyQuestion {
		q := strings.TrimSpace(w.Question)
		if q == "" {
			return Reply{}, fmt.Errorf("%w: empty question", ErrUnparseable)
		}
		return Reply{Type: ReplyQuestion, Question: q}, nil
	}

	o := Outline{Title: w.Title, Description: w.Description, Sessions: w.Sessions}
	if w.Outline != nil && len(w.Sessions) == 0 {
		o = *w.Outline
	}
	if kind != ReplyOutline && !(kind == "" && len(o.Sessions) > 0) {
		return Reply{}, fmt.Errorf("%w: unexpected reply type %q", ErrUnparseable, w.Type)
	}
	o = Normalize(o)
	if err := checkGenerated(o); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return Reply{Type: ReplyOutline, Outline: &o}, nil
}
