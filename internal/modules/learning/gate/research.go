package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/microlearn-backend/internal/data/repos"
	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/pkg/dbctx"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

type ResearchOutcome struct {
	Content    string
	Citations  []types.ResearchCitation
	Confidence float64
	TokenCount int
}

// ResearchTicket proves a caller won the pending -> generating transition for a course's research.
type ResearchTicket struct {
	CourseID uuid.UUID
	Token    uuid.UUID
}

// ResearchGate applies the same claim/complete pattern to course_research.status.
type ResearchGate struct {
	research repos.CourseResearchRepo
	log      *logger.Logger
}

func NewResearchGate(research repos.CourseResearchRepo, baseLog *logger.Logger) *ResearchGate {
	return &ResearchGate{research: research, log: baseLog.With("module", "ResearchGate")}
}

// Claim returns nil when the research is not pending or the row is gone.
func (g *ResearchGate) Claim(ctx context.Context, courseID uuid.UUID) (*ResearchTicket, error) {
	token := uuid.New()
	ok, err := g.research.CompareAndSet(dbctx.New(ctx), courseID,
		[]types.ResearchStatus{types.ResearchStatusPending}, nil,
		map[string]interface{}{
			"status":           types.ResearchStatusGenerating,
			"generation_token": token,
			"started_at":       time.Now().UTC(),
			"completed_at":     nil,
			"error_message":    "",
		})
	if err != nil {
		return nil, fmt.Errorf("claim research %s: %w", courseID, err)
	}
	if !ok {
		g.log.Debug("Research claim lost", "course_id", courseID)
		return nil, nil
	}
	return &ResearchTicket{CourseID: courseID, Token: token}, nil
}

// Complete stores the result only if the ticket still owns the research row.
func (g *ResearchGate) Complete(ctx context.Context, t ResearchTicket, out ResearchOutcome) (bool, error) {
	var cites interface{}
	if enc := types.EncodeResearchCitations(out.Citations); len(enc) > 0 {
		cites = enc
	}
	ok, err := g.research.CompareAndSet(dbctx.New(ctx), t.CourseID,
		[]types.ResearchStatus{types.ResearchStatusGenerating}, &t.Token,
		map[string]interface{}{
			"status":           types.ResearchStatusCompleted,
			"generation_token": nil,
			"content":          out.Content,
			"citations":        cites,
			"confidence_score": out.Confidence,
			"token_count":      out.TokenCount,
			"completed_at":     time.Now().UTC(),
			"error_message":    "",
		})
	if err != nil {
		return false, fmt.Errorf("complete research %s: %w", t.CourseID, err)
	}
	if !ok {
		g.log.Debug("Discarding stale research result", "course_id", t.CourseID)
	}
	return ok, nil
}

func (g *ResearchGate) Fail(ctx context.Context, t ResearchTicket, cause error) (bool, error) {
	msg := "research failed"
	if cause != nil {
		msg = truncate(cause.Error(), 1000)
	}
	ok, err := g.research.CompareAndSet(dbctx.New(ctx), t.CourseID,
		[]types.ResearchStatus{types.ResearchStatusGenerating}, &t.Token,
		map[string]interface{}{
			"status":           types.ResearchStatusFailed,
			"generation_token": nil,
			"error_message":    msg,
			"completed_at":     time.Now().UTC(),
		})
	if err != nil {
		return false, fmt.Errorf("fail research %s: %w", t.CourseID, err)
	}
	return ok, nil
}

// Retry moves failed research back to pending. Only explicit user requests call it.
func (g *ResearchGate) Retry(ctx context.Context, courseID uuid.UUID) (bool, error) {
	ok, err := g.research.CompareAndSet(dbctx.New(ctx), courseID,
		[]types.ResearchStatus{types.ResearchStatusFailed}, nil,
		map[string]interface{}{
			"status":           types.ResearchStatusPending,
			"generation_token": nil,
			"error_message":    "",
			"started_at":       nil,
			"completed_at":     nil,
		})
	if err != nil {
		return false, fmt.Errorf("retry research %s: %w", courseID, err)
	}
	return ok, nil
}
