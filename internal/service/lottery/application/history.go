// internal/service/lottery/application/history.go
package application

import (
	"context"
	"errors"
	"fmt"

	"promo-lottery/internal/service/lottery/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidFilter 历史过滤表达式无法编译或求值。
var ErrInvalidFilter = errors.New("invalid history filter")

// HistoryFilter 判断一条历史记录是否保留。
type HistoryFilter interface {
	Match(entry HistoryEntry) (bool, error)
}

// FilterCompiler 把查询参数中的表达式编译为 HistoryFilter。
type FilterCompiler interface {
	Compile(expr string) (HistoryFilter, error)
}

// HistoryReporter 按时间倒序列出活动期间的所有记录。只读，容忍最终一致。
type HistoryReporter struct {
	window   domain.EventWindow
	repo     domain.ParticipationRepository
	members  domain.MemberDirectory
	compiler FilterCompiler
	tracer   trace.Tracer
}

func NewHistoryReporter(window domain.EventWindow, repo domain.ParticipationRepository, members domain.MemberDirectory, compiler FilterCompiler, tracer trace.Tracer) *HistoryReporter {
	return &HistoryReporter{
		window:   window,
		repo:     repo,
		members:  members,
		compiler: compiler,
		tracer:   tracerOrNoop(tracer),
	}
}

// ListHistory 返回 [开始日 00:00, 结束日 23:59:59] 内的记录，filterExpr 为空时不过滤。
func (h *HistoryReporter) ListHistory(ctx context.Context, filterExpr string) ([]HistoryEntry, error) {
	ctx, span := h.tracer.Start(ctx, "app.ListHistory")
	defer span.End()

	var filter HistoryFilter
	if filterExpr != "" {
		if h.compiler == nil {
			return nil, fmt.Errorf("%w: filtering is not enabled", ErrInvalidFilter)
		}
		f, err := h.compiler.Compile(filterExpr)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
		}
		filter = f
	}

	from, to := h.window.HistoryRange()
	records, err := h.repo.FindInRange(ctx, from, to)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load history")
		return nil, unavailable("load history", err)
	}

	members, err := h.members.FindByIDs(ctx, distinctMemberIDs(records))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve member names")
		return nil, unavailable("resolve member names", err)
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entry := HistoryEntry{
			MemberID:     r.MemberID,
			MemberName:   members[r.MemberID].DisplayName(),
			IsWinAttempt: r.IsWinAttempt,
			Tier:         r.Tier,
			CreatedAt:    r.CreatedAt,
		}
		if filter != nil {
			keep, err := filter.Match(entry)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
			}
			if !keep {
				continue
			}
		}
		entries = append(entries, entry)
	}
	span.SetAttributes(attribute.Int("lottery.history.size", len(entries)))
	return entries, nil
}

func distinctMemberIDs(records []*domain.Participation) []string {
	seen := make(map[string]struct{}, len(records))
	ids := make([]string, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.MemberID]; ok {
			continue
		}
		seen[r.MemberID] = struct{}{}
		ids = append(ids, r.MemberID)
	}
	return ids
}
