package infrastructure

import (
	"time"

	"promo-lottery/internal/service/lottery/domain"

	"github.com/pkg/errors"
)

// FromDomainParticipation 将领域模型转换为数据库模型 (用于插入)
// CreatedAt 统一以 UTC 落库，保证不同驱动下的时间比较一致。
func FromDomainParticipation(p *domain.Participation) *ParticipationModel {
	if p == nil {
		return nil
	}
	model := &ParticipationModel{
		ID:           uint64(p.ID),
		MemberID:     p.MemberID,
		DayKey:       p.DayKey,
		Tier:         p.Tier.Rank(),
		IsWinAttempt: p.IsWinAttempt,
		SlotNo:       p.SlotNo,
		CreatedAt:    p.CreatedAt.UTC(),
	}
	if p.Tier.IsPrize() {
		winner := p.MemberID
		slot := p.SlotKey()
		model.WinnerMemberID = &winner
		model.SlotKey = &slot
	}
	return model
}

// ToDomainParticipation 将数据库模型转换为领域模型，时间转换到活动时区
func ToDomainParticipation(model *ParticipationModel, loc *time.Location) (*domain.Participation, error) {
	if model == nil {
		return nil, nil
	}
	tier, err := domain.TierFromRank(model.Tier)
	if err != nil {
		return nil, errors.Wrapf(err, "participation %d", model.ID)
	}
	return &domain.Participation{
		ID:           int64(model.ID),
		MemberID:     model.MemberID,
		IsWinAttempt: model.IsWinAttempt,
		Tier:         tier,
		CreatedAt:    model.CreatedAt.In(loc),
		DayKey:       model.DayKey,
		SlotNo:       model.SlotNo,
	}, nil
}

func toDomainParticipations(models []ParticipationModel, loc *time.Location) ([]*domain.Participation, error) {
	out := make([]*domain.Participation, 0, len(models))
	for i := range models {
		p, err := ToDomainParticipation(&models[i], loc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ToDomainMember 将会员表记录转换为领域模型
func ToDomainMember(model *MemberModel) *domain.Member {
	if model == nil {
		return nil
	}
	return &domain.Member{ID: model.ID, Username: model.Username, Name: model.Name}
}
