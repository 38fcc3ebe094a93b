package infrastructure

import (
	"context"
	"strings"
	"time"

	"promo-lottery/internal/service/lottery/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry 是 MySQL 唯一键冲突的错误码
const mysqlDuplicateEntry = 1062

// GormParticipationRepository 是 ParticipationRepository 的 GORM 实现
type GormParticipationRepository struct {
	db  *gorm.DB
	loc *time.Location
}

// NewGormParticipationRepository 创建一个新的 GORM 仓储实例。loc 是活动时区。
func NewGormParticipationRepository(db *gorm.DB, loc *time.Location) *GormParticipationRepository {
	if loc == nil {
		loc = time.Local
	}
	return &GormParticipationRepository{db: db, loc: loc}
}

// Create 插入一条记录，唯一约束冲突被翻译为领域错误
func (r *GormParticipationRepository) Create(ctx context.Context, p *domain.Participation) error {
	model := FromDomainParticipation(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if dup := classifyDuplicate(err); dup != nil {
			return dup
		}
		return errors.Wrap(err, "insert participation")
	}
	p.ID = int64(model.ID)
	return nil
}

func (r *GormParticipationRepository) CountByTier(ctx context.Context, bucket domain.DayBucket, tier domain.Tier) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ParticipationModel{}).
		Where("day_key = ? AND tier = ?", bucket.Key(), tier.Rank()).
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrapf(err, "count tier %d on %s", tier.Rank(), bucket.Key())
	}
	return n, nil
}

func (r *GormParticipationRepository) FindWinByMember(ctx context.Context, memberID string) (*domain.Participation, error) {
	var model ParticipationModel
	err := r.db.WithContext(ctx).
		Where("winner_member_id = ?", memberID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrParticipationNotFound
		}
		return nil, errors.Wrap(err, "find win by member")
	}
	return ToDomainParticipation(&model, r.loc)
}

func (r *GormParticipationRepository) FindByMemberInBucket(ctx context.Context, memberID string, bucket domain.DayBucket) ([]*domain.Participation, error) {
	var models []ParticipationModel
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND day_key = ?", memberID, bucket.Key()).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "find participations by member and day")
	}
	return toDomainParticipations(models, r.loc)
}

// FindInRange 查询 [from, to] 闭区间，按创建时间倒序
func (r *GormParticipationRepository) FindInRange(ctx context.Context, from, to time.Time) ([]*domain.Participation, error) {
	var models []ParticipationModel
	err := r.db.WithContext(ctx).
		Where("created_at BETWEEN ? AND ?", from.UTC(), to.UTC()).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "find participations in range")
	}
	return toDomainParticipations(models, r.loc)
}

const sqliteUniqueFailed = "UNIQUE constraint failed:"

// classifyDuplicate 根据索引名 (MySQL) 或列名 (SQLite) 判断违反的唯一约束。
// 不是唯一约束冲突时返回 nil。
func classifyDuplicate(err error) error {
	var target string
	var myErr *mysql.MySQLError
	switch {
	case errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry:
		target = duplicateKeyName(myErr.Message)
	case strings.Contains(err.Error(), sqliteUniqueFailed):
		_, target, _ = strings.Cut(err.Error(), sqliteUniqueFailed)
	default:
		return nil
	}

	switch {
	case strings.Contains(target, uniqueSlot), strings.Contains(target, "slot_key"):
		return domain.ErrSlotTaken
	case strings.Contains(target, uniqueWinner), strings.Contains(target, "winner_member_id"):
		return domain.ErrDuplicateWin
	case strings.Contains(target, uniqueMemberDay), strings.Contains(target, "day_key"):
		return domain.ErrDuplicateDaily
	default:
		return errors.Wrap(err, "unrecognized unique constraint")
	}
}

// duplicateKeyName 取出 "Duplicate entry '<值>' for key '<索引>'" 中的索引名。
// 值里可能包含任意字符，只看最后一个 for key。
func duplicateKeyName(msg string) string {
	const marker = "for key '"
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	return strings.TrimSuffix(msg[i+len(marker):], "'")
}

// GormMemberDirectory 从 member 表读取会员信息
type GormMemberDirectory struct {
	db *gorm.DB
}

func NewGormMemberDirectory(db *gorm.DB) *GormMemberDirectory {
	return &GormMemberDirectory{db: db}
}

func (d *GormMemberDirectory) FindByID(ctx context.Context, id string) (*domain.Member, error) {
	var model MemberModel
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, errors.Wrap(err, "find member")
	}
	return ToDomainMember(&model), nil
}

func (d *GormMemberDirectory) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Member, error) {
	out := make(map[string]*domain.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var models []MemberModel
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "find members")
	}
	for i := range models {
		out[models[i].ID] = ToDomainMember(&models[i])
	}
	return out, nil
}

// SeedMembers 写入会员记录，已存在的 id 保持不变。本地开发和测试用。
func SeedMembers(ctx context.Context, db *gorm.DB, members []domain.Member) error {
	for _, m := range members {
		model := MemberModel{ID: m.ID, Username: m.Username, Name: m.Name}
		if err := db.WithContext(ctx).Where(MemberModel{ID: m.ID}).FirstOrCreate(&model).Error; err != nil {
			return errors.Wrapf(err, "seed member %s", m.ID)
		}
	}
	return nil
}
