package infrastructure

import (
	"time"
)

// 唯一索引名，冲突时据此判断违反了哪一条约束
const (
	uniqueMemberDay = "uk_participation_member_day"
	uniqueWinner    = "uk_participation_winner"
	uniqueSlot      = "uk_participation_slot"
)

// ParticipationModel 对应数据库中的 participation 表
//
// 三个唯一索引是并发控制的最后一道防线:
//   - (member_id, day_key): 每人每天一条
//   - winner_member_id: 只有中奖记录有值，NULL 不参与唯一性比较，每人终身一次中奖
//   - slot_key: "日期:等级:序号"，每个名额只能被领取一次
type ParticipationModel struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	MemberID       string    `gorm:"size:64;not null;uniqueIndex:uk_participation_member_day,priority:1"`
	DayKey         string    `gorm:"size:10;not null;uniqueIndex:uk_participation_member_day,priority:2;index:idx_participation_day_tier,priority:1"`
	Tier           int       `gorm:"type:tinyint;not null;default:0;index:idx_participation_day_tier,priority:2"`
	IsWinAttempt   bool      `gorm:"not null"`
	SlotNo         int       `gorm:"not null;default:0"`
	WinnerMemberID *string   `gorm:"size:64;uniqueIndex:uk_participation_winner"`
	SlotKey        *string   `gorm:"size:32;uniqueIndex:uk_participation_slot"`
	CreatedAt      time.Time `gorm:"not null;index:idx_participation_created"`
}

// TableName 指定 GORM 应该使用的表名
func (ParticipationModel) TableName() string {
	return "participation"
}

// MemberModel 对应会员目录的 member 表。该表由会员系统维护，这里只读。
type MemberModel struct {
	ID       string `gorm:"primaryKey;size:64"`
	Username string `gorm:"size:64;not null"`
	Name     string `gorm:"size:128"`
}

func (MemberModel) TableName() string {
	return "member"
}
