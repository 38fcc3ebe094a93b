package domain

import "errors"

var (
	// ErrMemberNotFound 会员不存在，不能当作业务拒绝处理。
	ErrMemberNotFound = errors.New("member not found")
	// ErrParticipationNotFound 仓储查询无结果。
	ErrParticipationNotFound = errors.New("participation not found")

	// 以下三个错误由仓储在唯一约束冲突时返回。
	ErrDuplicateDaily = errors.New("member already has a participation in this day bucket")
	ErrDuplicateWin   = errors.New("member already holds a prize")
	ErrSlotTaken      = errors.New("prize slot already claimed")

	// ErrUnavailable 基础设施故障 (存储、锁、超时)，调用方可以重试。
	ErrUnavailable = errors.New("lottery temporarily unavailable")
)
