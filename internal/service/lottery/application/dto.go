// internal/service/lottery/application/dto.go
package application

import (
	"fmt"
	"time"

	"promo-lottery/internal/service/lottery/domain"
)

// Denial 是业务拒绝的原因码。拒绝是正常结果，不是错误。
type Denial string

const (
	DenialNone                Denial = ""
	DenialNotInSession        Denial = "NOT_IN_SESSION"
	DenialAlreadyWon          Denial = "ALREADY_WON"
	DenialAlreadyParticipated Denial = "ALREADY_PARTICIPATED_TODAY"
	DenialSlotsFull           Denial = "SLOTS_FULL"
	// DenialSlotsFilled 预检通过后、领取名额前名额被抢完。
	DenialSlotsFilled Denial = "SLOTS_FILLED"
)

const (
	ReasonEligible            = "eligible to participate"
	ReasonNotInSession        = "event not in session"
	ReasonAlreadyParticipated = "already participated today"
	ReasonSlotsFull           = "today's prize slots are full"
	MessageSlotsFilled        = "sorry, today's prize slots filled up before your draw"
	MessageFirstPrize         = "Congratulations! You won the first prize!"
	MessageSecondPrize        = "Congratulations! You won the second prize!"
	MessageConsolation        = "No prize this time. Better luck next time!"
	reasonAlreadyWonTemplate  = "already won (tier = %d)"
)

func reasonAlreadyWon(t domain.Tier) string {
	return fmt.Sprintf(reasonAlreadyWonTemplate, t.Rank())
}

// EligibilityResult 是规则链的判定结果，不可变值对象。
type EligibilityResult struct {
	Allowed bool   `json:"available"`
	Reason  string `json:"reason"`
	Denial  Denial `json:"denial,omitempty"`
}

func allow() EligibilityResult {
	return EligibilityResult{Allowed: true, Reason: ReasonEligible}
}

func deny(d Denial, reason string) EligibilityResult {
	return EligibilityResult{Allowed: false, Reason: reason, Denial: d}
}

// AllocationResult 是一次抽奖尝试的结果。
type AllocationResult struct {
	Tier    domain.Tier `json:"tier"`
	Message string      `json:"message"`
	Denial  Denial      `json:"denial,omitempty"`
	// RecordedAt 记录落库时间，被拒绝时为零值。
	RecordedAt time.Time `json:"-"`
}

// Denied 表示本次尝试没有写入任何记录。
func (r AllocationResult) Denied() bool { return r.Denial != DenialNone }

func deniedAllocation(d Denial, message string) AllocationResult {
	return AllocationResult{Tier: domain.NoPrize, Message: message, Denial: d}
}

func messageFor(t domain.Tier) string {
	switch t {
	case domain.FirstPrize:
		return MessageFirstPrize
	case domain.SecondPrize:
		return MessageSecondPrize
	default:
		return MessageConsolation
	}
}

// HistoryEntry 是历史列表中的一行。
type HistoryEntry struct {
	MemberID     string      `json:"memberId"`
	MemberName   string      `json:"memberName"`
	IsWinAttempt bool        `json:"draw"`
	Tier         domain.Tier `json:"rank"`
	CreatedAt    time.Time   `json:"createDt"`
}
