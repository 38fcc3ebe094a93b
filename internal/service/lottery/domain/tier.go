// internal/service/lottery/domain/tier.go
package domain

import (
	"encoding/json"
	"fmt"
)

// Tier 是一次抽奖尝试可以领取的奖品等级。
// 只能通过包内常量或 TierFromRank 得到，非法等级无法构造。
type Tier struct {
	rank uint8
}

var (
	NoPrize     = Tier{rank: 0}
	FirstPrize  = Tier{rank: 1}
	SecondPrize = Tier{rank: 2}
)

// PrizeTiers 按领取优先级排列
var PrizeTiers = []Tier{FirstPrize, SecondPrize}

// TierFromRank 将存储层的整数等级转换为 Tier。
func TierFromRank(rank int) (Tier, error) {
	switch rank {
	case 0:
		return NoPrize, nil
	case 1:
		return FirstPrize, nil
	case 2:
		return SecondPrize, nil
	default:
		return NoPrize, fmt.Errorf("invalid prize tier %d", rank)
	}
}

// Rank 返回 0 (未中奖)、1 或 2。
func (t Tier) Rank() int { return int(t.rank) }

// IsPrize 表示该等级占用了一个名额。
func (t Tier) IsPrize() bool { return t.rank != 0 }

func (t Tier) String() string {
	switch t.rank {
	case 1:
		return "first"
	case 2:
		return "second"
	default:
		return "none"
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Rank())
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	var rank int
	if err := json.Unmarshal(data, &rank); err != nil {
		return err
	}
	parsed, err := TierFromRank(rank)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
