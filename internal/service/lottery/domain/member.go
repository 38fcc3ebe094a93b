// internal/service/lottery/domain/member.go
package domain

// Member 是会员目录中的一条只读记录，活动子系统并不拥有它。
type Member struct {
	ID       string
	Username string
	Name     string
}

// DisplayName 历史列表展示用的名称。
func (m *Member) DisplayName() string {
	if m == nil {
		return ""
	}
	return m.Username
}
