package api

import "context"

// QuotaPolicy 决定用户还能否再建清单。策略可插拔：当前实现按配置
// 上限计数，上限为零或负数时不限制（历史默认）。超额由调用方映射
// 为 402。
type QuotaPolicy interface {
	CanAddList(ctx context.Context, userID uint) (bool, error)
}

// ListCounter 是配额策略需要的最小存储切面。
type ListCounter interface {
	CountFor(ctx context.Context, userID uint) (int64, error)
}

type maxListsPolicy struct {
	counter ListCounter
	max     int
}

// NewMaxListsPolicy 返回按成员清单数设限的配额策略。
func NewMaxListsPolicy(counter ListCounter, max int) QuotaPolicy {
	return maxListsPolicy{counter: counter, max: max}
}

func (p maxListsPolicy) CanAddList(ctx context.Context, userID uint) (bool, error) {
	if p.max <= 0 {
		return true, nil
	}
	n, err := p.counter.CountFor(ctx, userID)
	if err != nil {
		return false, err
	}
	return n < int64(p.max), nil
}
