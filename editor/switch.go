package editor

import (
	"context"
	"sync/atomic"
)

// SwitchableProvider 包装一个可在运行期原子替换的底层提供者。
// 配置热重载后服务端重建提供者并调用 Swap；进行中的编辑继续使用
// 替换前捕获的实例，不会被中断。
type SwitchableProvider struct {
	current atomic.Pointer[providerBox]
}

// providerBox 间接层，允许 atomic.Pointer 持有接口值
type providerBox struct {
	p Provider
}

var _ Provider = (*SwitchableProvider)(nil)

// NewSwitchable 创建可切换提供者包装
func NewSwitchable(p Provider) *SwitchableProvider {
	s := &SwitchableProvider{}
	s.current.Store(&providerBox{p: p})
	return s
}

// Swap 原子替换底层提供者
func (s *SwitchableProvider) Swap(p Provider) {
	s.current.Store(&providerBox{p: p})
}

// Current 返回当前底层提供者
func (s *SwitchableProvider) Current() Provider {
	return s.current.Load().p
}

// Edit 将编辑请求转发给当前提供者
func (s *SwitchableProvider) Edit(ctx context.Context, req *EditRequest) (*EditResult, error) {
	return s.Current().Edit(ctx, req)
}

// Name 返回当前提供者名称
func (s *SwitchableProvider) Name() string {
	return s.Current().Name()
}
