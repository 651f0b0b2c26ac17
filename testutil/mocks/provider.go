// MockProvider 的图像编辑提供者测试模拟实现。
//
// 支持固定结果、错误注入与自定义编辑函数场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/imageflow/editor"
	"github.com/BaSui01/imageflow/imaging"
)

// --- MockProvider 结构 ---

// MockProvider 是 editor.Provider 的模拟实现
type MockProvider struct {
	mu sync.RWMutex

	// 响应配置
	result *editor.EditResult
	err    error

	// 调用记录
	calls    []MockEditCall
	editFunc func(ctx context.Context, req *editor.EditRequest) (*editor.EditResult, error)
	nameFunc func() string

	// 行为控制
	delay     time.Duration // 模拟上游耗时
	failAfter int           // 在第 N 次调用后失败
	callCount int
}

// MockEditCall 记录单次编辑调用
type MockEditCall struct {
	Request *editor.EditRequest
	Result  *editor.EditResult
	Error   error
}

// --- 构造函数和 Builder 方法 ---

// NewMockProvider 创建新的 MockProvider。
// 默认行为是原样回显请求中的图像载荷，模拟一次成功编辑。
func NewMockProvider() *MockProvider {
	return &MockProvider{
		calls: []MockEditCall{},
	}
}

// WithResult 设置固定编辑结果
func (m *MockProvider) WithResult(result *editor.EditResult) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = result
	return m
}

// WithError 设置返回错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithEditFunc 设置自定义 Edit 函数
func (m *MockProvider) WithEditFunc(fn func(ctx context.Context, req *editor.EditRequest) (*editor.EditResult, error)) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.editFunc = fn
	return m
}

// WithNameFunc 设置自定义 Name 函数
func (m *MockProvider) WithNameFunc(fn func() string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nameFunc = fn
	return m
}

// WithDelay 设置每次调用前的模拟延迟
func (m *MockProvider) WithDelay(d time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败
func (m *MockProvider) WithFailAfter(n int) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// --- Provider 接口实现 ---

// Name 返回提供者名称
func (m *MockProvider) Name() string {
	m.mu.RLock()
	fn := m.nameFunc
	m.mu.RUnlock()

	if fn != nil {
		return fn()
	}
	return "mock"
}

// Edit 执行一次模拟编辑。
// 延迟期间不持有锁，允许测试在编辑进行中并发查询会话状态。
func (m *MockProvider) Edit(ctx context.Context, req *editor.EditRequest) (*editor.EditResult, error) {
	m.mu.Lock()
	m.callCount++
	count := m.callCount
	delay := m.delay
	failAfter := m.failAfter
	presetErr := m.err
	presetResult := m.result
	editFn := m.editFunc
	m.mu.Unlock()

	// 模拟上游耗时，尊重取消
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			m.record(MockEditCall{Request: req, Error: ctx.Err()})
			return nil, ctx.Err()
		}
	}

	// 检查是否应该失败
	if failAfter > 0 && count > failAfter {
		err := errors.New("mock provider: configured to fail after N calls")
		m.record(MockEditCall{Request: req, Error: err})
		return nil, err
	}

	// 检查是否有预设错误
	if presetErr != nil {
		m.record(MockEditCall{Request: req, Error: presetErr})
		return nil, presetErr
	}

	// 使用自定义函数
	if editFn != nil {
		result, err := editFn(ctx, req)
		m.record(MockEditCall{Request: req, Result: result, Error: err})
		return result, err
	}

	result := presetResult
	if result == nil {
		result = echoResult(req)
	}
	m.record(MockEditCall{Request: req, Result: result})
	return result, nil
}

// echoResult 构建默认结果：把请求图像原样作为编辑产物返回
func echoResult(req *editor.EditRequest) *editor.EditResult {
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = imaging.DefaultMediaType
	}
	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	return &editor.EditResult{
		URI:       imaging.BuildDataURI(mediaType, req.ImageData),
		MediaType: mediaType,
		Data:      req.ImageData,
		Provider:  "mock",
		Model:     model,
		CreatedAt: time.Now(),
	}
}

func (m *MockProvider) record(call MockEditCall) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// --- 查询方法 ---

// GetCalls 获取所有调用记录
func (m *MockProvider) GetCalls() []MockEditCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockEditCall{}, m.calls...)
}

// GetCallCount 获取调用次数
func (m *MockProvider) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// GetLastCall 获取最后一次调用
func (m *MockProvider) GetLastCall() *MockEditCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// Reset 重置所有状态
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = []MockEditCall{}
	m.callCount = 0
	m.err = nil
}

// --- 预设 Provider 工厂 ---

// NewEchoProvider 创建总是成功、回显源图像的 Provider
func NewEchoProvider() *MockProvider {
	return NewMockProvider()
}

// NewErrorProvider 创建总是失败的 Provider
func NewErrorProvider(err error) *MockProvider {
	return NewMockProvider().WithError(err)
}

// NewResultProvider 创建返回固定结果的 Provider
func NewResultProvider(result *editor.EditResult) *MockProvider {
	return NewMockProvider().WithResult(result)
}

// NewSlowProvider 创建带固定延迟的 Provider，用于在途编辑场景
func NewSlowProvider(d time.Duration) *MockProvider {
	return NewMockProvider().WithDelay(d)
}

// NewFlakeyProvider 创建不稳定的 Provider（前 N 次成功，之后失败）
func NewFlakeyProvider(failAfter int) *MockProvider {
	return NewMockProvider().WithFailAfter(failAfter)
}
