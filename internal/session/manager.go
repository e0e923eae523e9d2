// Package session 为 HTTP 接口保存每个对话的 dialogue.Session。
//
// 会话只存在于进程内存中，空闲超时后由 Sweep 回收。同一会话上的操作
// 通过会话级互斥锁串行执行，不同会话之间互不阻塞。
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"SettleX-Atlas/internal/dialogue"
	xerrors "SettleX-Atlas/internal/errors"
)

const (
	// CodeNotFound 表示会话不存在或已过期。
	CodeNotFound xerrors.Code = "SESSION_NOT_FOUND"
	// CodeLimitReached 表示会话数量达到上限。
	CodeLimitReached xerrors.Code = "SESSION_LIMIT_REACHED"
)

func init() {
	xerrors.Register(CodeNotFound, xerrors.Attributes{
		Message:    "session not found",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: 404,
	})
	xerrors.Register(CodeLimitReached, xerrors.Attributes{
		Message:    "too many active sessions",
		Severity:   xerrors.SeverityWarning,
		Retryable:  true,
		HTTPStatus: 429,
	})
}

// Config 控制会话容量与过期策略。
type Config struct {
	MaxHistory  int
	IdleTimeout time.Duration
	MaxSessions int
}

// Snapshot 是会话的只读诊断视图。
type Snapshot struct {
	ID        string           `json:"session_id"`
	Sentiment string           `json:"sentiment"`
	Context   string           `json:"context,omitempty"`
	Workflow  string           `json:"workflow,omitempty"`
	Step      int              `json:"step"`
	Slots     dialogue.Slots   `json:"slots"`
	History   []dialogue.Entry `json:"history"`
	StartedAt time.Time        `json:"started_at"`
	LastSeen  time.Time        `json:"last_seen"`
}

type entry struct {
	mu       sync.Mutex
	session  *dialogue.Session
	lastSeen time.Time
}

// Manager 是进程内的会话注册表。
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry

	cfg      Config
	now      func() time.Time
	newID    func() string
	observer func(active int)
}

// Option 定义 Manager 的可选配置。
type Option func(*Manager)

// WithClock 替换时钟，主要用于测试过期逻辑。
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator 替换会话编号生成器。
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newID = gen
		}
	}
}

// WithObserver 在会话数量变化时回调，通常用于更新指标。
func WithObserver(fn func(active int)) Option {
	return func(m *Manager) {
		m.observer = fn
	}
}

// NewManager 创建会话注册表。
func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = dialogue.DefaultMaxHistory
	}
	m := &Manager{
		entries: make(map[string]*entry),
		cfg:     cfg,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create 新建会话并返回编号。
func (m *Manager) Create() (string, error) {
	now := m.now()
	s := dialogue.NewSession(m.cfg.MaxHistory, dialogue.WithClock(m.now))

	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.entries) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		return "", xerrors.New(CodeLimitReached, "会话数量已达上限")
	}
	id := m.newID()
	m.entries[id] = &entry{session: s, lastSeen: now}
	active := len(m.entries)
	m.mu.Unlock()

	m.notify(active)
	return id, nil
}

// Do 在会话锁内执行 fn。同一会话的调用串行执行。
func (m *Manager) Do(ctx context.Context, id string, fn func(*dialogue.Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.run(id, e, fn)
}

// run 持有会话锁后重新确认条目仍在表中，查找与加锁之间被清理或删除的会话
// 按不存在处理。
func (m *Manager) run(id string, e *entry, fn func(*dialogue.Session) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !m.holds(id, e) {
		return notFound(id)
	}
	e.lastSeen = m.now()
	return fn(e.session)
}

func (m *Manager) holds(id string, e *entry) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[id] == e
}

// Snapshot 返回会话的诊断信息。
func (m *Manager) Snapshot(id string) (*Snapshot, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.session
	return &Snapshot{
		ID:        id,
		Sentiment: string(s.Sentiment),
		Context:   s.Context.String(),
		Workflow:  s.Workflow.String(),
		Step:      s.Step,
		Slots:     s.Slots,
		History:   s.History(),
		StartedAt: s.StartedAt,
		LastSeen:  e.lastSeen,
	}, nil
}

// Delete 删除会话。
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	if _, ok := m.entries[id]; !ok {
		m.mu.Unlock()
		return notFound(id)
	}
	delete(m.entries, id)
	active := len(m.entries)
	m.mu.Unlock()

	m.notify(active)
	return nil
}

// Len 返回当前会话数。
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Sweep 删除空闲超过 IdleTimeout 的会话，返回删除数量。
// 正在处理消息的会话会被跳过。
func (m *Manager) Sweep() int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}
	deadline := m.now().Add(-m.cfg.IdleTimeout)

	m.mu.Lock()
	removed := 0
	for id, e := range m.entries {
		if !e.mu.TryLock() {
			continue
		}
		idle := e.lastSeen.Before(deadline)
		e.mu.Unlock()
		if idle {
			delete(m.entries, id)
			removed++
		}
	}
	active := len(m.entries)
	m.mu.Unlock()

	if removed > 0 {
		m.notify(active)
	}
	return removed
}

// Run 周期性执行 Sweep，直到上下文取消。
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return e, nil
}

func (m *Manager) notify(active int) {
	if m.observer != nil {
		m.observer(active)
	}
}

func notFound(id string) error {
	return xerrors.New(CodeNotFound, "会话不存在或已过期", xerrors.WithMetadata("session_id", id))
}
