package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vaultpass/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Event 证书变更事件，推送给在线的门店/管理端
type Event struct {
	CertificateID     uint      `json:"certificate_id"`
	CertificateNumber string    `json:"certificate_number"`
	From              string    `json:"from"`
	To                string    `json:"to"`
	Actor             string    `json:"actor"`
	At                time.Time `json:"at"`
}

// Hub 进程内变更广播。投递是尽力而为：订阅者缓冲满即丢弃，
// 漏掉事件的客户端通过重新拉取列表补齐。
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	bufferSize  int
	closed      bool

	rdb     *redis.Client
	channel string
	cancel  context.CancelFunc
}

// Options Hub 配置
type Options struct {
	// BufferSize 每个订阅者的事件缓冲，0 取默认值
	BufferSize int
	// Redis 可选的跨进程桥接客户端，nil 表示仅进程内广播
	Redis *redis.Client
	// Channel redis 发布频道
	Channel string
}

// NewHub 创建变更广播器
func NewHub(opts Options) *Hub {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = 16
	}
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		bufferSize:  bufferSize,
		rdb:         opts.Redis,
		channel:     opts.Channel,
	}
}

// Start 启动 redis 订阅桥接（配置了 redis 时），把其他进程发布的
// 事件转发给本进程的订阅者。无 redis 时为空操作。
func (h *Hub) Start(ctx context.Context) {
	if h.rdb == nil || h.channel == "" {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	sub := h.rdb.Subscribe(ctx, h.channel)
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					logger.Warnw("notifier decode event failed", "error", err)
					continue
				}
				h.broadcast(event)
			}
		}
	}()
}

// Stop 停止桥接并关闭全部订阅
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = make(map[chan Event]struct{})
}

// Subscribe 注册一个订阅者，返回事件通道与取消函数
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.bufferSize)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subscribers[ch]; ok {
				delete(h.subscribers, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish 广播一次变更。配置了 redis 时同时发布到频道，
// 由各进程的桥接转发；失败只记日志，从不阻塞调用方。
func (h *Hub) Publish(ctx context.Context, event Event) {
	if h.rdb != nil && h.channel != "" {
		payload, err := json.Marshal(event)
		if err == nil {
			if err := h.rdb.Publish(ctx, h.channel, payload).Err(); err != nil {
				logger.Warnw("notifier publish to redis failed", "error", err, "certificate_number", event.CertificateNumber)
			}
			// redis 在场时本地订阅者也走桥接回路，避免本进程收到两次
			return
		}
		logger.Warnw("notifier encode event failed", "error", err)
	}
	h.broadcast(event)
}

func (h *Hub) broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// 缓冲满直接丢弃，客户端靠全量刷新兜底
		}
	}
}
