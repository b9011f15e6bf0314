package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gavelworks/auctionhouse/pkg/contracts"
	"github.com/gavelworks/auctionhouse/pkg/logger"
)

// Handler 处理一条已投递的消息。投递语义为 at-least-once，实现必须幂等。
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc 函数式 Handler
type HandlerFunc func(ctx context.Context, msg *Message) error

// Handle 实现 Handler 接口
func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// PermanentError 标记不可重试的错误（校验失败、记录不存在等）。
// 消费侧遇到该类错误直接进入死信，不做退避重试。
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent 将错误包装为不可重试错误。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// RetryPolicy 消费重试策略：固定间隔、有限次数，耗尽后交给死信。
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Execute 以固定退避重复执行 fn，直到成功、遇到 PermanentError、
// 次数耗尽或 ctx 取消。
func (p RetryPolicy) Execute(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(err, &perm) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// faultSink 抽象死信落点，便于测试替换。
type faultSink interface {
	Send(ctx context.Context, original *Message, reason string, cause error) error
}

// Dispatcher 消费运行时：按 topic 注册 Handler，每个 topic 一个消费循环，
// 消息逐条处理；失败按 RetryPolicy 重试，耗尽后写入死信 topic。
type Dispatcher struct {
	cfg      Config
	handlers map[string]Handler
	retry    RetryPolicy
	dlq      faultSink

	// OnRetry / OnDeadLetter 为可选观测钩子（指标埋点）。
	OnRetry      func(topic string)
	OnDeadLetter func(topic string)

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewDispatcher 创建消费运行时。producer 用于死信投递。
func NewDispatcher(cfg Config, producer *Producer) *Dispatcher {
	backoff := time.Duration(cfg.ConsumerRetryBackoff) * time.Second
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	attempts := cfg.ConsumerMaxAttempts
	if attempts <= 0 {
		attempts = 3
	}

	return &Dispatcher{
		cfg:      cfg,
		handlers: make(map[string]Handler),
		retry:    RetryPolicy{MaxAttempts: attempts, Backoff: backoff},
		dlq:      NewDeadLetterQueue(producer, contracts.TopicDeadLetter),
	}
}

// Register 注册 topic 的处理器，重复注册后者覆盖前者。
func (d *Dispatcher) Register(topic string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[topic] = h
}

// Run 为每个注册 topic 启动一个消费循环，阻塞直到 ctx 取消。
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	topics := make([]string, 0, len(d.handlers))
	for topic := range d.handlers {
		topics = append(topics, topic)
	}
	d.mu.Unlock()

	for _, topic := range topics {
		d.wg.Add(1)
		go func(topic string) {
			defer d.wg.Done()
			d.consumeLoop(ctx, topic)
		}(topic)
	}
	d.wg.Wait()
}

func (d *Dispatcher) consumeLoop(ctx context.Context, topic string) {
	consumer := NewConsumer(d.cfg, topic)
	defer consumer.Close()

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "consumer loop stopped", "topic", topic)
				return
			}
			logger.Error(ctx, "failed to read kafka message", "topic", topic, "error", err)
			continue
		}
		d.process(ctx, msg)
	}
}

// process 执行单条消息的重试包装与死信路由。
func (d *Dispatcher) process(ctx context.Context, msg *Message) {
	d.mu.Lock()
	handler, ok := d.handlers[msg.Topic]
	d.mu.Unlock()
	if !ok {
		logger.Warn(ctx, "no handler registered for topic", "topic", msg.Topic)
		return
	}

	attempt := 0
	err := d.retry.Execute(ctx, func() error {
		attempt++
		if attempt > 1 {
			if d.OnRetry != nil {
				d.OnRetry(msg.Topic)
			}
			logger.Warn(ctx, "retrying message", "topic", msg.Topic, "key", msg.Key, "attempt", attempt)
		}
		return handler.Handle(ctx, msg)
	})
	if err == nil || ctx.Err() != nil {
		return
	}

	logger.Error(ctx, "message processing exhausted retries, routing to dead-letter",
		"topic", msg.Topic, "key", msg.Key, "error", err)
	if d.OnDeadLetter != nil {
		d.OnDeadLetter(msg.Topic)
	}
	if dlqErr := d.dlq.Send(ctx, msg, "retry attempts exhausted", err); dlqErr != nil {
		// 死信写入失败只能记录后丢弃，已知弱点：应落地为持久化死信存储。
		logger.Error(ctx, "failed to write dead-letter message, dropping",
			"topic", msg.Topic, "key", msg.Key, "error", dlqErr)
	}
}

// FaultHandler 处理某个原始 topic 的死信消息，可做补偿逻辑。
type FaultHandler interface {
	HandleFault(ctx context.Context, fault *contracts.Fault) error
}

// FaultHandlerFunc 函数式 FaultHandler
type FaultHandlerFunc func(ctx context.Context, fault *contracts.Fault) error

// HandleFault 实现 FaultHandler 接口
func (f FaultHandlerFunc) HandleFault(ctx context.Context, fault *contracts.Fault) error {
	return f(ctx, fault)
}

// FaultRouter 消费死信 topic，按原始 topic 分发到已注册的 FaultHandler。
// 未注册来源的死信仅记录后丢弃，避免毒消息循环。
type FaultRouter struct {
	handlers map[string]FaultHandler
}

// NewFaultRouter 创建死信路由器
func NewFaultRouter() *FaultRouter {
	return &FaultRouter{handlers: make(map[string]FaultHandler)}
}

// Register 注册某个原始 topic 的死信处理器。
func (r *FaultRouter) Register(originalTopic string, h FaultHandler) {
	r.handlers[originalTopic] = h
}

// Handle 实现 Handler，供 Dispatcher 注册到死信 topic。
func (r *FaultRouter) Handle(ctx context.Context, msg *Message) error {
	var fault contracts.Fault
	if err := msg.UnmarshalPayload(&fault); err != nil {
		return Permanent(fmt.Errorf("malformed fault envelope: %w", err))
	}

	handler, ok := r.handlers[fault.OriginalTopic]
	if !ok {
		logger.Warn(ctx, "unhandled fault, dropping",
			"original_topic", fault.OriginalTopic, "reason", fault.Reason, "error", fault.Error)
		return nil
	}

	if err := handler.HandleFault(ctx, &fault); err != nil {
		// 补偿逻辑自身失败不再回抛，记录后丢弃。
		logger.Error(ctx, "fault handler failed, dropping",
			"original_topic", fault.OriginalTopic, "error", err)
	}
	return nil
}
