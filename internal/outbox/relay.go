package outbox

import (
	"context"
	"time"

	"onboard-agent-go/internal/constants"
	"onboard-agent-go/internal/storage"
	"onboard-agent-go/internal/storage/models"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	maxRetryCount          = 5
)

// MessageRelay 轮询outbox表并把待发消息发布到RabbitMQ。
// final-submit等接口在业务事务内写outbox行，中继在事务外异步投递，
// 保证DB写入与MQ发布的最终一致。
type MessageRelay struct {
	db              *gorm.DB
	publisher       *storage.RabbitMQ
	logger          *zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	done            chan struct{}
	tracer          trace.Tracer
}

// RelayOption 配置MessageRelay
type RelayOption func(*MessageRelay)

// WithPollingInterval 覆盖默认轮询间隔
func WithPollingInterval(interval time.Duration) RelayOption {
	return func(r *MessageRelay) {
		if interval > 0 {
			r.pollingInterval = interval
		}
	}
}

// WithBatchSize 覆盖单次轮询的批量大小
func WithBatchSize(size int) RelayOption {
	return func(r *MessageRelay) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// NewMessageRelay 创建消息中继
func NewMessageRelay(db *gorm.DB, publisher *storage.RabbitMQ, logger *zerolog.Logger, opts ...RelayOption) *MessageRelay {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	relay := &MessageRelay{
		db:              db,
		publisher:       publisher,
		logger:          logger,
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		done:            make(chan struct{}),
		tracer:          otel.Tracer("outbox-relay"),
	}
	for _, opt := range opts {
		opt(relay)
	}
	return relay
}

// Start 启动后台轮询goroutine
func (r *MessageRelay) Start() {
	r.logger.Info().Dur("interval", r.pollingInterval).Msg("outbox中继启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		for {
			select {
			case <-r.done:
				ticker.Stop()
				r.logger.Info().Msg("outbox中继已停止")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(context.Background()); err != nil {
					r.logger.Error().Err(err).Msg("处理outbox待发消息失败")
				}
			}
		}
	}()
}

// Stop 优雅停止中继
func (r *MessageRelay) Stop() {
	r.logger.Info().Msg("outbox中继停止中")
	close(r.done)
}

// processPendingMessages 取一批待发消息逐条投递并更新状态。
// FOR UPDATE SKIP LOCKED让多实例可以并行轮询而不会重复投递同一行。
// 空轮询不建span，避免追踪数据被刷屏。
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", constants.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}

	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(
			attribute.Int("messaging.batch.message_count", len(messages)),
		),
	)
	defer span.End()

	r.logger.Debug().Int("count", len(messages)).Msg("取到待发outbox消息")

	for i := range messages {
		msg := &messages[i]
		publishErr := r.publisher.PublishMessage(
			ctx,
			msg.TargetExchange,
			msg.TargetRoutingKey,
			[]byte(msg.Payload),
			true,
		)

		if publishErr != nil {
			msg.RetryCount++
			msg.ErrorMessage = publishErr.Error()
			if msg.RetryCount >= maxRetryCount {
				msg.Status = constants.OutboxStatusFailed
			}
			r.logger.Warn().
				Err(publishErr).
				Uint64("message_id", msg.ID).
				Str("aggregate_id", msg.AggregateID).
				Int("retry_count", msg.RetryCount).
				Str("status", msg.Status).
				Msg("outbox消息发布失败")
		} else {
			now := time.Now()
			msg.Status = constants.OutboxStatusSent
			msg.ProcessedAt = &now
			msg.ErrorMessage = ""
		}

		// 更新失败整个事务回滚，这批消息留待下次轮询重试
		if err := tx.Save(msg).Error; err != nil {
			return err
		}
	}

	return tx.Commit().Error
}
