// Package redis is the TaskQueue used when REDIS_URL is set. Workers in
// separate processes share one stream and one consumer group, so a task is
// delivered to a single worker at a time.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/domain"
	"github.com/jinherplan-blip/PlanA-Co-Studio/internal/core/ports/driven"
)

var _ driven.TaskQueue = (*Queue)(nil)

const (
	fieldTask    = "task"
	fieldMessage = "msg"
)

// Options tunes a Queue. Zero values select the defaults.
type Options struct {
	// Namespace prefixes every key, default "plana"
	Namespace string
	// Consumer names this process in the group; generated when empty
	Consumer string
	// RecordTTL is how long a task record outlives its last update, default 24h
	RecordTTL time.Duration
	// ReclaimAfter hands an unacked delivery to another consumer, default 30m
	ReclaimAfter time.Duration
	// PromoteBatch caps how many due retries one dequeue moves, default 50
	PromoteBatch int
}

type keys struct {
	stream, group, delayed, record string
}

func (k keys) task(id string) string { return k.record + id }

// Queue streams task IDs through a consumer group. The task itself is a
// hash holding its JSON and, while delivered, the stream message ID.
// Retries wait in a sorted set scored by due time in milliseconds.
type Queue struct {
	client *redis.Client
	keys   keys
	opts   Options
}

// NewQueue creates the consumer group if needed and returns the queue
func NewQueue(ctx context.Context, client *redis.Client, opts Options) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.Namespace == "" {
		opts.Namespace = "plana"
	}
	if opts.Consumer == "" {
		opts.Consumer = "consumer-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	if opts.RecordTTL <= 0 {
		opts.RecordTTL = 24 * time.Hour
	}
	if opts.ReclaimAfter <= 0 {
		opts.ReclaimAfter = 30 * time.Minute
	}
	if opts.PromoteBatch <= 0 {
		opts.PromoteBatch = 50
	}

	ns := opts.Namespace + ":"
	q := &Queue{
		client: client,
		opts:   opts,
		keys: keys{
			stream:  ns + "tasks",
			group:   ns + "workers",
			delayed: ns + "tasks:delayed",
			record:  ns + "task:",
		},
	}

	err := client.XGroupCreateMkStream(ctx, q.keys.stream, q.keys.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if err := q.store(ctx, pipe, task); err != nil {
			return err
		}
		if task.ScheduledFor.After(time.Now()) {
			q.delay(ctx, pipe, task)
		} else {
			pipe.XAdd(ctx, &redis.XAddArgs{Stream: q.keys.stream, Values: []any{"task_id", task.ID}})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue task %s: %w", task.ID, err)
	}
	return nil
}

// DequeueWithTimeout hands out a reclaimed delivery first, then blocks on
// the stream for up to timeout seconds. Zero does not block.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if err := q.promote(ctx); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("promote delayed tasks: %w", err)
	}

	if task, err := q.reclaim(ctx); err != nil || task != nil {
		return task, err
	}

	block := time.Duration(-1)
	if timeout > 0 {
		block = time.Duration(timeout) * time.Second
	}
	res, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.keys.group,
		Consumer: q.opts.Consumer,
		Streams:  []string{q.keys.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil:
		return nil, fmt.Errorf("read task stream: %w", err)
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, nil
	}
	return q.deliver(ctx, res[0].Messages[0])
}

// promoteDue moves due members of the delayed set onto the stream in one
// step, so concurrent workers never promote a task twice.
var promoteDue = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
for _, id in ipairs(due) do
	redis.call("ZREM", KEYS[1], id)
	redis.call("XADD", KEYS[2], "*", "task_id", id)
end
return #due
`)

func (q *Queue) promote(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	return promoteDue.Run(ctx, q.client, []string{q.keys.delayed, q.keys.stream}, now, q.opts.PromoteBatch).Err()
}

// reclaim takes over a delivery that another consumer left unacked for
// longer than ReclaimAfter
func (q *Queue) reclaim(ctx context.Context) (*domain.Task, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.keys.stream,
		Group:    q.keys.group,
		Consumer: q.opts.Consumer,
		MinIdle:  q.opts.ReclaimAfter,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("reclaim stale delivery: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return q.deliver(ctx, msgs[0])
}

// deliver marks the task behind a stream message as processing and
// remembers the message for the later ack. A message whose record has
// expired is discarded.
func (q *Queue) deliver(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	id, _ := msg.Values["task_id"].(string)
	task, err := q.GetTask(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			q.release(ctx, pipe, msg.ID)
			return nil
		})
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	task.MarkProcessing()
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.keys.task(id), fieldMessage, msg.ID)
		return q.store(ctx, pipe, task)
	})
	if err != nil {
		return nil, fmt.Errorf("mark task %s processing: %w", id, err)
	}
	return task, nil
}

func (q *Queue) Ack(ctx context.Context, taskID string, result *domain.TaskResult) error {
	return q.settle(ctx, taskID, func(task *domain.Task) bool {
		task.MarkCompleted(result)
		return false
	})
}

func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	return q.settle(ctx, taskID, func(task *domain.Task) bool {
		if task.CanRetry() {
			task.Retry(reason)
			return true
		}
		task.MarkFailed(reason)
		return false
	})
}

// settle applies update to the stored task, releases its stream message
// and queues it again when update asks for it
func (q *Queue) settle(ctx context.Context, taskID string, update func(*domain.Task) (requeue bool)) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	msgID, err := q.client.HGet(ctx, q.keys.task(taskID), fieldMessage).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load delivery of task %s: %w", taskID, err)
	}
	requeue := update(task)

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if msgID != "" {
			q.release(ctx, pipe, msgID)
		}
		pipe.HDel(ctx, q.keys.task(taskID), fieldMessage)
		if requeue {
			q.delay(ctx, pipe, task)
		}
		return q.store(ctx, pipe, task)
	})
	if err != nil {
		return fmt.Errorf("settle task %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, domain.ErrNotFound
	}
	data, err := q.client.HGet(ctx, q.keys.task(taskID), fieldTask).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	task := &domain.Task{}
	if err := json.Unmarshal(data, task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return task, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close leaves the client open; it is shared with the lock and notifier
func (q *Queue) Close() error {
	return nil
}

func (q *Queue) store(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task %s: %w", task.ID, err)
	}
	key := q.keys.task(task.ID)
	pipe.HSet(ctx, key, fieldTask, data)
	pipe.Expire(ctx, key, q.opts.RecordTTL)
	return nil
}

func (q *Queue) delay(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) {
	pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(task.ScheduledFor.UnixMilli()), Member: task.ID})
}

func (q *Queue) release(ctx context.Context, pipe redis.Pipeliner, msgID string) {
	pipe.XAck(ctx, q.keys.stream, q.keys.group, msgID)
	pipe.XDel(ctx, q.keys.stream, msgID)
}
