package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type JobType string

const (
	JobTypeInvitationNotification JobType = "invitation_notification"
	JobTypeDueDateReminder        JobType = "due_date_reminder"
	JobTypeDependencyCleanup      JobType = "dependency_cleanup"
)

const (
	QueueDefault = "default"
	QueueLow     = "low_priority"
	QueueDead    = "dead_queue"

	// QueueScheduled is a sorted set scored by ProcessAt. Future jobs
	// (delayed reminders, retries) wait here instead of cycling through
	// the list queues; the scheduler promotes them once due.
	QueueScheduled = "scheduled_queue"
)

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Queue     string                 `json:"queue"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
	ProcessAt time.Time              `json:"process_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

type Worker struct {
	client       *redis.Client
	handlers     map[JobType]JobHandler
	queues       []string
	pollInterval time.Duration
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

type Config struct {
	RedisClient  *redis.Client
	Concurrency  int
	PollInterval time.Duration
	Queues       []string
}

func New(config Config) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	queues := config.Queues
	if len(queues) == 0 {
		queues = []string{QueueDefault, QueueLow}
	}

	pollInterval := config.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	return &Worker{
		client:       config.RedisClient,
		handlers:     make(map[JobType]JobHandler),
		queues:       queues,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

func (w *Worker) Start(concurrency int) {
	log.Printf("starting worker with %d goroutines", concurrency)

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop()
	}

	w.wg.Add(1)
	go w.schedulerLoop()
}

func (w *Worker) Stop() {
	log.Println("stopping worker...")
	w.cancel()
	w.wg.Wait()
	log.Println("worker stopped")
}

func (w *Worker) workerLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
			if err := w.processNextJob(); err != nil {
				log.Printf("error processing job: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// schedulerLoop promotes due jobs from the scheduled set onto their
// destination queues every poll interval.
func (w *Worker) schedulerLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if err := w.promoteDueJobs(); err != nil {
				log.Printf("error promoting scheduled jobs: %v", err)
			}
		}
	}
}

func (w *Worker) promoteDueJobs() error {
	due, err := w.client.ZRangeByScore(w.ctx, QueueScheduled, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read scheduled jobs: %w", err)
	}

	for _, jobData := range due {
		// ZRem decides ownership when several workers race on the
		// same member; only the one that removed it pushes.
		removed, err := w.client.ZRem(w.ctx, QueueScheduled, jobData).Result()
		if err != nil {
			return fmt.Errorf("failed to claim scheduled job: %w", err)
		}
		if removed == 0 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(jobData), &job); err != nil {
			log.Printf("dropping malformed scheduled job: %v", err)
			continue
		}

		queue := job.Queue
		if queue == "" {
			queue = QueueDefault
		}
		if err := w.enqueueJob(queue, &job); err != nil {
			return err
		}
	}

	return nil
}

func (w *Worker) processNextJob() error {
	result, err := w.client.BLPop(w.ctx, 5*time.Second, w.queues...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	queue := result[0]
	jobData := result[1]

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	job.Queue = queue
	if time.Now().Before(job.ProcessAt) {
		// Not due yet. Park it in the scheduled set so the queue does
		// not churn on a job nobody can run.
		return w.schedule(&job)
	}

	return w.executeJob(&job)
}

func (w *Worker) executeJob(job *Job) error {
	w.mu.RLock()
	handler, exists := w.handlers[job.Type]
	w.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for job type: %s", job.Type)
	}

	ctx, cancel := context.WithTimeout(w.ctx, 30*time.Second)
	defer cancel()

	err := handler(ctx, job)
	if err != nil {
		job.Attempts++
		if job.Attempts < job.MaxTries {
			log.Printf("job %s failed (attempt %d/%d), retrying: %v",
				job.ID, job.Attempts, job.MaxTries, err)
			return w.retryJob(job)
		}

		log.Printf("job %s failed permanently after %d attempts: %v",
			job.ID, job.Attempts, err)
		return w.moveToDeadQueue(job, err)
	}

	return nil
}

// retryJob backs the job off exponentially and parks it in the
// scheduled set. Queue still names the origin queue, so the scheduler
// returns it there once due.
func (w *Worker) retryJob(job *Job) error {
	delay := time.Duration(1<<job.Attempts) * time.Minute
	job.ProcessAt = time.Now().Add(delay)

	return w.schedule(job)
}

func (w *Worker) schedule(job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return w.client.ZAdd(w.ctx, QueueScheduled, redis.Z{
		Score:  float64(job.ProcessAt.Unix()),
		Member: jobData,
	}).Err()
}

func (w *Worker) enqueueJob(queue string, job *Job) error {
	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return w.client.RPush(w.ctx, queue, jobData).Err()
}

func (w *Worker) moveToDeadQueue(job *Job, jobErr error) error {
	deadJob := map[string]interface{}{
		"original_job": job,
		"error":        jobErr.Error(),
		"failed_at":    time.Now(),
	}

	deadJobData, err := json.Marshal(deadJob)
	if err != nil {
		return fmt.Errorf("failed to marshal dead job: %w", err)
	}

	return w.client.RPush(w.ctx, QueueDead, deadJobData).Err()
}

type JobQueue struct {
	client *redis.Client
}

func NewJobQueue(client *redis.Client) *JobQueue {
	return &JobQueue{client: client}
}

func (q *JobQueue) Enqueue(queue string, jobType JobType, payload map[string]interface{}) error {
	return q.EnqueueAt(queue, jobType, payload, time.Now())
}

// EnqueueAt pushes the job straight onto its queue when already due,
// and otherwise parks it in the scheduled set until processAt.
func (q *JobQueue) EnqueueAt(queue string, jobType JobType, payload map[string]interface{}, processAt time.Time) error {
	job := &Job{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Type:      jobType,
		Queue:     queue,
		Payload:   payload,
		Attempts:  0,
		MaxTries:  3,
		CreatedAt: time.Now(),
		ProcessAt: processAt,
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if processAt.After(time.Now()) {
		return q.client.ZAdd(ctx, QueueScheduled, redis.Z{
			Score:  float64(processAt.Unix()),
			Member: jobData,
		}).Err()
	}

	return q.client.RPush(ctx, queue, jobData).Err()
}

func (q *JobQueue) QueueSize(queue string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return q.client.LLen(ctx, queue).Result()
}
