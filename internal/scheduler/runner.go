// Package scheduler runs named proactive jobs on fixed intervals. Each job
// is a prompt handed to the analyst; results and failures are persisted as
// assistant messages so they surface in the chat history.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/consts"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/metrics"
	"github.com/Sachinn-p/CHATSEC-SOC-Agent/internal/store"
)

// Target executes one proactive prompt and reports failure for retry.
type Target interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Status describes one registered job.
type Status struct {
	Name            string    `json:"name"`
	Prompt          string    `json:"prompt"`
	IntervalMinutes int       `json:"interval_minutes"`
	Active          bool      `json:"active"`
	NextRun         time.Time `json:"next_run"`
}

// handle is the live state of one registered job, guarded by Runner.mu.
type handle struct {
	entryID  cron.EntryID
	prompt   string
	interval int
	attempts int
	paused   bool
}

// Runner owns the cron instance and the name-to-job mapping.
type Runner struct {
	cron            *cron.Cron
	target          Target
	store           store.Store
	sessionID       string
	policy          RetryPolicy
	defaultInterval int

	// sleep is swapped in tests to avoid waiting out real retry delays.
	sleep func(time.Duration)

	mu      sync.Mutex
	ctx     context.Context
	handles map[string]*handle
}

// NewRunner 构建调度器。defaultInterval 为分钟数，注册时未指定间隔则使用。
func NewRunner(target Target, st store.Store, sessionID string, policy RetryPolicy, defaultInterval int) *Runner {
	if defaultInterval <= 0 {
		defaultInterval = 60
	}
	return &Runner{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		target:          target,
		store:           st,
		sessionID:       sessionID,
		policy:          policy.normalize(),
		defaultInterval: defaultInterval,
		sleep:           time.Sleep,
		ctx:             context.Background(),
		handles:         make(map[string]*handle),
	}
}

// Start begins firing registered jobs. ctx bounds every job execution.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	r.cron.Start()
	slog.Info("scheduler.started")
}

// Register installs (or replaces) a named job and persists its definition.
// Re-registering an existing name swaps the prompt and interval in place;
// exactly one cron entry per name survives. maxRetries < 0 means "use the
// runner default"; 0 means a single attempt with no retry.
func (r *Runner) Register(ctx context.Context, name, prompt string, intervalMinutes, maxRetries int) error {
	if name == "" {
		return fmt.Errorf("proactive agent name is required")
	}
	if prompt == "" {
		return fmt.Errorf("proactive agent prompt is required")
	}
	if intervalMinutes <= 0 {
		intervalMinutes = r.defaultInterval
	}
	attempts := r.policy.MaxAttempts
	if maxRetries >= 0 {
		attempts = maxRetries + 1
	}

	if err := r.store.SaveProactiveAgent(ctx, name, prompt, intervalMinutes); err != nil {
		return fmt.Errorf("persist proactive agent %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.handles[name]; ok {
		r.cron.Remove(old.entryID)
	}
	entryID, err := r.cron.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), func() {
		r.fire(name)
	})
	if err != nil {
		delete(r.handles, name)
		return fmt.Errorf("schedule proactive agent %q: %w", name, err)
	}
	r.handles[name] = &handle{
		entryID:  entryID,
		prompt:   prompt,
		interval: intervalMinutes,
		attempts: attempts,
	}
	slog.Info("scheduler.registered", "name", name, "interval_minutes", intervalMinutes)
	return nil
}

// Unregister removes a job and its persisted definition. Unknown names are
// a no-op so removal is idempotent.
func (r *Runner) Unregister(ctx context.Context, name string) error {
	r.mu.Lock()
	if h, ok := r.handles[name]; ok {
		r.cron.Remove(h.entryID)
		delete(r.handles, name)
	}
	r.mu.Unlock()

	if err := r.store.DeleteProactiveAgent(ctx, name); err != nil {
		return fmt.Errorf("delete proactive agent %q: %w", name, err)
	}
	slog.Info("scheduler.unregistered", "name", name)
	return nil
}

// Pause keeps the cron entry but skips firings until Resume. Unknown names
// are ignored, like Unregister.
func (r *Runner) Pause(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[name]
	if !ok {
		slog.Warn("scheduler.pause.unknown", "name", name)
		return nil
	}
	h.paused = true
	slog.Info("scheduler.paused", "name", name)
	return nil
}

// Resume re-enables a paused job. Unknown names are ignored.
func (r *Runner) Resume(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[name]
	if !ok {
		slog.Warn("scheduler.resume.unknown", "name", name)
		return nil
	}
	h.paused = false
	slog.Info("scheduler.resumed", "name", name)
	return nil
}

// Status reports one job by name.
func (r *Runner) Status(name string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[name]
	if !ok {
		return Status{}, false
	}
	return r.statusLocked(name, h), true
}

// List reports all registered jobs sorted by name.
func (r *Runner) List() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, 0, len(r.handles))
	for name, h := range r.handles {
		out = append(out, r.statusLocked(name, h))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Runner) statusLocked(name string, h *handle) Status {
	return Status{
		Name:            name,
		Prompt:          h.prompt,
		IntervalMinutes: h.interval,
		Active:          !h.paused,
		NextRun:         r.cron.Entry(h.entryID).Next,
	}
}

// Shutdown stops the cron loop and waits for in-flight jobs to finish.
// Persisted job definitions are untouched.
func (r *Runner) Shutdown() {
	stopped := r.cron.Stop()
	<-stopped.Done()

	r.mu.Lock()
	r.handles = make(map[string]*handle)
	r.mu.Unlock()
	slog.Info("scheduler.stopped")
}

// fire is the cron callback for one job firing.
func (r *Runner) fire(name string) {
	r.mu.Lock()
	h, ok := r.handles[name]
	if !ok || h.paused {
		r.mu.Unlock()
		return
	}
	prompt := h.prompt
	attempts := h.attempts
	ctx := r.ctx
	r.mu.Unlock()

	r.executeTask(ctx, name, prompt, attempts)
}

// executeTask runs one firing with the retry policy. Every attempt's failure
// is persisted with its attempt number; the first success wins.
func (r *Runner) executeTask(ctx context.Context, name, prompt string, attempts int) {
	full := consts.ProactivePromptPrefix + prompt

	for attempt := 1; attempt <= attempts; attempt++ {
		metrics.JobAttemptsTotal.Inc()

		out, err := r.target.Run(ctx, full)
		if err == nil {
			msg := fmt.Sprintf(consts.ProactiveUpdateFormat, name, out)
			if _, serr := r.store.SaveMessage(ctx, consts.RoleAssistant, msg, r.sessionID); serr != nil {
				slog.Error("scheduler.persist.failed", "name", name, "error", serr)
			}
			if _, serr := r.store.SaveToolLog(ctx, "proactive:"+name, fmt.Sprintf("succeeded on attempt %d", attempt), r.sessionID); serr != nil {
				slog.Error("scheduler.toollog.failed", "name", name, "error", serr)
			}
			if serr := r.store.UpdateProactiveAgentLastRun(ctx, name); serr != nil {
				slog.Error("scheduler.lastrun.failed", "name", name, "error", serr)
			}
			metrics.JobRunsTotal.WithLabelValues("success").Inc()
			slog.Info("scheduler.run.ok", "name", name, "attempt", attempt)
			return
		}

		slog.Warn("scheduler.run.failed", "name", name, "attempt", attempt, "error", err)
		msg := fmt.Sprintf(consts.ProactiveErrorFormat, name, attempt, err)
		if _, serr := r.store.SaveMessage(ctx, consts.RoleAssistant, msg, r.sessionID); serr != nil {
			slog.Error("scheduler.persist.failed", "name", name, "error", serr)
		}

		if attempt < attempts {
			r.sleep(r.policy.Delay)
		}
	}
	metrics.JobRunsTotal.WithLabelValues("error").Inc()
}
