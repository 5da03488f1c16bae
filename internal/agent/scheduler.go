package agent

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Job is a named background task with an optional cron schedule.
type Job interface {
	GetName() string
	GetSchedule() string
	Execute(ctx context.Context) error
}

// Scheduler registers and runs background jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

// RegisterJob adds a job; jobs with a schedule are queued on the cron,
// jobs without one stay on-demand only.
func (s *Scheduler) RegisterJob(job Job) {
	s.jobs = append(s.jobs, job)

	schedule := job.GetSchedule()
	if schedule == "" {
		log.Printf("[%s] registered as on-demand job (no schedule)", job.GetName())
		return
	}

	_, err := s.cron.AddFunc(schedule, func() {
		log.Printf("[%s] starting scheduled run...", job.GetName())
		if err := job.Execute(context.Background()); err != nil {
			log.Printf("[%s] run failed: %v", job.GetName(), err)
		} else {
			log.Printf("[%s] run completed", job.GetName())
		}
	})
	if err != nil {
		log.Printf("failed to schedule job %s: %v", job.GetName(), err)
	} else {
		log.Printf("[%s] scheduled with cron: %s", job.GetName(), schedule)
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("scheduler started with %d registered jobs", len(s.jobs))
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("scheduler stopped")
}

// RunJobByName triggers a registered job manually.
func (s *Scheduler) RunJobByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.GetName() == name {
			return job.Execute(ctx)
		}
	}
	log.Printf("job %q not found", name)
	return nil
}
