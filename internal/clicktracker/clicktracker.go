// Package clicktracker persists click events in the background. Clicks
// are queued by the redirect handler, enriched with device, browser and
// country data, and flushed to storage in batches.
package clicktracker

import (
	"context"
	"time"

	"github.com/mvolkov/biotap/internal/logger"
	"github.com/mvolkov/biotap/internal/models"
	"github.com/mvolkov/biotap/internal/useragentinfo"
)

type clickEventsKeeper interface {
	InsertClickEvents(ctx context.Context, events []models.ClickEvent) error
}

type countryResolver interface {
	CountryCode(ipAddress string) string
}

type ClickTracker struct {
	queue                    chan *models.ClickJob
	db                       clickEventsKeeper
	geo                      countryResolver
	delayBetweenQueueFetches time.Duration
	errorChannel             chan error
}

func New(
	db clickEventsKeeper,
	geo countryResolver,
	channelCapacity int,
	delayBetweenQueueFetches time.Duration,
) *ClickTracker {
	return &ClickTracker{
		db:                       db,
		geo:                      geo,
		queue:                    make(chan *models.ClickJob, channelCapacity),
		delayBetweenQueueFetches: delayBetweenQueueFetches,
		errorChannel:             make(chan error, channelCapacity),
	}
}

func (t *ClickTracker) ListenErrors(callback func(error)) {
	go func() {
		for err := range t.errorChannel {
			callback(err)
		}
	}()
}

// EnqueueJob queues a click for persistence. When the queue is full the
// click is dropped, a redirect must never block on analytics.
func (t *ClickTracker) EnqueueJob(job *models.ClickJob) {
	select {
	case t.queue <- job:
	default:
		logger.Log.Debugln("click queue is full, dropping click event", "linkID", job.LinkID)
	}
}

// Run starts the background flush loop. It stops when ctx is cancelled,
// flushing the pending batch first.
func (t *ClickTracker) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(t.delayBetweenQueueFetches)
		defer ticker.Stop()

		var jobs []models.ClickJob

		for {
			select {
			case job := <-t.queue:
				jobs = append(jobs, *job)
			case <-ticker.C:
				if len(jobs) == 0 {
					continue
				}
				if err := t.flush(ctx, jobs); err != nil {
					t.errorChannel <- err
					continue
				}
				jobs = nil
			case <-ctx.Done():
				t.drainQueue(&jobs)
				if len(jobs) > 0 {
					if err := t.flush(context.WithoutCancel(ctx), jobs); err != nil {
						t.errorChannel <- err
					}
				}
				close(t.errorChannel)

				return
			}
		}
	}()
}

func (t *ClickTracker) flush(ctx context.Context, jobs []models.ClickJob) error {
	events := make([]models.ClickEvent, 0, len(jobs))
	for _, job := range jobs {
		events = append(events, t.enrich(&job))
	}

	if err := t.db.InsertClickEvents(ctx, events); err != nil {
		return err
	}
	logger.Log.Infof("persisted %d click events", len(events))

	return nil
}

func (t *ClickTracker) enrich(job *models.ClickJob) models.ClickEvent {
	agentInfo := useragentinfo.Parse(job.UserAgent)

	return models.ClickEvent{
		LinkID:     job.LinkID,
		ClickedAt:  job.ClickedAt,
		IPAddress:  job.IPAddress,
		UserAgent:  job.UserAgent,
		Referer:    job.Referer,
		Country:    t.geo.CountryCode(job.IPAddress),
		DeviceType: agentInfo.DeviceType,
		Browser:    agentInfo.Browser,
	}
}

func (t *ClickTracker) drainQueue(jobs *[]models.ClickJob) {
	for {
		select {
		case job := <-t.queue:
			*jobs = append(*jobs, *job)
		default:
			return
		}
	}
}
