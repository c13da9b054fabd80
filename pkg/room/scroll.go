package room

import (
	"context"
	"log"
	"sync"
	"time"
)

// scroller delivers multi-line messages one line at a time. Each player with
// pending output gets one queue goroutine; jobs for that player run in
// enqueue order.
type scroller struct {
	room  int
	delay time.Duration
	send  func(ctx context.Context, p *Player, line string)

	mu      sync.Mutex
	queues  map[string]*scrollQueue
	waiting int
	closed  bool
}

type scrollQueue struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    []*scrollJob
	running bool
}

type scrollJob struct {
	ctx   context.Context
	p     *Player
	lines []string
	done  chan struct{}
}

func newScroller(room int, delay time.Duration, send func(context.Context, *Player, string)) *scroller {
	return &scroller{
		room:   room,
		delay:  delay,
		send:   send,
		queues: make(map[string]*scrollQueue),
	}
}

func (s *scroller) enqueue(ctx context.Context, p *Player, lines []string) <-chan struct{} {
	job := &scrollJob{ctx: ctx, p: p, lines: lines, done: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(job.done)
		return job.done
	}
	q, ok := s.queues[p.ID]
	if !ok {
		qctx, cancel := context.WithCancel(context.Background())
		q = &scrollQueue{ctx: qctx, cancel: cancel}
		s.queues[p.ID] = q
	}
	q.jobs = append(q.jobs, job)
	s.waiting++
	if !q.running {
		q.running = true
		go s.run(p.ID, q)
	}
	return job.done
}

func (s *scroller) run(id string, q *scrollQueue) {
	for {
		s.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			if s.queues[id] == q {
				delete(s.queues, id)
				q.cancel()
			}
			s.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		s.mu.Unlock()

		s.deliver(q.ctx, job)
		close(job.done)

		s.mu.Lock()
		s.waiting--
		s.mu.Unlock()
	}
}

func (s *scroller) deliver(qctx context.Context, job *scrollJob) {
	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	for i, line := range job.lines {
		if qctx.Err() != nil || job.ctx.Err() != nil {
			log.Printf("room %d: scroll to %s abandoned after %d of %d lines", s.room, job.p.Name, i, len(job.lines))
			return
		}
		s.send(job.ctx, job.p, line)

		timer.Reset(s.delay)
		select {
		case <-timer.C:
		case <-qctx.Done():
		case <-job.ctx.Done():
		}
	}
}

// cancel abandons everything queued for the player.
func (s *scroller) cancel(id string) {
	s.mu.Lock()
	q := s.queues[id]
	delete(s.queues, id)
	s.mu.Unlock()
	if q != nil {
		q.cancel()
	}
}

// cancelAll abandons every queue and refuses new work.
func (s *scroller) cancelAll() {
	s.mu.Lock()
	s.closed = true
	queues := s.queues
	s.queues = make(map[string]*scrollQueue)
	s.mu.Unlock()
	for _, q := range queues {
		q.cancel()
	}
}

func (s *scroller) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}
