package dispatch

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

type jobKind int

const (
	jobSend jobKind = iota
	jobRetract
)

type job struct {
	kind   jobKind
	handle *handle
	req    Request
	seq    uint64
}

func (j job) at() time.Time {
	return j.req.SendAt
}

type jobHeap []job

func (h jobHeap) Len() int { return len(h) }

// Earliest send time first; retractions and immediate sends (zero SendAt)
// jump the line. Ties keep enqueue order.
func (h jobHeap) Less(i, j int) bool {
	if !h[i].at().Equal(h[j].at()) {
		return h[i].at().Before(h[j].at())
	}
	return h[i].seq < h[j].seq
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *jobHeap) Push(x any) {
	*h = append(*h, x.(job))
}

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// queue feeds jobs to a single worker goroutine. Push never blocks: a full
// queue rejects the job and counts it as dropped.
type queue struct {
	mu          sync.Mutex
	items       jobHeap
	limit       int
	seq         uint64
	run         func(job)
	wakeup      chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	started     bool
	stopped     bool
	dropped     uint64
	outstanding int64
}

func newQueue(limit int, run func(job)) *queue {
	if limit <= 0 {
		limit = 1
	}
	return &queue{
		items:  make(jobHeap, 0),
		limit:  limit,
		run:    run,
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (q *queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.stopped {
		return
	}
	q.started = true
	heap.Init(&q.items)
	go q.loop()
}

// Stop halts the worker after its current job and discards queued jobs.
func (q *queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	started := q.started
	close(q.stopCh)
	atomic.AddInt64(&q.outstanding, -int64(len(q.items)))
	q.items = q.items[:0]
	q.mu.Unlock()
	if started {
		<-q.doneCh
	}
}

func (q *queue) Push(j job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return ErrClosed
	}
	if len(q.items) >= q.limit {
		atomic.AddUint64(&q.dropped, 1)
		return ErrQueueFull
	}
	q.seq++
	j.seq = q.seq
	heap.Push(&q.items, j)
	atomic.AddInt64(&q.outstanding, 1)
	q.signalWakeup()
	return nil
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.started && !q.stopped
}

// Idle reports whether no job is queued or running.
func (q *queue) Idle() bool {
	return atomic.LoadInt64(&q.outstanding) <= 0
}

func (q *queue) Dropped() uint64 {
	return atomic.LoadUint64(&q.dropped)
}

func (q *queue) loop() {
	defer close(q.doneCh)
	for {
		next, ok := q.pop()
		if !ok {
			select {
			case <-q.wakeup:
				continue
			case <-q.stopCh:
				return
			}
		}
		select {
		case <-q.stopCh:
			atomic.AddInt64(&q.outstanding, -1)
			return
		default:
		}
		q.run(next)
		atomic.AddInt64(&q.outstanding, -1)
	}
}

func (q *queue) signalWakeup() {
	select {
	case q.wakeup <- struct{}{}:
	default:
	}
}

func (q *queue) pop() (job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return job{}, false
	}
	return heap.Pop(&q.items).(job), true
}
