package engine

import (
	"github.com/yeomjw0907/catchdeal/internal/model"
)

// dissectItem is one queued dissection unit. attempts counts completed
// failed attempts; the record pointer is shared with the link history.
type dissectItem struct {
	rec      *model.ExtractedLink
	attempts int
}

// dissectQueue is a plain FIFO drained serially within a scan pass.
type dissectQueue struct {
	items []dissectItem
}

func (q *dissectQueue) push(it dissectItem) {
	q.items = append(q.items, it)
}

func (q *dissectQueue) pop() (dissectItem, bool) {
	if len(q.items) == 0 {
		return dissectItem{}, false
	}
	it := q.items[0]
	q.items = q.items[1:]
	return it, true
}

func (q *dissectQueue) len() int {
	return len(q.items)
}

type stepKind int

const (
	stepSuccess stepKind = iota
	stepRequeue
	stepFailed
)

type stepResult struct {
	kind   stepKind
	item   dissectItem
	errMsg string
}

// step is the pure retry transition. A failed attempt increments the
// counter; the item is requeued until maxAttempts failures, then the
// failure is terminal with the last error message. Every error kind
// counts the same.
func step(it dissectItem, ok bool, errMsg string, maxAttempts int) stepResult {
	if ok {
		return stepResult{kind: stepSuccess, item: it}
	}

	next := it
	next.attempts++
	if next.attempts >= maxAttempts {
		return stepResult{kind: stepFailed, item: next, errMsg: errMsg}
	}
	return stepResult{kind: stepRequeue, item: next, errMsg: errMsg}
}
