package player

// QueueItem is one entry of the play queue.
type QueueItem struct {
	SongID   int64  `json:"songId"`
	FilePath string `json:"-"`
}

// Queue is an ordered playlist with a cursor. The cursor is unconstrained:
// an out-of-range Index simply means there is no current item.
//
// A Queue is owned by the Engine goroutine and is not safe for concurrent use.
type Queue struct {
	Index int         `json:"index"`
	Items []QueueItem `json:"items"`
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.Items)
}

// Push appends an item. The cursor is left untouched.
func (q *Queue) Push(item QueueItem) {
	q.Items = append(q.Items, item)
}

// Next moves the cursor forward unless it already sits on the last item.
func (q *Queue) Next() {
	if q.Index < len(q.Items)-1 {
		q.Index++
	}
}

// Prev moves the cursor back unless it is already at zero.
func (q *Queue) Prev() {
	if q.Index != 0 {
		q.Index--
	}
}

// SetIndex sets the cursor without any bounds check.
func (q *Queue) SetIndex(i int) {
	q.Index = i
}

// DeleteAt removes the item at i if it exists. The cursor is not renumbered,
// so deleting before the cursor makes it point at the following item.
func (q *Queue) DeleteAt(i int) {
	if i < 0 || i >= len(q.Items) {
		return
	}
	q.Items = append(q.Items[:i], q.Items[i+1:]...)
}

// RemoveCurrent removes the item under the cursor. The next item, if any,
// shifts into the cursor position.
func (q *Queue) RemoveCurrent() {
	q.DeleteAt(q.Index)
}

// Current returns the item under the cursor.
func (q *Queue) Current() (QueueItem, bool) {
	if q.Index < 0 || q.Index >= len(q.Items) {
		return QueueItem{}, false
	}
	return q.Items[q.Index], true
}

// Snapshot returns a copy that shares no memory with q.
func (q *Queue) Snapshot() Queue {
	items := make([]QueueItem, len(q.Items))
	copy(items, q.Items)
	return Queue{Index: q.Index, Items: items}
}
