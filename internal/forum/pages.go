package forum

// PageQueue remembers which thread pages were visited, in order, so a
// pagination link pointing back to an earlier page cannot loop the scan.
type PageQueue struct {
	visited map[string]bool // key: normalized page URL
	order   []string
}

// NewPageQueue creates an empty page queue
func NewPageQueue() *PageQueue {
	return &PageQueue{
		visited: make(map[string]bool),
	}
}

// Push records a page as visited
// Returns true if added, false if the page was seen before
func (q *PageQueue) Push(pageURL string) bool {
	key := pageKey(pageURL)
	if q.visited[key] {
		return false
	}
	q.visited[key] = true
	q.order = append(q.order, pageURL)
	return true
}

// Seen reports whether a page was already visited
func (q *PageQueue) Seen(pageURL string) bool {
	return q.visited[pageKey(pageURL)]
}

// Len returns the number of visited pages
func (q *PageQueue) Len() int {
	return len(q.order)
}

// Visited returns a snapshot of visited page URLs in visit order
func (q *PageQueue) Visited() []string {
	pages := make([]string, len(q.order))
	copy(pages, q.order)
	return pages
}
