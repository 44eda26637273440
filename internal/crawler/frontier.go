package crawler

// frontier is the crawl queue of a single Crawl call.
//
// A URL enters the queue at most once. Visited URLs are never fetched again
// even if they are queued again through another path.
type frontier struct {
	queue   []string
	queued  map[string]bool
	visited map[string]bool
}

func newFrontier() *frontier {
	return &frontier{
		queued:  make(map[string]bool),
		visited: make(map[string]bool),
	}
}

// push enqueues u unless it was queued or visited before. It reports
// whether u was added.
func (f *frontier) push(u string) bool {
	if f.queued[u] || f.visited[u] {
		return false
	}
	f.queued[u] = true
	f.queue = append(f.queue, u)
	return true
}

// pop removes and returns the oldest URL.
func (f *frontier) pop() string {
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return u
}

func (f *frontier) empty() bool {
	return len(f.queue) == 0
}

func (f *frontier) isVisited(u string) bool {
	return f.visited[u]
}

func (f *frontier) markVisited(u string) {
	f.visited[u] = true
}

// size returns the number of URLs waiting in the queue.
func (f *frontier) size() int {
	return len(f.queue)
}
