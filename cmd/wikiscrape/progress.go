package main

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/briandowns/spinner"

	"github.com/nao1215/wikiscrape/internal/model"
)

// maxSuffixTitle bounds the page title shown next to the spinner.
const maxSuffixTitle = 50

// progress shows a spinner with the number of scraped pages. A disabled
// progress only counts.
type progress struct {
	spinner *spinner.Spinner
	count   atomic.Int64
}

func newProgress(w io.Writer, enabled bool) *progress {
	p := &progress{}
	if enabled {
		p.spinner = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
		p.spinner.Suffix = " starting..."
	}
	return p
}

func (p *progress) start() {
	if p.spinner != nil {
		p.spinner.Start()
	}
}

// page records a scraped page. It is called from crawl goroutines.
func (p *progress) page(page model.ScrapedPage) {
	n := p.count.Add(1)
	if p.spinner == nil {
		return
	}
	title := []rune(page.Title)
	if len(title) > maxSuffixTitle {
		title = append(title[:maxSuffixTitle-3], []rune("...")...)
	}
	p.spinner.Lock()
	p.spinner.Suffix = fmt.Sprintf(" scraped %d pages: %s", n, string(title))
	p.spinner.Unlock()
}

func (p *progress) stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

func (p *progress) total() int {
	return int(p.count.Load())
}
