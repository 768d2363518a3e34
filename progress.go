package kurir

import (
	"io"
	"time"
)

// ProgressEvent reports transfer progress of a request or response body.
type ProgressEvent struct {
	Loaded int64
	// Total is -1 when the length is unknown.
	Total int64
	// Progress is Loaded/Total, or 0 when Total is unknown.
	Progress float64
	// Bytes is the number of bytes since the previous event.
	Bytes int64
	// Rate is the transfer rate in bytes per second since the previous event.
	Rate float64
	// Estimated is the remaining time at the current rate, when known.
	Estimated time.Duration
	Upload    bool
	Download  bool
}

// progressInterval throttles events to about three per second.
const progressInterval = time.Second / 3

type progressReader struct {
	r      io.Reader
	total  int64
	upload bool
	notify func(ProgressEvent)

	loaded     int64
	lastLoaded int64
	lastEmit   time.Time
	done       bool
	now        func() time.Time
}

func newProgressReader(r io.Reader, total int64, upload bool, notify func(ProgressEvent)) io.Reader {
	if notify == nil {
		return r
	}
	return &progressReader{
		r:        r,
		total:    total,
		upload:   upload,
		notify:   notify,
		lastEmit: time.Now(),
		now:      time.Now,
	}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.loaded += int64(n)

	now := p.now()
	finished := err == io.EOF || (p.total > 0 && p.loaded >= p.total)
	if (n > 0 && now.Sub(p.lastEmit) >= progressInterval) || (finished && !p.done) {
		p.emit(now)
		p.done = finished
	}
	return n, err
}

func (p *progressReader) emit(now time.Time) {
	delta := p.loaded - p.lastLoaded
	elapsed := now.Sub(p.lastEmit)

	ev := ProgressEvent{
		Loaded:   p.loaded,
		Total:    p.total,
		Bytes:    delta,
		Upload:   p.upload,
		Download: !p.upload,
	}
	if elapsed > 0 {
		ev.Rate = float64(delta) / elapsed.Seconds()
	}
	if p.total > 0 {
		ev.Progress = float64(p.loaded) / float64(p.total)
		if ev.Rate > 0 && p.loaded < p.total {
			ev.Estimated = time.Duration(float64(p.total-p.loaded) / ev.Rate * float64(time.Second))
		}
	}

	p.lastLoaded = p.loaded
	p.lastEmit = now
	p.notify(ev)
}
