// Package projection computes read-only views over application snapshots.
//
// Every call recomputes from the slice it is given. Nothing is cached and no
// state is kept between calls, so a view is exactly as fresh as its input.
package projection

import (
	"time"

	"golang.org/x/text/language"
)

const (
	DefaultStaleThreshold = 14 * 24 * time.Hour
	DefaultStaleTopN      = 3

	day = 24 * time.Hour
)

// Options configures a Projector. Zero fields take the defaults.
type Options struct {
	StaleThreshold time.Duration
	StaleTopN      int
	Language       language.Tag
}

// Projector holds view configuration only.
type Projector struct {
	staleThreshold time.Duration
	staleTopN      int
	lang           language.Tag
}

func New(opts Options) *Projector {
	p := &Projector{
		staleThreshold: opts.StaleThreshold,
		staleTopN:      opts.StaleTopN,
		lang:           opts.Language,
	}
	if p.staleThreshold <= 0 {
		p.staleThreshold = DefaultStaleThreshold
	}
	if p.staleTopN <= 0 {
		p.staleTopN = DefaultStaleTopN
	}
	if p.lang == language.Und {
		p.lang = language.English
	}
	return p
}

func (p *Projector) StaleThreshold() time.Duration {
	return p.staleThreshold
}

func (p *Projector) StaleTopN() int {
	return p.staleTopN
}
