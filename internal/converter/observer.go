package converter

import (
	"time"

	"camfeed/internal/mediatypes"
)

// Entry describes one convertible source and the cache entry it maps to.
type Entry struct {
	Fingerprint string
	Source      string
	Output      string
	Class       mediatypes.FormatClass
	Format      mediatypes.OutputFormat
}

// Observer receives cache and encoder events. The metrics and database packages
// provide implementations. Methods are called synchronously from Convert and must
// not block for long.
type Observer interface {
	ObserveCacheHit(entry Entry)
	ObserveCacheMiss(entry Entry)
	// err is nil on success.
	ObserveConversion(entry Entry, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveCacheHit(Entry)                         {}
func (nopObserver) ObserveCacheMiss(Entry)                        {}
func (nopObserver) ObserveConversion(Entry, time.Duration, error) {}

type multiObserver []Observer

func (m multiObserver) ObserveCacheHit(e Entry) {
	for _, o := range m {
		o.ObserveCacheHit(e)
	}
}

func (m multiObserver) ObserveCacheMiss(e Entry) {
	for _, o := range m {
		o.ObserveCacheMiss(e)
	}
}

func (m multiObserver) ObserveConversion(e Entry, d time.Duration, err error) {
	for _, o := range m {
		o.ObserveConversion(e, d, err)
	}
}

// Observers fans events out to every non-nil observer.
func Observers(observers ...Observer) Observer {
	var m multiObserver
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nopObserver{}
	case 1:
		return m[0]
	default:
		return m
	}
}
