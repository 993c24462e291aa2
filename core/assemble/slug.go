package assemble

import (
	"fmt"
	"sync"
	"time"
)

// DefaultSlugPrefix prefixes every generated URL name.
const DefaultSlugPrefix = "URL"

// Slugger issues URL names of the form {prefix}-{YYYYMMDDHHMMSSmmm}-{seq}.
// seq counts every slug issued by this Slugger, so two slugs never collide
// even when the clock does not advance between them.
type Slugger struct {
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	seq int
}

// NewSlugger creates a Slugger. An empty prefix uses DefaultSlugPrefix and a
// nil clock uses time.Now.
func NewSlugger(prefix string, now func() time.Time) *Slugger {
	if prefix == "" {
		prefix = DefaultSlugPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Slugger{prefix: prefix, now: now}
}

// Next returns a fresh slug.
func (s *Slugger) Next() string {
	s.mu.Lock()
	seq := s.seq
	s.seq++
	s.mu.Unlock()

	return fmt.Sprintf("%s-%s-%d", s.prefix, Timestamp(s.now()), seq)
}

// Issued returns how many slugs have been handed out.
func (s *Slugger) Issued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Timestamp formats t as YYYYMMDDHHMMSS followed by milliseconds.
func Timestamp(t time.Time) string {
	return fmt.Sprintf("%s%03d", t.Format("20060102150405"), t.Nanosecond()/int(time.Millisecond))
}
