package store

import (
	"context"
	"sync"
)

// Source names the store that served a request.
type Source string

const (
	SourceDatabase Source = "database"
	SourceMemory   Source = "memory"
	SourceFallback Source = "fallback"
)

// Degradation records one operation that was served by the fallback store.
type Degradation struct {
	Operation string
	Cause     string
}

// Trace collects fallback usage for a single request.
type Trace struct {
	mu           sync.Mutex
	degradations []Degradation
}

type traceKey struct{}

// WithTrace attaches a fresh Trace to ctx.
func WithTrace(ctx context.Context) (context.Context, *Trace) {
	t := &Trace{}
	return context.WithValue(ctx, traceKey{}, t), t
}

// TraceFrom returns the Trace carried by ctx, or nil.
func TraceFrom(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

func (t *Trace) MarkFallback(op string, cause error) {
	if t == nil {
		return
	}
	d := Degradation{Operation: op}
	if cause != nil {
		d.Cause = cause.Error()
	}
	t.mu.Lock()
	t.degradations = append(t.degradations, d)
	t.mu.Unlock()
}

func (t *Trace) Degraded() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.degradations) > 0
}

func (t *Trace) Degradations() []Degradation {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Degradation(nil), t.degradations...)
}

// Source reports fallback if any operation degraded, else base.
func (t *Trace) Source(base Source) Source {
	if t.Degraded() {
		return SourceFallback
	}
	return base
}
