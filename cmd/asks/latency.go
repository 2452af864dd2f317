package main

import (
	"fmt"
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const maxLatencyUs = 60_000_000

type latencies struct {
	h      *hdrhistogram.Histogram
	errors int
}

func newLatencies() *latencies {
	// 1us to 60s, 3 significant digits
	return &latencies{h: hdrhistogram.New(1, maxLatencyUs, 3)}
}

func (l *latencies) record(d time.Duration, err error) {
	if err != nil {
		l.errors++
		return
	}
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	_ = l.h.RecordValue(us)
}

func us(v int64) time.Duration { return time.Duration(v) * time.Microsecond }

func (l *latencies) report(w io.Writer) {
	fmt.Fprintf(w, "requests: %d ok, %d failed\n", l.h.TotalCount(), l.errors)
	if l.h.TotalCount() == 0 {
		return
	}
	fmt.Fprintf(w, "latency: min %v  p50 %v  p95 %v  p99 %v  max %v\n",
		us(l.h.Min()), us(l.h.ValueAtQuantile(50)), us(l.h.ValueAtQuantile(95)),
		us(l.h.ValueAtQuantile(99)), us(l.h.Max()))
}
