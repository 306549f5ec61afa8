package queue

import "time"

// Clock stamps jobs as they are enqueued
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func NewRealClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant, handy in tests
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }
