package progress

import "testing"

func TestNoopDoesNotPanic(t *testing.T) {
	s := Noop()
	s.Report("a.js", 1)
	s.Done()
}

func TestLogSinkAccumulates(t *testing.T) {
	s := &logSink{total: 3}
	s.Report("a.js", 1)
	s.Report("b.js", 1)
	if s.done != 2 {
		t.Errorf("done = %d, want 2", s.done)
	}
	s.Done()
}
