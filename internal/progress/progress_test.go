package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTrackerWithoutWriter(t *testing.T) {
	tr := NewTracker(nil, "checking", 3)
	tr.Tick()
	tr.FinishSuccess()
	tr.FinishError(errors.New("ignored"))

	var nilTracker *Tracker
	nilTracker.Tick()
	nilTracker.FinishSuccess()
}

func TestTrackerTicks(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(&buf, "checking", 4)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Tick()
		}()
	}
	wg.Wait()

	if got := tr.bar.State().CurrentNum; got != 4 {
		t.Errorf("CurrentNum = %d, want 4", got)
	}
	tr.FinishSuccess()
}

func TestTrackerFinishError(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker(&buf, "checking", 1)
	tr.FinishError(errors.New("disk gone"))

	if !strings.Contains(buf.String(), "checking error: disk gone") {
		t.Errorf("output = %q, want the error message", buf.String())
	}
}

func TestSpinner(t *testing.T) {
	var buf bytes.Buffer
	sp := NewSpinner(&buf, "scanning")
	sp.Tick()
	sp.FinishSuccess()

	if NewSpinner(nil, "scanning").bar != nil {
		t.Error("spinner without a writer should not render")
	}
}
