package prometheus

import (
	"time"
)

// Recorder forwards transition outcomes to the package metrics. It satisfies
// the state machine's recorder interface and is safe for concurrent use.
//
//	m := machine.New(registry, backend, machine.WithRecorder(prometheus.NewRecorder()))
type Recorder struct{}

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// ObserveTransition records one transition attempt.
func (r *Recorder) ObserveTransition(defTag, status string, forced bool, elapsed time.Duration) {
	RecordTransition(defTag, status, forced, elapsed.Seconds())
}

// ObserveMassBatch records the size of a mass transition batch.
func (r *Recorder) ObserveMassBatch(size int) {
	RecordMassBatch(size)
}
