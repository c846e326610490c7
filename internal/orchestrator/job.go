package orchestrator

import (
	"fmt"
	"time"

	"github.com/local/cvexport/internal/exporterr"
)

// State is a step of an export's lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateCapturing  State = "capturing"
	StatePaginating State = "paginating"
	StateAssembling State = "assembling"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

// progress is the coarse percentage reported for each state.
func (s State) progress() int {
	switch s {
	case StateCapturing:
		return 10
	case StatePaginating:
		return 40
	case StateAssembling:
		return 50
	case StateComplete:
		return 100
	}
	return 0
}

var next = map[State]State{
	StateIdle:       StateCapturing,
	StateCapturing:  StatePaginating,
	StatePaginating: StateAssembling,
	StateAssembling: StateComplete,
}

// ExportJob is one export request's lifecycle. It is owned by a single
// goroutine and is not safe for concurrent use.
type ExportJob struct {
	ID         string
	DocumentID string
	Subject    string
	State      State
	Kind       exporterr.Kind
	Err        error
	Pages      int
	Started    time.Time
	Ended      time.Time
}

func newJob(id, documentID, subject string) *ExportJob {
	return &ExportJob{ID: id, DocumentID: documentID, Subject: subject, State: StateIdle, Started: time.Now()}
}

// advance moves the job one step forward along the happy path.
func (j *ExportJob) advance(to State) error {
	if want, ok := next[j.State]; !ok || want != to {
		return fmt.Errorf("invalid export transition %s -> %s", j.State, to)
	}
	j.State = to
	if to == StateComplete {
		j.Ended = time.Now()
	}
	return nil
}

// fail moves a live job to Failed, recording the error's kind.
func (j *ExportJob) fail(err error) {
	if j.State.Terminal() {
		return
	}
	j.State = StateFailed
	j.Err = err
	j.Kind = exporterr.KindOf(err)
	j.Ended = time.Now()
}
