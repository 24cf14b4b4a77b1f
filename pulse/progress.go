// Package pulse holds infrastructure shared by the pulse subpackages and
// their front ends.
package pulse

import (
	"sync/atomic"

	"github.com/teranos/lanes/pulse/async"
)

// ProgressEmitter defines the interface for reporting the progress of a
// command chain. Front ends (the CLI, tests) implement it; ObserveProgress
// feeds it from a job's lifecycle.
type ProgressEmitter interface {
	// EmitStage announces a lifecycle stage such as "started" or "interrupted"
	EmitStage(stage string, message string)

	// EmitProgress announces how many commands have completed so far
	EmitProgress(completed int)

	// EmitComplete announces that the chain went quiet with no failure
	EmitComplete(summary map[string]interface{})

	// EmitError announces that the chain stopped on a failed command
	EmitError(stage string, err error)
}

// progressObserver translates transitions into emitter calls. Hooks run
// under the job lock, so the emitter must not call back into the job.
type progressObserver struct {
	emitter   ProgressEmitter
	completed atomic.Int64
}

// ObserveProgress returns an Observer for async.WithObserver that reports to e.
//
// Example:
//
//	job := rt.NewJob(async.Auto, async.WithObserver(pulse.ObserveProgress(emitter)))
func ObserveProgress(e ProgressEmitter) async.Observer {
	return &progressObserver{emitter: e}
}

func (o *progressObserver) WillTransition(async.Transition) {}

func (o *progressObserver) DidTransition(t async.Transition) {
	switch t.To {
	case async.Started:
		if t.From != async.Finished {
			o.emitter.EmitStage("started", "resumed from "+t.From.String())
		}
	case async.Finished:
		o.emitter.EmitProgress(int(o.completed.Add(1)))
	case async.Interrupted:
		o.emitter.EmitStage("interrupted", "waiting for the command in flight")
	case async.Stopped:
		if t.Err != nil {
			o.emitter.EmitError("stopped", t.Err)
		} else if t.From != async.Ejected {
			o.emitter.EmitStage("stopped", "suspended")
		}
	case async.Paused:
		if t.From == async.Finished {
			o.emitter.EmitComplete(map[string]interface{}{
				"job_id":    t.JobID.String(),
				"completed": int(o.completed.Load()),
			})
		}
	}
}
