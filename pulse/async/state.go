package async

// Mode fixes a job's initial state.
type Mode int

const (
	// Auto jobs start Paused and launch work as soon as it is dispatched.
	Auto Mode = iota
	// Manual jobs start Stopped and queue work until Resume.
	Manual
)

func (m Mode) String() string {
	if m == Manual {
		return "manual"
	}
	return "auto"
}

// State is a job's lifecycle state.
type State int

const (
	Ejected State = iota
	Paused
	Stopped
	Started
	Finished
	Interrupted

	numStates
)

func (s State) String() string {
	switch s {
	case Ejected:
		return "ejected"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Started:
		return "started"
	case Finished:
		return "finished"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// stateOps is one row of the lifecycle table. Every function runs with the
// job lock held.
type stateOps struct {
	dispatch func(j *Job, c *Command)
	advance  func(j *Job)
	resume   func(j *Job)
	suspend  func(j *Job)
	cancel   func(j *Job)
}

// lifecycle is the job transition table, indexed by State. It is filled in
// init because its rows reach back into it through posted advances.
var lifecycle [numStates]stateOps

func init() {
	lifecycle = [numStates]stateOps{
		Ejected: {
			dispatch: drop,
			advance:  noop,
			resume:   noop,
			suspend:  noop,
			cancel:   noop,
		},
		Paused: {
			dispatch: pausedDispatch,
			advance:  noop,
			resume:   noop,
			suspend:  func(j *Job) { j.transition(Stopped) },
			cancel:   noop,
		},
		Stopped: {
			dispatch: enqueue,
			advance:  noop,
			resume:   stoppedResume,
			suspend:  noop,
			cancel:   cancelAndDrain,
		},
		Started: {
			dispatch: enqueue,
			advance:  startedAdvance,
			resume:   noop,
			suspend:  startedSuspend,
			cancel:   cancelAndDrain,
		},
		Finished: {
			dispatch: enqueue,
			advance:  noop,
			resume:   noop,
			suspend:  noop,
			cancel:   noop,
		},
		Interrupted: {
			dispatch: enqueue,
			advance:  interruptedAdvance,
			resume:   noop,
			suspend:  noop,
			cancel:   noop,
		},
	}
}

func noop(*Job) {}

// drop discards commands dispatched to a disposed job.
func drop(j *Job, c *Command) {
	j.rt.tracef("job %s command %d dropped: job ejected", j.id, c.id)
}

func enqueue(j *Job, c *Command) {
	j.queue = append(j.queue, c)
}

func pausedDispatch(j *Job, c *Command) {
	enqueue(j, c)
	if j.headEligible() {
		j.transition(Started)
		j.launchHead()
	}
}

func stoppedResume(j *Job) {
	if j.headEligible() {
		j.transition(Started)
		j.launchHead()
		return
	}
	j.transition(Paused)
}

func startedAdvance(j *Job) {
	if head := j.head(); head != nil {
		switch head.Status() {
		case StatusLaunched, StatusExecuting:
			// stale notification; the in-flight head will post its own
			return
		case StatusFailed:
			j.transition(Stopped)
			return
		}
	}

	j.transition(Finished)
	j.drain()
	if j.headEligible() {
		j.transition(Started)
		j.launchHead()
		return
	}
	j.transition(Paused)
}

func startedSuspend(j *Job) {
	preempted := false
	for _, c := range j.queue {
		if c.suspend() {
			preempted = true
		}
	}
	j.transition(Interrupted)
	if preempted {
		j.postAdvance()
	}
}

func interruptedAdvance(j *Job) {
	if head := j.head(); head == nil || head.Status() != StatusFailed {
		j.drain()
	}
	j.transition(Stopped)
}

// cancelAndDrain cancels every cancelable command and drains the queue. The
// state is left alone: a Started job leaves Started when its in-flight
// command reports back.
func cancelAndDrain(j *Job) {
	preempted := false
	for _, c := range j.queue {
		if c.cancel() {
			preempted = true
		}
	}
	j.drain()
	if preempted {
		j.postAdvance()
	}
}
