package framework

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultLoopInterval is the iteration interval when none is set.
const DefaultLoopInterval = 100 * time.Millisecond

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// Loop runs the controllers periodically, level by level, and the
// runners feeding them in the background.
type Loop struct {
	Interval time.Duration
	Clock    TimeSource

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	inbox    []Message
	lock     sync.Mutex
	wakeUpCh chan struct{}
}

type loopCtxKeyType struct{}

var loopCtxKey loopCtxKeyType

// LoopCtlFrom gets LoopControl from context, nil if the context
// doesn't come from a Loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	ctl, _ := ctx.Value(loopCtxKey).(LoopControl)
	return ctl
}

// NewLoop creates a Loop.
func NewLoop() *Loop {
	return &Loop{Interval: DefaultLoopInterval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at the priority level.
// Controllers which are also Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds runners started with the loop.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable. It returns when ctx is done, or with the
// error of the first failed runner after the others are stopped.
func (l *Loop) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runner := NewRunnerWith(context.WithValue(runCtx, loopCtxKey, LoopControl(l)))
	runner.Go(l.runners...)

	interval := l.Interval
	if interval <= 0 {
		interval = DefaultLoopInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cancel()
			if err := runner.Wait(); err != nil {
				glog.Errorf("runners stopped: %v", err)
			}
			return ctx.Err()
		case <-runner.Failed():
			cancel()
			if err := runner.Wait(); err != nil {
				glog.Errorf("runners stopped: %v", err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			return runner.Err()
		case <-ticker.C:
		case <-l.wakeUpCh:
		}
		l.RunOnce(ctx)
	}
}

// RunAndClose runs the loop and closes closers once it stops.
func (l *Loop) RunAndClose(ctx context.Context, closers ...io.Closer) error {
	err := l.Run(ctx)
	for _, closer := range closers {
		if cerr := closer.Close(); cerr != nil {
			glog.Warningf("close: %v", cerr)
		}
	}
	return err
}

// RunOrFail runs the loop until interrupted, and exits when a
// runner fails. closers are closed once the loop stops.
func (l *Loop) RunOrFail(closers ...io.Closer) {
	runner := NewRunner().HandleSignals()
	if err := l.RunAndClose(runner.Context, closers...); err != nil && err != context.Canceled {
		glog.Fatal(err)
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.inbox = append(l.inbox, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// RunOnce runs a single iteration with the messages posted so far.
// Runners are not started.
func (l *Loop) RunOnce(ctx context.Context) {
	iter := &iteration{Loop: l, time: l.now()}
	l.lock.Lock()
	iter.messages, l.inbox = l.inbox, nil
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtxKey, LoopControl(l))
	for _, ctls := range l.controllers {
		for _, ctl := range ctls {
			if err := ctl.Control(iter); err != nil {
				logControlError(ctl, err)
			}
		}
	}
}

func (l *Loop) now() time.Time {
	if l.Clock != nil {
		return l.Clock.Time()
	}
	return time.Now()
}

func logControlError(ctl Controller, err error) {
	if named, ok := ctl.(Named); ok {
		glog.Errorf("controller %s error: %v", named.Name(), err)
		return
	}
	glog.Errorf("controller error: %v", err)
}

// iteration is the ControlContext of a single iteration. Messages
// not taken are seen by the controllers of the same iteration,
// and dropped afterwards.
type iteration struct {
	*Loop
	ctx      context.Context
	time     time.Time
	messages []Message
}

func (t *iteration) Context() context.Context { return t.ctx }
func (t *iteration) Time() time.Time          { return t.time }
func (t *iteration) Messages() MessageStore   { return t }

type messageContext struct {
	msg   Message
	taken bool
	stop  bool
}

func (c *messageContext) CurrentMessage() Message { return c.msg }
func (c *messageContext) MessageTaken()           { c.taken = true }
func (c *messageContext) StopProcessing()         { c.stop = true }

// ProcessMessages implements MessageStore.
func (t *iteration) ProcessMessages(proc MessageProcessor) {
	remains := t.messages[:0]
	for n, msg := range t.messages {
		mctx := &messageContext{msg: msg}
		proc.ProcessMessage(mctx)
		if !mctx.taken {
			remains = append(remains, msg)
		}
		if mctx.stop {
			remains = append(remains, t.messages[n+1:]...)
			break
		}
	}
	t.messages = remains
}
