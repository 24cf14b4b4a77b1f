package pulse

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/lanes/errors"
	lanestest "github.com/teranos/lanes/internal/testing"
	"github.com/teranos/lanes/pulse/async"
	"github.com/teranos/lanes/pulse/lane"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingEmitter) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recordingEmitter) EmitStage(stage, _ string) { r.add("stage:" + stage) }
func (r *recordingEmitter) EmitProgress(n int)        { r.add(fmt.Sprintf("progress:%d", n)) }
func (r *recordingEmitter) EmitComplete(s map[string]interface{}) {
	r.add(fmt.Sprintf("complete:%v", s["completed"]))
}
func (r *recordingEmitter) EmitError(stage string, _ error) { r.add("error:" + stage) }

func (r *recordingEmitter) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestObserveProgress(t *testing.T) {
	rt := async.NewRuntime(async.WithLogger(lanestest.Logger(t)))
	t.Cleanup(func() { assert.NoError(t, rt.Close(context.Background())) })

	em := &recordingEmitter{}
	job := rt.NewJob(async.Manual, async.WithObserver(ObserveProgress(em)))
	fail := true
	job.Dispatch(lane.Class(lane.Default), func(context.Context) error { return nil }).
		Dispatch(lane.Class(lane.Default), func(context.Context) error {
			if fail {
				fail = false
				return errors.New("flaky")
			}
			return nil
		})

	job.Resume()
	lanestest.Eventually(t, func() bool { return job.State() == async.Stopped && job.LastError() != nil })
	job.Resume()
	require.True(t, job.WaitTimeout(lanestest.WaitFor))

	assert.Equal(t, []string{
		"stage:started",
		"progress:1",
		"error:stopped",
		"stage:started",
		"progress:2",
		"complete:2",
	}, em.seen())
}
