package overlay

import (
	"sync"
	"testing"
)

func TestContentSeqShowDuringTeardownStaysPending(t *testing.T) {
	var seq contentSeq

	// Normal run: content arrives, a surface opens and takes it.
	seq.bump()
	if !seq.pending() {
		t.Fatal("fresh content not pending")
	}
	seq.take()
	if seq.pending() {
		t.Fatal("taken content still pending")
	}

	// Content arriving while the old surface tears down misses its
	// message queue; the display thread must still see it as pending
	// once the teardown finishes.
	seq.bump()
	if !seq.pending() {
		t.Fatal("content that missed the surface must stay pending")
	}
	seq.take()
	if seq.pending() {
		t.Fatal("reopened content still pending")
	}
}

func TestContentSeqConcurrentBumps(t *testing.T) {
	var seq contentSeq
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				seq.bump()
			}
		}()
	}
	wg.Wait()
	if !seq.pending() {
		t.Fatal("bumped content not pending")
	}
	seq.take()
	if seq.pending() {
		t.Fatal("take must cover every earlier bump")
	}
}
