package media

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xylax/motion-agent/internal/probe"
)

// fakeProber returns canned results per path.
type fakeProber struct {
	mu      sync.Mutex
	results map[string]probe.Result
	err     error
	calls   []string
}

func (p *fakeProber) Probe(ctx context.Context, path string) (probe.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
	if p.err != nil {
		return probe.Result{}, p.err
	}
	return p.results[path], nil
}

func (p *fakeProber) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestAddUploadBackfillsProbe(t *testing.T) {
	prober := &fakeProber{results: map[string]probe.Result{
		"/tmp/a.mp4": {Duration: 12.5, HasAudio: true, ThumbnailPath: "/tmp/a.jpg"},
	}}
	r := NewRegistry(prober, nil)
	defer r.Close()

	item := r.AddUpload("a.mp4", "/tmp/a.mp4")
	if item.Probed {
		t.Error("item reported probed before the probe finished")
	}

	r.WaitProbes()

	got := r.Get(item.ID)
	if got == nil {
		t.Fatal("item missing after probe")
	}
	if !got.Probed {
		t.Error("item not marked probed")
	}
	if got.Duration != 12.5 || !got.HasAudio || got.ThumbnailPath != "/tmp/a.jpg" {
		t.Errorf("probe metadata not applied: %+v", got)
	}
}

func TestProbeFailureDegrades(t *testing.T) {
	prober := &fakeProber{err: errors.New("ffprobe exploded")}
	r := NewRegistry(prober, nil)
	defer r.Close()

	item := r.AddUpload("broken.mp4", "/tmp/broken.mp4")
	r.WaitProbes()

	got := r.Get(item.ID)
	if got == nil {
		t.Fatal("item missing after failed probe")
	}
	// Degraded, not removed: zero duration, no audio, still probed.
	if !got.Probed {
		t.Error("failed probe did not settle the item")
	}
	if got.Duration != 0 || got.HasAudio {
		t.Errorf("degraded item carries metadata: %+v", got)
	}
}

func TestListInsertionOrder(t *testing.T) {
	r := NewRegistry(&fakeProber{}, nil)
	defer r.Close()

	names := []string{"one.mp4", "two.mp4", "three.mp4"}
	for _, n := range names {
		r.AddUpload(n, "/tmp/"+n)
	}
	r.WaitProbes()

	items := r.List()
	if len(items) != len(names) {
		t.Fatalf("got %d items, want %d", len(items), len(names))
	}
	for i, n := range names {
		if items[i].Name != n {
			t.Errorf("items[%d].Name = %s, want %s", i, items[i].Name, n)
		}
	}
}

func TestMergeReprobesSuppliedMetadata(t *testing.T) {
	// The hand-off claims 99 seconds with audio; the probe says otherwise
	// and the probe must win.
	prober := &fakeProber{results: map[string]probe.Result{
		"/tmp/gen.mp4": {Duration: 4.2, HasAudio: false},
	}}
	r := NewRegistry(prober, nil)
	defer r.Close()

	items := r.Merge([]HandOff{{
		Name:     "Scene: a castle at dawn",
		Path:     "/tmp/gen.mp4",
		Duration: 99,
		HasAudio: true,
		Origin:   OriginGenerated,
		Prompt:   "a castle at dawn",
	}})
	if len(items) != 1 {
		t.Fatalf("got %d merged items, want 1", len(items))
	}

	r.WaitProbes()

	got := r.Get(items[0].ID)
	if got.Duration != 4.2 {
		t.Errorf("Duration = %v, want probe's 4.2", got.Duration)
	}
	if got.HasAudio {
		t.Error("HasAudio kept the supplied value over the probe's")
	}
	if got.Prompt != "a castle at dawn" {
		t.Error("provenance prompt lost in merge")
	}
	if prober.callCount() != 1 {
		t.Errorf("probe called %d times, want 1", prober.callCount())
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := NewRegistry(&fakeProber{}, nil)
	defer r.Close()

	item := r.AddUpload("a.mp4", "/tmp/a.mp4")
	r.WaitProbes()

	first := r.Get(item.ID)
	first.Name = "mutated"

	if r.Get(item.ID).Name != "a.mp4" {
		t.Error("mutating a returned item changed registry state")
	}
}

func TestCloseDiscardsLateResults(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	prober := &blockingProber{started: started, release: release}

	r := NewRegistry(prober, nil)
	item := r.AddUpload("slow.mp4", "/tmp/slow.mp4")

	<-started
	r.Close()
	close(release)
	r.WaitProbes()

	if got := r.Get(item.ID); got.Probed {
		t.Error("late probe result applied after Close")
	}
}

type blockingProber struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingProber) Probe(ctx context.Context, path string) (probe.Result, error) {
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
	case <-time.After(5 * time.Second):
	}
	return probe.Result{Duration: 1, HasAudio: true}, nil
}
