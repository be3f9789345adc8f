package light

import (
	"context"
	"errors"
	"testing"
)

// fakeTransport records posts and fails on demand.
type fakeTransport struct {
	posts    []Command
	failOn   map[Flag]bool
	lit      map[string]bool // url -> reported state for Get
	getCalls int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		failOn: make(map[Flag]bool),
		lit:    make(map[string]bool),
	}
}

func (f *fakeTransport) Get(_ context.Context, url string) bool {
	f.getCalls++
	return f.lit[url]
}

func (f *fakeTransport) Post(_ context.Context, url string, on bool) error {
	var flag Flag
	for fl, u := range testURLs {
		if u == url {
			flag = fl
		}
	}
	if f.failOn[flag] {
		return errors.New("connection refused")
	}
	f.posts = append(f.posts, Command{URL: url, Flag: flag, On: on})
	f.lit[url] = on
	return nil
}

var testURLs = map[Flag]string{
	FlagAvailable: "http://dev:8000/GPIO/18/value",
	FlagAway:      "http://dev:8000/GPIO/17/value",
	FlagBusy:      "http://dev:8000/GPIO/27/value",
}

func TestApplySetsAllThreeInOrder(t *testing.T) {
	ft := newFakeTransport()
	ctl := NewController(ft, testURLs, nil)

	if err := ctl.Apply(context.Background(), FlagAway); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if len(ft.posts) != 3 {
		t.Fatalf("got %d posts, want 3", len(ft.posts))
	}
	wantOrder := []Flag{FlagAvailable, FlagAway, FlagBusy}
	for i, p := range ft.posts {
		if p.Flag != wantOrder[i] {
			t.Errorf("post %d is %s, want %s", i, p.Flag, wantOrder[i])
		}
	}
	if !ft.posts[1].On || ft.posts[0].On || ft.posts[2].On {
		t.Errorf("directions wrong: %+v", ft.posts)
	}
	if got := ctl.Commanded(); got != FlagAway {
		t.Errorf("Commanded() = %s, want away", got)
	}
}

func TestApplyAbortsOnFirstFailure(t *testing.T) {
	ft := newFakeTransport()
	ft.failOn[FlagAway] = true
	ctl := NewController(ft, testURLs, nil)

	err := ctl.Apply(context.Background(), FlagBusy)
	if err == nil {
		t.Fatal("Apply() succeeded, want failure on second command")
	}

	// First command applied, second failed, third never attempted.
	if len(ft.posts) != 1 {
		t.Fatalf("got %d posts, want 1 (abort after second command failed)", len(ft.posts))
	}
	if ft.posts[0].Flag != FlagAvailable {
		t.Errorf("surviving post is %s, want available", ft.posts[0].Flag)
	}
}

func TestApplyKeepsCommandedStateOnFailure(t *testing.T) {
	ft := newFakeTransport()
	ctl := NewController(ft, testURLs, nil)

	if err := ctl.Apply(context.Background(), FlagBusy); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	if got := ctl.Commanded(); got != FlagBusy {
		t.Fatalf("Commanded() = %s, want busy", got)
	}

	// Second apply fails on the very first command: the cache must be
	// exactly what the successful commands left behind.
	ft.failOn[FlagAvailable] = true
	if err := ctl.Apply(context.Background(), FlagAvailable); err == nil {
		t.Fatal("second Apply() succeeded, want failure")
	}
	if got := ctl.Commanded(); got != FlagBusy {
		t.Errorf("Commanded() after failed apply = %s, want busy", got)
	}
}

func TestApplyPartialUpdateRecorded(t *testing.T) {
	ft := newFakeTransport()
	ft.failOn[FlagBusy] = true
	ctl := NewController(ft, testURLs, nil)

	if err := ctl.Apply(context.Background(), FlagAvailable); err == nil {
		t.Fatal("Apply() succeeded, want failure on third command")
	}

	// Available and Away succeeded before the abort; commanded state
	// reflects both of them and nothing about Busy.
	if got := ctl.Commanded(); got != FlagAvailable {
		t.Errorf("Commanded() = %s, want available", got)
	}
}

func TestIsOnReflectsDevice(t *testing.T) {
	ft := newFakeTransport()
	ctl := NewController(ft, testURLs, nil)
	ctx := context.Background()

	if ctl.IsOn(ctx, FlagAvailable) {
		t.Error("IsOn() = true before any command")
	}
	if err := ctl.Apply(ctx, FlagAvailable); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !ctl.IsOn(ctx, FlagAvailable) {
		t.Error("IsOn(available) = false after turning it on")
	}
	if ctl.IsOn(ctx, FlagBusy) {
		t.Error("IsOn(busy) = true, want false")
	}
}
