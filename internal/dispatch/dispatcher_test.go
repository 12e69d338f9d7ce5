package dispatch_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/dispatch"
	"github.com/bwyatt92/Muninn---Voice-Assistant/internal/intent"
	"github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store"
	storemock "github.com/bwyatt92/Muninn---Voice-Assistant/pkg/store/mock"
)

// fakeTalk is a canned SmallTalk implementation.
type fakeTalk struct {
	weatherErr error
}

func (f *fakeTalk) Time(now time.Time) string { return "It is " + now.Format("3:04 PM") + "." }

func (f *fakeTalk) Weather(context.Context) (string, error) {
	if f.weatherErr != nil {
		return "", f.weatherErr
	}
	return "It is sunny.", nil
}

func (f *fakeTalk) Joke() string { return "A joke." }

func newDispatcher(st store.Store) *dispatch.Dispatcher {
	return dispatch.New(st, &fakeTalk{}, nil, dispatch.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)
	}))
}

func TestDispatch_PlayStoryFromPerson(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	st.Seed(store.Record{Person: "Beau", Category: store.CategoryStory, Title: "the lake", AudioRef: "/r/1.wav"})
	d := newDispatcher(st)

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindPlayStory, Person: "Beau"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(resp.AudioRefs) != 1 || resp.AudioRefs[0] != "/r/1.wav" {
		t.Errorf("AudioRefs = %v, want [/r/1.wav]", resp.AudioRefs)
	}
	if !strings.Contains(resp.Text, "Beau") {
		t.Errorf("Text = %q, want mention of Beau", resp.Text)
	}
}

func TestDispatch_PlayStoryEmptyResultSpeaksAbsence(t *testing.T) {
	t.Parallel()

	d := newDispatcher(storemock.New())

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindPlayStory, Person: "Beau"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if resp.Text != "I don't have any stories from Beau." {
		t.Errorf("Text = %q", resp.Text)
	}
	if len(resp.AudioRefs) != 0 {
		t.Errorf("AudioRefs = %v, want none", resp.AudioRefs)
	}
}

func TestDispatch_PlayMessageWithoutPerson(t *testing.T) {
	t.Parallel()

	d := newDispatcher(storemock.New())

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindPlayMessage})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(resp.Text, "No family member found") {
		t.Errorf("Text = %q, want no-family-member response", resp.Text)
	}
}

func TestDispatch_PlayStoryUnresolvedPersonPlaysNothing(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	st.Seed(store.Record{Person: "Beau", Category: store.CategoryStory, Title: "the lake", AudioRef: "/r/1.wav"})
	d := newDispatcher(st)

	// "play a story from zorblatt": the name did not resolve, so nobody
	// else's recording may play in its place.
	resp, err := d.Dispatch(context.Background(), intent.Intent{
		Kind:             intent.KindPlayStory,
		PersonUnresolved: true,
		Category:         store.CategoryStory,
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(resp.Text, "No family member found") {
		t.Errorf("Text = %q, want no-family-member response", resp.Text)
	}
	if len(resp.AudioRefs) != 0 {
		t.Errorf("AudioRefs = %v, want none", resp.AudioRefs)
	}
}

func TestDispatch_PlayAllMessagesQueuesEverything(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	st.Seed(
		store.Record{Person: "Beau", Category: store.CategoryBirthday, AudioRef: "/r/1.wav"},
		store.Record{Person: "Cassie", Category: store.CategoryBirthday, AudioRef: "/r/2.wav"},
		store.Record{Person: "Cassie", Category: store.CategoryStory, AudioRef: "/r/3.wav"},
	)
	d := newDispatcher(st)

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindPlayAllMessages})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(resp.AudioRefs) != 2 {
		t.Errorf("AudioRefs = %v, want the 2 birthday messages", resp.AudioRefs)
	}
	if !strings.Contains(resp.Text, "2 birthday messages") {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestDispatch_PlayLastRecordingPicksNewest(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	old := time.Now().Add(-time.Hour)
	st.Seed(
		store.Record{Person: "Beau", Title: "older", AudioRef: "/r/old.wav", CreatedAt: old},
		store.Record{Person: "Cassie", Title: "newest", AudioRef: "/r/new.wav", CreatedAt: old.Add(30 * time.Minute)},
	)
	d := newDispatcher(st)

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindPlayLastRecording})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(resp.AudioRefs) != 1 || resp.AudioRefs[0] != "/r/new.wav" {
		t.Errorf("AudioRefs = %v, want [/r/new.wav]", resp.AudioRefs)
	}
}

func TestDispatch_ListStories(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	st.Seed(
		store.Record{Person: "Beau", Category: store.CategoryStory},
		store.Record{Person: "Cassie", Category: store.CategoryAdvice},
	)
	d := newDispatcher(st)

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindListStories})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if !strings.Contains(resp.Text, "2 recordings from 2 people") {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestDispatch_StoreFailureIsUnavailable(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	st.Err = errors.New("connection refused")
	d := newDispatcher(st)

	_, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindListStories})
	if err == nil {
		t.Fatal("Dispatch: want error, got nil")
	}
	if !errors.Is(err, store.ErrUnavailable) {
		t.Errorf("error %v does not wrap store.ErrUnavailable", err)
	}
}

func TestDispatch_SmallTalk(t *testing.T) {
	t.Parallel()

	d := newDispatcher(storemock.New())

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindGetTime})
	if err != nil {
		t.Fatalf("Dispatch(time): %v", err)
	}
	if !strings.Contains(resp.Text, "3:04 PM") {
		t.Errorf("time Text = %q", resp.Text)
	}

	resp, err = d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindTellJoke})
	if err != nil {
		t.Fatalf("Dispatch(joke): %v", err)
	}
	if resp.Text != "A joke." {
		t.Errorf("joke Text = %q", resp.Text)
	}
}

func TestDispatch_WeatherFailureDegrades(t *testing.T) {
	t.Parallel()

	d := dispatch.New(storemock.New(), &fakeTalk{weatherErr: errors.New("timeout")}, nil)

	resp, err := d.Dispatch(context.Background(), intent.Intent{Kind: intent.KindGetWeather})
	if err != nil {
		t.Fatalf("Dispatch: weather failure must not error, got %v", err)
	}
	if !strings.Contains(resp.Text, "weather service") {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestSaveRecord(t *testing.T) {
	t.Parallel()

	st := storemock.New()
	d := newDispatcher(st)

	err := d.SaveRecord(context.Background(), store.Record{
		Person:   "Beau",
		Category: store.CategoryStory,
		Title:    "x",
		AudioRef: "/r/x.wav",
	})
	if err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if st.Len() != 1 {
		t.Errorf("store has %d records, want 1", st.Len())
	}
}
