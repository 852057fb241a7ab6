package directory

import (
	"context"
	"io"
	"testing"

	"github.com/CryLyo/EduBot/internal/platform/fake"
	"github.com/CryLyo/EduBot/internal/queue"
	filestore "github.com/CryLyo/EduBot/internal/storage/file"
	logpkg "github.com/CryLyo/EduBot/pkg/log"
)

func newTestDirectory(t *testing.T) (*Directory, *filestore.Store) {
	t.Helper()
	store, err := filestore.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.ErrorLevel),
		logpkg.WithOutput(logpkg.NewWriterOutput(io.Discard)),
	)
	d := New(store, queue.Deps{Chat: fake.New(), Logger: logger})
	return d, store
}

var (
	testScope = queue.Scope{Guild: 1, Channel: 2}
	testNames = queue.Names{Guild: "campus", Channel: "python"}
)

func TestMakeOnePerScope(t *testing.T) {
	d, _ := newTestDirectory(t)

	q, err := d.Make(testScope, testNames, queue.KindReview)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if q.Kind() != queue.KindReview {
		t.Fatalf("kind %s", q.Kind())
	}
	if _, err := d.Make(testScope, testNames, queue.KindQuestion); err != queue.ErrAlreadyExists {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
	// A different channel is a different scope.
	other := queue.Scope{Guild: 1, Channel: 3}
	if _, err := d.Make(other, testNames, queue.KindQuestion); err != nil {
		t.Fatalf("make other: %v", err)
	}
	if got := d.Scopes(); len(got) != 2 || got[0] != testScope {
		t.Fatalf("scopes %v", got)
	}
}

func TestConvertSwapsLiveQueue(t *testing.T) {
	d, _ := newTestDirectory(t)
	ctx := context.Background()

	q, err := d.Make(testScope, testNames, queue.KindReview)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if _, err := q.Add(ctx, 7, ""); err != nil {
		t.Fatalf("add: %v", err)
	}

	converted, err := d.Convert(testScope, queue.KindMultiReview, "ex1")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	live, ok := d.Get(testScope)
	if !ok || live != converted {
		t.Fatalf("directory still serves the old queue")
	}
	if live.Kind() != queue.KindMultiReview || live.Size() != 1 {
		t.Fatalf("kind=%s size=%d", live.Kind(), live.Size())
	}

	if _, err := d.Convert(queue.Scope{Guild: 9, Channel: 9}, queue.KindReview, ""); err != queue.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	q, err := d.Make(testScope, testNames, queue.KindReview)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	for _, id := range []int64{4, 5, 6} {
		if _, err := q.Add(ctx, id, ""); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := d.Save(ctx, testScope); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh directory over the same store restores the queue.
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.ErrorLevel),
		logpkg.WithOutput(logpkg.NewWriterOutput(io.Discard)),
	)
	d2 := New(store, queue.Deps{Chat: fake.New(), Logger: logger})
	loaded, err := d2.Load(ctx, testScope)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Kind() != queue.KindReview || loaded.Size() != 3 {
		t.Fatalf("kind=%s size=%d", loaded.Kind(), loaded.Size())
	}
	if loaded.Names() != testNames {
		t.Fatalf("names %+v", loaded.Names())
	}
}

func TestLoadMissingIsNotFound(t *testing.T) {
	d, _ := newTestDirectory(t)
	if _, err := d.Load(context.Background(), testScope); err != queue.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLoadAllSkipsCorruptDocuments(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	q, err := d.Make(testScope, testNames, queue.KindReview)
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if _, err := q.Add(ctx, 1, ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := d.Save(ctx, testScope); err != nil {
		t.Fatalf("save: %v", err)
	}
	corrupt := queue.Scope{Guild: 3, Channel: 4}
	if err := store.Put(ctx, corrupt, []byte("{broken")); err != nil {
		t.Fatalf("put: %v", err)
	}

	n, err := d.LoadAll(ctx)
	if err != nil {
		t.Fatalf("loadall: %v", err)
	}
	if n != 1 {
		t.Fatalf("loaded %d", n)
	}
	if _, ok := d.Get(corrupt); ok {
		t.Fatalf("corrupt scope should stay empty")
	}
}

func TestSaveAllAndDelete(t *testing.T) {
	d, store := newTestDirectory(t)
	ctx := context.Background()

	if _, err := d.Make(testScope, testNames, queue.KindReview); err != nil {
		t.Fatalf("make: %v", err)
	}
	other := queue.Scope{Guild: 1, Channel: 3}
	if _, err := d.Make(other, testNames, queue.KindQuestion); err != nil {
		t.Fatalf("make: %v", err)
	}

	n, err := d.SaveAll(ctx)
	if err != nil || n != 2 {
		t.Fatalf("saveall: n=%d err=%v", n, err)
	}
	docs, err := store.List(ctx)
	if err != nil || len(docs) != 2 {
		t.Fatalf("list: %d err=%v", len(docs), err)
	}

	if err := d.Delete(ctx, testScope); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := d.Get(testScope); ok {
		t.Fatalf("queue still live after delete")
	}
	docs, _ = store.List(ctx)
	if len(docs) != 1 {
		t.Fatalf("saved doc not removed: %d", len(docs))
	}
	if err := d.Delete(ctx, testScope); err != queue.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
