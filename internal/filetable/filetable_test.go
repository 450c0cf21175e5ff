package filetable

import (
	"sort"
	"testing"
)

type fakeSubscriber struct {
	subscribed   map[string]bool
	unsubscribed map[string]bool
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{subscribed: map[string]bool{}, unsubscribed: map[string]bool{}}
}

func (f *fakeSubscriber) Subscribe(name string)   { f.subscribed[name] = true }
func (f *fakeSubscriber) Unsubscribe(name string) { f.unsubscribed[name] = true; delete(f.subscribed, name) }

func TestPutSubscribesOnce(t *testing.T) {
	sub := newFakeSubscriber()
	table := New(sub)

	table.Put("a.txt/get", &Record{})
	table.Put("a.txt/get", &Record{Path: "/root/a.txt"}) // update, not a new subscription

	if !sub.subscribed["a.txt/get"] {
		t.Error("want a.txt/get subscribed")
	}
	if len(sub.subscribed) != 1 {
		t.Errorf("want exactly one subscription, got %d", len(sub.subscribed))
	}
	rec, ok := table.Get("a.txt/get")
	if !ok || rec.Path != "/root/a.txt" {
		t.Errorf("Get returned stale record: %+v, ok=%v", rec, ok)
	}
}

func TestRemoveUnsubscribes(t *testing.T) {
	sub := newFakeSubscriber()
	table := New(sub)
	table.Put("a.txt/get", &Record{})

	table.Remove("a.txt/get")
	if !sub.unsubscribed["a.txt/get"] {
		t.Error("want a.txt/get unsubscribed")
	}
	if _, ok := table.Get("a.txt/get"); ok {
		t.Error("want a.txt/get gone from table")
	}

	// Removing a name not present is a no-op, no duplicate unsubscribe.
	sub.unsubscribed = map[string]bool{}
	table.Remove("a.txt/get")
	if len(sub.unsubscribed) != 0 {
		t.Error("want no unsubscribe call for already-absent name")
	}
}

func TestNamesPrefixMatch(t *testing.T) {
	sub := newFakeSubscriber()
	table := New(sub)
	for _, n := range []string{
		"a.txt/get", "a.txt/head", "a.txt/options",
		"a.txt0/get", // must not match prefix "a.txt"
		"ab.txt/get",
		"a.txt", // bare name, routing disabled style
	} {
		table.Put(n, &Record{})
	}

	got := table.Names("a.txt")
	sort.Strings(got)
	want := []string{"a.txt", "a.txt/get", "a.txt/head", "a.txt/options"}
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("Names(a.txt) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names(a.txt)[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestFoldVisitsAllInSortedOrder(t *testing.T) {
	sub := newFakeSubscriber()
	table := New(sub)
	table.Put("c.txt/get", &Record{})
	table.Put("a.txt/get", &Record{})
	table.Put("b.txt/get", &Record{})

	var visited []string
	table.Fold(func(name string, _ *Record) { visited = append(visited, name) })

	want := []string{"a.txt/get", "b.txt/get", "c.txt/get"}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("Fold order[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}
