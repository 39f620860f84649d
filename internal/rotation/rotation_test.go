package rotation

import (
	"context"
	"errors"
	"testing"
)

func keys(ks ...string) []Credential {
	out := make([]Credential, len(ks))
	for i, k := range ks {
		out[i] = Credential(k)
	}
	return out
}

type recorder struct {
	seen []Credential
}

func (r *recorder) request(results map[Credential]Outcome[string]) Request[string] {
	return func(ctx context.Context, key Credential) Outcome[string] {
		r.seen = append(r.seen, key)
		if out, ok := results[key]; ok {
			return out
		}
		return Quota[string]("429 quota")
	}
}

func TestRunAllQuotaExhaustsEachKeyOnce(t *testing.T) {
	var rec recorder
	out, idx := Run(context.Background(), keys("a", "b", "c"), 0, rec.request(nil))

	if out.Kind != KeysExhausted || !out.IsQuota() {
		t.Fatalf("kind = %v, want keys_exhausted", out.Kind)
	}
	if out.Attempts != 3 || len(rec.seen) != 3 {
		t.Fatalf("attempts = %d, calls = %d, want 3", out.Attempts, len(rec.seen))
	}
	want := []Credential{"a", "b", "c"}
	for i := range want {
		if rec.seen[i] != want[i] {
			t.Errorf("call %d used %q, want %q", i, rec.seen[i], want[i])
		}
	}
	if idx != 0 {
		t.Errorf("index after exhausting = %d, want 0", idx)
	}
	if !errors.Is(out.Err(), ErrKeysExhausted) {
		t.Errorf("Err() = %v", out.Err())
	}
}

func TestRunSecondKeySucceeds(t *testing.T) {
	var rec recorder
	out, idx := Run(context.Background(), keys("a", "b", "c"), 0, rec.request(map[Credential]Outcome[string]{
		"b": Ok("hello"),
	}))
	if out.Kind != Success || out.Payload != "hello" {
		t.Fatalf("out = %+v", out)
	}
	if len(rec.seen) != 2 || out.Attempts != 2 {
		t.Fatalf("calls = %d attempts = %d, want 2", len(rec.seen), out.Attempts)
	}
	if idx != 1 {
		t.Errorf("index = %d, want 1", idx)
	}
	if out.Err() != nil {
		t.Errorf("Err() = %v, want nil", out.Err())
	}
}

func TestRunWrapsAroundFromStartIndex(t *testing.T) {
	var rec recorder
	out, idx := Run(context.Background(), keys("a", "b", "c"), 2, rec.request(map[Credential]Outcome[string]{
		"a": Ok("from a"),
	}))
	if out.Kind != Success || idx != 0 {
		t.Fatalf("out = %+v idx = %d", out, idx)
	}
	if len(rec.seen) != 2 || rec.seen[0] != "c" || rec.seen[1] != "a" {
		t.Errorf("seen = %v, want [c a]", rec.seen)
	}
}

func TestRunStopsOnNonQuotaErrors(t *testing.T) {
	for _, out := range []Outcome[string]{APIError[string]("400 bad request"), Unexpected[string]("timeout")} {
		var rec recorder
		got, idx := Run(context.Background(), keys("a", "b", "c"), 1, rec.request(map[Credential]Outcome[string]{
			"b": out,
		}))
		if got.Kind != out.Kind {
			t.Errorf("kind = %v, want %v", got.Kind, out.Kind)
		}
		if len(rec.seen) != 1 || idx != 1 {
			t.Errorf("%v: calls = %d idx = %d, want one call at index 1", out.Kind, len(rec.seen), idx)
		}
	}
}

func TestRunNoCredentials(t *testing.T) {
	called := false
	out, idx := Run[int](context.Background(), nil, 3, func(context.Context, Credential) Outcome[int] {
		called = true
		return Ok(1)
	})
	if called {
		t.Fatal("request must not be invoked without credentials")
	}
	if out.Kind != NoCredentials || idx != 3 {
		t.Fatalf("out = %+v idx = %d", out, idx)
	}
	if !errors.Is(out.Err(), ErrNoCredentials) {
		t.Errorf("Err() = %v", out.Err())
	}
}

func TestRunNormalizesStartIndex(t *testing.T) {
	var rec recorder
	_, _ = Run(context.Background(), keys("a", "b"), 5, rec.request(map[Credential]Outcome[string]{
		"b": Ok("x"),
	}))
	if len(rec.seen) != 1 || rec.seen[0] != "b" {
		t.Errorf("seen = %v, want [b]", rec.seen)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var rec recorder
	out, _ := Run(ctx, keys("a"), 0, rec.request(nil))
	if out.Kind != UnexpectedError || len(rec.seen) != 0 {
		t.Fatalf("out = %+v calls = %d", out, len(rec.seen))
	}
}

func TestRunObserverSeesRotation(t *testing.T) {
	var rec recorder
	var attempts []Attempt
	Run(context.Background(), keys("a", "b"), 0, rec.request(map[Credential]Outcome[string]{
		"b": Ok("ok"),
	}), func(a Attempt) { attempts = append(attempts, a) })

	if len(attempts) != 2 {
		t.Fatalf("got %d attempts", len(attempts))
	}
	if attempts[0].Kind != QuotaExceeded || attempts[0].Next != 1 {
		t.Errorf("first attempt = %+v", attempts[0])
	}
	if attempts[1].Kind != Success || attempts[1].Next != -1 {
		t.Errorf("second attempt = %+v", attempts[1])
	}
}

func TestCredentialMasked(t *testing.T) {
	if got := Credential("AIzaSyABCDEFG1234").Masked(); got != "****1234" {
		t.Errorf("Masked() = %q", got)
	}
	if got := Credential("abc").Masked(); got != "****" {
		t.Errorf("Masked() = %q", got)
	}
}
