package fn

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResultUnwrap(t *testing.T) {
	r := Ok(42)
	v, err := r.Unwrap()
	if err != nil || v != 42 {
		t.Fatalf("unexpected unwrap: %v, %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Error("Err should not be ok")
	}
	if e.UnwrapOr(7) != 7 {
		t.Error("UnwrapOr fallback not used")
	}
}

func TestFromPair(t *testing.T) {
	if FromPair(1, nil).IsErr() {
		t.Error("nil error should be Ok")
	}
	if FromPair(0, errors.New("x")).IsOk() {
		t.Error("non-nil error should be Err")
	}
}

func TestCollect_FirstError(t *testing.T) {
	want := errors.New("second")
	results := []Result[int]{Ok(1), Err[int](want), Err[int](errors.New("third"))}
	_, err := Collect(results).Unwrap()
	if err != want {
		t.Fatalf("expected first error, got %v", err)
	}
}

func TestThen_ShortCircuits(t *testing.T) {
	ctx := context.Background()
	called := false
	first := Stage[int, int](func(_ context.Context, _ int) Result[int] {
		return Err[int](errors.New("fail"))
	})
	second := Stage[int, string](func(_ context.Context, _ int) Result[string] {
		called = true
		return Ok("never")
	})
	r := Then(first, second)(ctx, 1)
	if !r.IsErr() || called {
		t.Fatal("second stage should not run after failure")
	}
}

func TestThen_Chains(t *testing.T) {
	ctx := context.Background()
	double := Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n * 2) })
	str := Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n + 1) })
	v, err := Then(double, str)(ctx, 3).Unwrap()
	if err != nil || v != 7 {
		t.Fatalf("expected 7, got %v (%v)", v, err)
	}
}

func TestRetry_EventuallySucceeds(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	opts := RetryOpts{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		attempts++
		if attempts < 3 {
			return Err[int](errors.New("transient"))
		}
		return Ok(attempts)
	})
	v, err := r.Unwrap()
	if err != nil || v != 3 {
		t.Fatalf("expected success on attempt 3, got %v (%v)", v, err)
	}
}

func TestRetry_Exhausted(t *testing.T) {
	ctx := context.Background()
	opts := RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Err[int](errors.New("permanent"))
	})
	if r.IsOk() {
		t.Fatal("expected exhausted retry to fail")
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := RetryOpts{MaxAttempts: 5, InitialWait: time.Second, MaxWait: time.Second}
	r := Retry(ctx, opts, func(context.Context) Result[int] {
		return Err[int](errors.New("fail"))
	})
	_, err := r.Unwrap()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestParMapResult_PreservesOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := ParMapResult(items, 2, func(n int) Result[int] { return Ok(n * n) })
	vals, err := Collect(results).Unwrap()
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range vals {
		if v != items[i]*items[i] {
			t.Errorf("index %d: got %d", i, v)
		}
	}
}

func TestChunk(t *testing.T) {
	chunks := Chunk([]int{1, 2, 3, 4, 5}, 2)
	if len(chunks) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunks: %v", chunks)
	}
	if Chunk([]int{1}, 0) != nil {
		t.Error("n <= 0 should return nil")
	}
}
