package httpx

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (s statusErr) Error() string        { return fmt.Sprintf("status %d", int(s)) }
func (s statusErr) HTTPStatusCode() int { return int(s) }

func TestIsRetryableError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":       {nil, false},
		"canceled":  {context.Canceled, false},
		"deadline":  {fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		"429":       {statusErr(429), true},
		"529":       {fmt.Errorf("x: %w", statusErr(529)), true},
		"400":       {statusErr(400), false},
		"arbitrary": {fmt.Errorf("nope"), false},
	}
	for name, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", name, got, tc.want)
		}
	}
}

func TestRetryAfter(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "120")
	if got := RetryAfter(h, time.Second, 30*time.Second); got != 30*time.Second {
		t.Fatalf("cap not applied: %v", got)
	}
	if got := RetryAfter(nil, 2*time.Second, 0); got != 2*time.Second {
		t.Fatalf("fallback not used: %v", got)
	}
}

func TestReadLimited(t *testing.T) {
	b, truncated, err := ReadLimited(bytes.NewReader([]byte("abcdef")), 4)
	if err != nil || !truncated || string(b) != "abcd" {
		t.Fatalf("got %q %v %v", b, truncated, err)
	}
	b, truncated, _ = ReadLimited(bytes.NewReader([]byte("ab")), 4)
	if truncated || string(b) != "ab" {
		t.Fatalf("got %q %v", b, truncated)
	}
}
