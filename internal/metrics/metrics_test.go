package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGenerationCountsTokens(t *testing.T) {
	beforePrompt := testutil.ToFloat64(tokensTotal.WithLabelValues("prompt"))
	beforeCompl := testutil.ToFloat64(tokensTotal.WithLabelValues("completion"))

	ObserveGeneration("stop", 12, 30, 2*time.Second)

	if d := testutil.ToFloat64(tokensTotal.WithLabelValues("prompt")) - beforePrompt; d != 12 {
		t.Fatalf("prompt delta %v", d)
	}
	if d := testutil.ToFloat64(tokensTotal.WithLabelValues("completion")) - beforeCompl; d != 30 {
		t.Fatalf("completion delta %v", d)
	}
	if tps := testutil.ToFloat64(tokensPerSecond); tps != 15 {
		t.Fatalf("tokens/s = %v, want 15", tps)
	}
}

func TestFetchAndLookupCounters(t *testing.T) {
	okBefore := testutil.ToFloat64(fetchTotal.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(fetchTotal.WithLabelValues("error"))
	Fetch(nil)
	Fetch(errors.New("exit 1"))
	if testutil.ToFloat64(fetchTotal.WithLabelValues("ok"))-okBefore != 1 ||
		testutil.ToFloat64(fetchTotal.WithLabelValues("error"))-errBefore != 1 {
		t.Fatalf("fetch counters not incremented")
	}

	hitBefore := testutil.ToFloat64(locatorLookups.WithLabelValues("hit"))
	LocatorLookup("hit")
	if testutil.ToFloat64(locatorLookups.WithLabelValues("hit"))-hitBefore != 1 {
		t.Fatalf("lookup counter not incremented")
	}
}

func TestSetResources(t *testing.T) {
	SetResources(2, 3, 2)
	if v := testutil.ToFloat64(hostMemoryUsed); v != 2*1024*1024 {
		t.Fatalf("host memory gauge %v", v)
	}
	if v := testutil.ToFloat64(vramUsed); v != 3*1024*1024 {
		t.Fatalf("vram gauge %v", v)
	}
	if v := testutil.ToFloat64(activeGPUs); v != 2 {
		t.Fatalf("gpu gauge %v", v)
	}
}
