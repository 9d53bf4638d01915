package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testLimiter(limits map[Category]Limit) (*MemoryLimiter, *time.Time) {
	l := NewMemoryLimiter(limits)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiter_Conservation(t *testing.T) {
	l, now := testLimiter(map[Category]Limit{
		CategoryAuth: {Capacity: 5, Window: time.Minute},
	})
	ctx := context.Background()

	// exactamente C requests dentro de la ventana: todos pasan
	for i := 0; i < 5; i++ {
		res, err := l.Allow(ctx, "1.2.3.4", CategoryAuth)
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d denied, want admitted", i+1)
		}
	}

	// el C+1-ésimo se rechaza
	res, err := l.Allow(ctx, "1.2.3.4", CategoryAuth)
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if res.Allowed {
		t.Fatal("request C+1 admitted, want denied")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v, want > 0", res.RetryAfter)
	}

	// pasada la ventana completa el bucket vuelve a estar lleno
	*now = now.Add(time.Minute)
	res, _ = l.Allow(ctx, "1.2.3.4", CategoryAuth)
	if !res.Allowed {
		t.Fatal("request after full window denied, want admitted")
	}
}

func TestMemoryLimiter_PartialRefill(t *testing.T) {
	l, now := testLimiter(map[Category]Limit{
		CategoryAuth: {Capacity: 4, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		l.Allow(ctx, "k", CategoryAuth)
	}
	if res, _ := l.Allow(ctx, "k", CategoryAuth); res.Allowed {
		t.Fatal("bucket agotado admitió un request")
	}

	// 15s = 1 token a razón de 4/min
	*now = now.Add(15 * time.Second)
	if res, _ := l.Allow(ctx, "k", CategoryAuth); !res.Allowed {
		t.Fatal("refill parcial no otorgó el token esperado")
	}
	if res, _ := l.Allow(ctx, "k", CategoryAuth); res.Allowed {
		t.Fatal("segundo request tras refill parcial debía rechazarse")
	}
}

func TestMemoryLimiter_KeysIndependent(t *testing.T) {
	l, _ := testLimiter(map[Category]Limit{
		CategoryOTP: {Capacity: 1, Window: time.Minute},
	})
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "a", CategoryOTP); !res.Allowed {
		t.Fatal("key a denied")
	}
	if res, _ := l.Allow(ctx, "a", CategoryOTP); res.Allowed {
		t.Fatal("key a should be exhausted")
	}
	// otra key tiene su propio bucket
	if res, _ := l.Allow(ctx, "b", CategoryOTP); !res.Allowed {
		t.Fatal("key b denied")
	}
	// misma key, otra categoría: bucket independiente
	l.limits[CategoryGeneral] = Limit{Capacity: 1, Window: time.Minute}
	if res, _ := l.Allow(ctx, "a", CategoryGeneral); !res.Allowed {
		t.Fatal("key a general denied")
	}
}

func TestMemoryLimiter_ConcurrentConsume(t *testing.T) {
	l, _ := testLimiter(map[Category]Limit{
		CategoryAuth: {Capacity: 50, Window: time.Minute},
	})
	ctx := context.Background()

	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, "shared", CategoryAuth)
			if err == nil && res.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	if admitted != 50 {
		t.Fatalf("admitted = %d, want exactly 50", admitted)
	}
}

func TestMemoryLimiter_UnknownCategoryFallsBack(t *testing.T) {
	l, _ := testLimiter(map[Category]Limit{
		CategoryGeneral: {Capacity: 2, Window: time.Minute},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if res, _ := l.Allow(ctx, "x", Category("unknown")); !res.Allowed {
			t.Fatal("fallback to general denied")
		}
	}
	if res, _ := l.Allow(ctx, "x", Category("unknown")); res.Allowed {
		t.Fatal("fallback should share the general limit")
	}
}
