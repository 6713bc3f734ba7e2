// Command graphbench seeds personas and measures follow, list and cascade
// delete latency against the configured backends.
//
//	N=10000 CONC=8 PAGE=50 go run ./cmd/graphbench
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/persona-graph/config"
	"github.com/d60-Lab/persona-graph/internal/app"
	"github.com/d60-Lab/persona-graph/internal/model"
	"github.com/d60-Lab/persona-graph/internal/service"
	"github.com/d60-Lab/persona-graph/pkg/logger"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func main() {
	cfg := must(config.Load())
	_ = logger.Init("warn", cfg.Log.Env)
	ctx := context.Background()
	a := must(app.New(ctx, cfg))
	defer a.Close(ctx)

	n := envInt("N", 10000)
	conc := envInt("CONC", 1)
	page := envInt("PAGE", 50)
	run := strconv.FormatInt(time.Now().Unix(), 36)

	// celebrity persona; everyone else follows it
	celeb := must(a.Personas.Create(ctx, "bench_"+run, "celeb_"+run, "Celebrity"))
	fans := make([]*model.Persona, n)
	t0 := time.Now()
	for i := range fans {
		fans[i] = must(a.Personas.Create(ctx, "bench_"+run, fmt.Sprintf("fan_%s_%d", run, i), "Fan"))
	}
	seedDur := time.Since(t0)

	lat := make([]time.Duration, n)
	g := new(errgroup.Group)
	g.SetLimit(conc)
	t1 := time.Now()
	for i := range fans {
		i := i
		g.Go(func() error {
			st := time.Now()
			_, err := a.Graph.Follow(ctx, fans[i].ID, celeb.ID)
			lat[i] = time.Since(st)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}
	followDur := time.Since(t1)

	// duplicate follows must all be rejected by the store
	dupRejected := 0
	for i := 0; i < n && i < 100; i++ {
		if _, err := a.Graph.Follow(ctx, fans[i].ID, celeb.ID); err != nil {
			dupRejected++
		}
	}

	q0 := time.Now()
	views := must(a.Graph.Followers(ctx, celeb.Handle, 1, page))
	followersDur := time.Since(q0)

	q1 := time.Now()
	_ = must(a.Graph.Following(ctx, fans[0].Handle, 1, page))
	followingDur := time.Since(q1)

	d0 := time.Now()
	if err := a.Coordinator.DeletePersona(ctx, service.ActorContext{AccountUsername: celeb.Owner}, celeb.ID); err != nil {
		panic(err)
	}
	cascadeDur := time.Since(d0)
	left := must(a.Graph.ListFollowers(ctx, celeb.ID, 0, 0))

	fmt.Printf("N=%d, CONC=%d, PAGE=%d, backend=%s\n", n, conc, page, cfg.Graph.Backend)
	fmt.Printf("Seed personas total: %v, per op: %v\n", seedDur, seedDur/time.Duration(n))
	fmt.Printf("Follow total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		followDur, followDur/time.Duration(n), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Duplicate follows rejected: %d\n", dupRejected)
	fmt.Printf("Query followers(%d) latency: %v, returned: %d\n", page, followersDur, len(views))
	fmt.Printf("Query following(%d) latency: %v\n", page, followingDur)
	fmt.Printf("Cascade delete of %d edges: %v, remaining: %d\n", n, cascadeDur, len(left))

	c0 := time.Now()
	if err := a.Coordinator.DeleteAccount(ctx, "bench_"+run); err != nil {
		panic(err)
	}
	fmt.Printf("Account cleanup of %d personas: %v\n", n, time.Since(c0))
}
