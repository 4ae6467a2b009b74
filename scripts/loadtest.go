//go:build ignore

// Loadtest drives concurrent traffic through the gateway and reports
// throughput, latency percentiles and status codes per path. Mixing a fast and
// a slow path shows whether slow backends hold up fast ones.
//
// Usage:
//
//	go run loadtest.go -gateway http://127.0.0.1:3014 -paths /data/users,/chat/send -requests 1000
//	go run loadtest.go -paths "/data/users,/chat/slow?delay=3s" -concurrency 50 -out summary.json
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

type pathStats struct {
	Statuses  map[int]int     `json:"statuses"`
	Errors    int             `json:"errors"`
	Latencies []time.Duration `json:"-"`
}

type pathSummary struct {
	Total    int         `json:"total"`
	Statuses map[int]int `json:"statuses"`
	Errors   int         `json:"errors"`
	P50      float64     `json:"p50_ms"`
	P90      float64     `json:"p90_ms"`
	P99      float64     `json:"p99_ms"`
	Max      float64     `json:"max_ms"`
}

func main() {
	var (
		gateway     = flag.String("gateway", "http://127.0.0.1:3014", "Gateway base URL")
		paths       = flag.String("paths", "/data/,/chat/", "Comma-separated request paths, used round robin")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		method      = flag.String("method", http.MethodGet, "HTTP method")
		body        = flag.String("body", "", "Request body")
		timeout     = flag.Duration("timeout", 30*time.Second, "Client-side timeout per request")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	targets := strings.Split(*paths, ",")
	client := &http.Client{Timeout: *timeout}

	var mutex sync.Mutex
	stats := make(map[string]*pathStats, len(targets))
	for _, p := range targets {
		stats[p] = &pathStats{Statuses: make(map[int]int)}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	testStart := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				path := targets[idx%len(targets)]

				req, err := http.NewRequest(*method, *gateway+path, bytes.NewBufferString(*body))
				if err != nil {
					fmt.Fprintf(os.Stderr, "bad request %q: %v\n", path, err)
					os.Exit(1)
				}
				if *body != "" {
					req.Header.Set("Content-Type", "application/json")
				}

				start := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(start)

				mutex.Lock()
				s := stats[path]
				s.Latencies = append(s.Latencies, dur)
				if err != nil {
					s.Errors++
				} else {
					s.Statuses[resp.StatusCode]++
				}
				mutex.Unlock()

				if err == nil {
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	elapsed := time.Since(testStart)
	throughput := float64(*requests) / elapsed.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Gateway: %s\n", *gateway)
	fmt.Printf("Requests: %s  Concurrency: %d\n", humanize.Comma(int64(*requests)), *concurrency)
	fmt.Printf("Duration: %v  Throughput: %s req/s\n", elapsed.Round(time.Millisecond), humanize.FormatFloat("#,###.##", throughput))

	summaries := make(map[string]pathSummary, len(targets))
	failed := false
	for _, path := range targets {
		s := stats[path]
		sum := summarize(s)
		summaries[path] = sum

		fmt.Printf("\n%s -> total=%d errors=%d p50=%.1fms p90=%.1fms p99=%.1fms max=%.1fms\n",
			path, sum.Total, sum.Errors, sum.P50, sum.P90, sum.P99, sum.Max)

		codes := make([]int, 0, len(s.Statuses))
		for code := range s.Statuses {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			fmt.Printf("  %d %s -> %d\n", code, http.StatusText(code), s.Statuses[code])
			if code >= http.StatusInternalServerError {
				failed = true
			}
		}
		if s.Errors > 0 {
			failed = true
		}
	}

	if *outJSON != "" {
		report := map[string]any{
			"gateway":        *gateway,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"duration_ms":    elapsed.Milliseconds(),
			"throughput_rps": throughput,
			"paths":          summaries,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failed {
		os.Exit(2)
	}
}

func summarize(s *pathStats) pathSummary {
	sum := pathSummary{
		Total:    len(s.Latencies),
		Statuses: s.Statuses,
		Errors:   s.Errors,
	}
	if len(s.Latencies) == 0 {
		return sum
	}

	tmp := make([]time.Duration, len(s.Latencies))
	copy(tmp, s.Latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })

	pick := func(p float64) float64 {
		return float64(tmp[int(float64(len(tmp)-1)*p)].Microseconds()) / 1000
	}
	sum.P50 = pick(0.50)
	sum.P90 = pick(0.90)
	sum.P99 = pick(0.99)
	sum.Max = pick(1)
	return sum
}
