// Benchmark tool for testing MuleCatcher against synthetic mule-ring data.
//
// Usage:
//   go run cmd/benchmark/main.go -url http://localhost:8000
//   go run cmd/benchmark/main.go -csv /path/to/transactions.csv -runs 5
//
// This tool:
//  1. Generates a synthetic transaction CSV with seeded laundering rings
//     (or reads an existing CSV)
//  2. Uploads it to the scoring service's /analyze endpoint
//  3. Checks that the seeded ring accounts come back flagged
//  4. Reports detection recall and end-to-end latency percentiles
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"time"
)

// AnalyzeResponse mirrors the scoring service's wire format.
type AnalyzeResponse struct {
	SuspiciousAccounts []struct {
		AccountID        string   `json:"account_id"`
		SuspicionScore   float64  `json:"suspicion_score"`
		DetectedPatterns []string `json:"detected_patterns"`
	} `json:"suspicious_accounts"`
	Rings []struct {
		RingID   string   `json:"ring_id"`
		Accounts []string `json:"accounts"`
		Pattern  string   `json:"pattern"`
	} `json:"rings"`
	Summary struct {
		TotalAccounts     int     `json:"total_accounts"`
		TotalTransactions int     `json:"total_transactions"`
		ProcessingTime    float64 `json:"processing_time"`
	} `json:"summary"`
}

func main() {
	csvPath := flag.String("csv", "", "Path to an existing transactions CSV (empty = generate)")
	baseURL := flag.String("url", "http://localhost:8000", "Scoring service base URL")
	accounts := flag.Int("accounts", 500, "Background accounts in the generated dataset")
	rings := flag.Int("rings", 5, "Seeded cycle rings in the generated dataset")
	runs := flag.Int("runs", 3, "Number of upload runs for latency sampling")
	seed := flag.Int64("seed", 42, "RNG seed for the generated dataset")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        MULECATCHER BENCHMARK - Ring Detection Recall          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nService URL: %s\n", *baseURL)
	fmt.Printf("Runs:        %d\n", *runs)

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: scoring service not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	var data []byte
	var seeded map[string]bool
	if *csvPath != "" {
		var err error
		data, err = os.ReadFile(*csvPath)
		if err != nil {
			fmt.Printf("ERROR: failed to read %s: %v\n", *csvPath, err)
			os.Exit(1)
		}
		fmt.Printf("CSV File:    %s (%d bytes)\n\n", *csvPath, len(data))
	} else {
		data, seeded = generateDataset(*accounts, *rings, *seed)
		fmt.Printf("Generated:   %d background accounts, %d rings, %d seeded mules\n\n",
			*accounts, *rings, len(seeded))
	}

	var latencies []time.Duration
	var last *AnalyzeResponse
	for i := 0; i < *runs; i++ {
		start := time.Now()
		resp, err := analyze(*baseURL, data)
		elapsed := time.Since(start)
		if err != nil {
			fmt.Printf("run %d failed: %v\n", i+1, err)
			os.Exit(1)
		}
		latencies = append(latencies, elapsed)
		last = resp
		fmt.Printf("run %d: %d flagged, %d rings, %.0fms\n",
			i+1, len(resp.SuspiciousAccounts), len(resp.Rings), float64(elapsed.Milliseconds()))
	}

	fmt.Println("\n--- Results ---")
	fmt.Printf("Accounts analyzed:    %d\n", last.Summary.TotalAccounts)
	fmt.Printf("Transactions:         %d\n", last.Summary.TotalTransactions)
	fmt.Printf("Flagged accounts:     %d\n", len(last.SuspiciousAccounts))
	fmt.Printf("Rings detected:       %d\n", len(last.Rings))

	if seeded != nil {
		caught := 0
		for _, acc := range last.SuspiciousAccounts {
			if seeded[acc.AccountID] {
				caught++
			}
		}
		recall := 100 * float64(caught) / float64(len(seeded))
		fmt.Printf("Seeded mules caught:  %d/%d (%.1f%% recall)\n", caught, len(seeded), recall)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("Latency min/median/max: %v / %v / %v\n",
		latencies[0], latencies[len(latencies)/2], latencies[len(latencies)-1])
}

// generateDataset builds a CSV of random background transfers plus seeded
// three-account cycle rings. Returns the CSV bytes and the seeded mule set.
func generateDataset(background, ringCount int, seed int64) ([]byte, map[string]bool) {
	rng := rand.New(rand.NewSource(seed))
	var buf bytes.Buffer
	buf.WriteString("transaction_id,sender_account,receiver_account,amount,timestamp\n")

	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	txID := 0
	writeTx := func(from, to string, amount float64, at time.Time) {
		txID++
		fmt.Fprintf(&buf, "tx_%06d,%s,%s,%.2f,%s\n",
			txID, from, to, amount, at.Format("2006-01-02 15:04:05"))
	}

	// Background noise: one-off transfers between random accounts.
	for i := 0; i < background; i++ {
		from := fmt.Sprintf("bg_%04d", rng.Intn(background))
		to := fmt.Sprintf("bg_%04d", rng.Intn(background))
		if from == to {
			continue
		}
		writeTx(from, to, 100+rng.Float64()*5000, base.Add(time.Duration(rng.Intn(72))*time.Hour))
	}

	// Seeded rings: money circulating through three mules within a day.
	seeded := make(map[string]bool)
	for r := 0; r < ringCount; r++ {
		a := fmt.Sprintf("mule_%03d_a", r)
		b := fmt.Sprintf("mule_%03d_b", r)
		c := fmt.Sprintf("mule_%03d_c", r)
		seeded[a], seeded[b], seeded[c] = true, true, true

		at := base.Add(time.Duration(r) * time.Hour)
		amount := 40000 + rng.Float64()*20000
		writeTx(a, b, amount, at)
		writeTx(b, c, amount*0.98, at.Add(2*time.Hour))
		writeTx(c, a, amount*0.96, at.Add(4*time.Hour))
	}

	return buf.Bytes(), seeded
}

func analyze(baseURL string, data []byte) (*AnalyzeResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "benchmark.csv")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, baseURL+"/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	client := &http.Client{Timeout: 2 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, payload)
	}

	var out AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func checkHealth(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}
