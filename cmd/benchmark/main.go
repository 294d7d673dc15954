// Benchmark tool for replaying labeled checkout data against Kestrel.
//
// Usage:
//   go run cmd/benchmark/main.go -csv /path/to/checkouts.csv -url http://localhost:8080
//
// This tool:
//   1. Reads historical checkout data (with bad-outcome labels)
//   2. Sends each checkout to Kestrel's POST /decide endpoint
//   3. Compares Kestrel's decision (APPROVE/REVIEW/DECLINE) with the labels
//   4. Reports the decision distribution plus precision and recall of DECLINE
//
// The CSV needs columns customerid, merchantname, mcc, amount and isbad;
// currency, loyaltytier, velocity24h, chargebacks12m, devicecity,
// devicecountry, geocity and geocountry are optional. The isbad column
// marks checkouts that later charged back or were confirmed fraudulent.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CheckoutRow represents one labeled historical checkout.
type CheckoutRow struct {
	RequestID      string
	CustomerID     string
	MerchantName   string
	MCC            string
	Amount         float64
	Currency       string
	LoyaltyTier    string
	Velocity24h    int
	Chargebacks12m int
	DeviceCity     string
	DeviceCountry  string
	GeoCity        string
	GeoCountry     string
	IsBad          bool
}

// DecideRequest is the Kestrel API request format.
type DecideRequest struct {
	RequestID string   `json:"requestId,omitempty"`
	Cart      Cart     `json:"cart"`
	Merchant  Merchant `json:"merchant"`
	Customer  Customer `json:"customer"`
	Device    *Device  `json:"device,omitempty"`
	Geo       *Geo     `json:"geo,omitempty"`
}

type Cart struct {
	Currency string  `json:"currency"`
	Total    float64 `json:"total"`
}

type Merchant struct {
	Name string `json:"name"`
	MCC  string `json:"mcc"`
}

type Customer struct {
	ID             string `json:"id"`
	LoyaltyTier    string `json:"loyaltyTier,omitempty"`
	Velocity24h    int    `json:"velocity24h"`
	Chargebacks12m int    `json:"chargebacks12m"`
}

type Device struct {
	Location *Geo `json:"location,omitempty"`
}

type Geo struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// DecideResponse is the Kestrel API response format.
type DecideResponse struct {
	Decision struct {
		Decision   string  `json:"decision"` // "APPROVE", "REVIEW" or "DECLINE"
		Confidence float64 `json:"confidence"`
	} `json:"decision"`
	Score struct {
		FinalScore int     `json:"finalScore"`
		PApproval  float64 `json:"pApproval"`
	} `json:"score"`
}

// Metrics tracks benchmark results.
type Metrics struct {
	// Decision distribution split by label
	DeclinedBad  int64 // Bad checkout declined (caught)
	DeclinedGood int64 // Good checkout declined (lost sale!)
	ReviewBad    int64 // Bad checkout sent to review
	ReviewGood   int64 // Good checkout sent to review
	ApprovedBad  int64 // Bad checkout approved (missed!)
	ApprovedGood int64 // Good checkout approved

	TotalProcessed int64
	TotalBad       int64
	TotalGood      int64
	TotalErrors    int64

	ProcessingTimeMs int64
}

func main() {
	// Parse flags
	csvPath := flag.String("csv", "", "Path to labeled checkout CSV file")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	limit := flag.Int("limit", 10000, "Maximum checkouts to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	badOnly := flag.Bool("bad-only", false, "Only replay bad-labeled checkouts")
	sampleRate := flag.Float64("sample", 1.0, "Sample rate for good checkouts (0.0-1.0)")
	verbose := flag.Bool("verbose", false, "Print each checkout result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: benchmark -csv /path/to/checkouts.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║         KESTREL BENCHMARK - Labeled Checkout Replay           ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nCSV File:    %s\n", *csvPath)
	fmt.Printf("Kestrel URL: %s\n", *baseURL)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Limit:       %d\n", *limit)
	fmt.Printf("Bad Only:    %v\n", *badOnly)
	fmt.Printf("Sample Rate: %.2f\n", *sampleRate)
	fmt.Println()

	// Check Kestrel is running
	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  cd kestrel && go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	// Read checkout data
	fmt.Printf("\nReading checkout data from %s...\n", *csvPath)
	checkouts, err := readCheckoutCSV(*csvPath, *limit, *badOnly, *sampleRate)
	if err != nil {
		fmt.Printf("ERROR: Failed to read CSV: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Loaded %d checkouts\n", len(checkouts))

	// Count bad vs good
	badCount := 0
	for _, row := range checkouts {
		if row.IsBad {
			badCount++
		}
	}
	fmt.Printf("  - Bad:  %d (%.2f%%)\n", badCount, 100*float64(badCount)/float64(len(checkouts)))
	fmt.Printf("  - Good: %d (%.2f%%)\n", len(checkouts)-badCount, 100*float64(len(checkouts)-badCount)/float64(len(checkouts)))

	// Run benchmark
	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(checkouts, *baseURL, *workers, *verbose)
	duration := time.Since(startTime)

	// Print results
	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readCheckoutCSV(path string, limit int, badOnly bool, sampleRate float64) ([]CheckoutRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Map column indices
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, need := range []string{"customerid", "merchantname", "mcc", "amount", "isbad"} {
		if _, ok := colIndex[need]; !ok {
			return nil, fmt.Errorf("missing required column %q", need)
		}
	}

	get := func(record []string, name string) string {
		idx, ok := colIndex[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var checkouts []CheckoutRow
	sampleCounter := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // Skip malformed rows
		}

		isBad := get(record, "isbad") == "1"

		// Apply filters
		if badOnly && !isBad {
			continue
		}

		// Sample good checkouts
		if !isBad && sampleRate < 1.0 {
			sampleCounter++
			if float64(sampleCounter%100)/100.0 >= sampleRate {
				continue
			}
		}

		amount, _ := strconv.ParseFloat(get(record, "amount"), 64)
		velocity, _ := strconv.Atoi(get(record, "velocity24h"))
		chargebacks, _ := strconv.Atoi(get(record, "chargebacks12m"))

		currency := get(record, "currency")
		if currency == "" {
			currency = "USD"
		}

		row := CheckoutRow{
			RequestID:      get(record, "requestid"),
			CustomerID:     get(record, "customerid"),
			MerchantName:   get(record, "merchantname"),
			MCC:            get(record, "mcc"),
			Amount:         amount,
			Currency:       currency,
			LoyaltyTier:    strings.ToUpper(get(record, "loyaltytier")),
			Velocity24h:    velocity,
			Chargebacks12m: chargebacks,
			DeviceCity:     get(record, "devicecity"),
			DeviceCountry:  get(record, "devicecountry"),
			GeoCity:        get(record, "geocity"),
			GeoCountry:     get(record, "geocountry"),
			IsBad:          isBad,
		}

		checkouts = append(checkouts, row)

		if limit > 0 && len(checkouts) >= limit {
			break
		}
	}

	return checkouts, nil
}

func runBenchmark(checkouts []CheckoutRow, baseURL string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	// Create work channel
	work := make(chan CheckoutRow, 100)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 10 * time.Second}

			for row := range work {
				start := time.Now()
				result, err := decideCheckout(client, baseURL, row)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)
				atomic.AddInt64(&metrics.TotalProcessed, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: %s -> %v\n", row.CustomerID, err)
					}
					continue
				}

				// Track actual labels
				if row.IsBad {
					atomic.AddInt64(&metrics.TotalBad, 1)
				} else {
					atomic.AddInt64(&metrics.TotalGood, 1)
				}

				// Split the distribution by label
				switch result.Decision.Decision {
				case "DECLINE":
					if row.IsBad {
						atomic.AddInt64(&metrics.DeclinedBad, 1)
					} else {
						atomic.AddInt64(&metrics.DeclinedGood, 1)
					}
				case "REVIEW":
					if row.IsBad {
						atomic.AddInt64(&metrics.ReviewBad, 1)
					} else {
						atomic.AddInt64(&metrics.ReviewGood, 1)
					}
				default: // APPROVE
					if row.IsBad {
						atomic.AddInt64(&metrics.ApprovedBad, 1)
					} else {
						atomic.AddInt64(&metrics.ApprovedGood, 1)
					}
				}

				if verbose {
					status := "✓"
					if (result.Decision.Decision == "DECLINE") != row.IsBad {
						status = "✗"
					}
					name := row.CustomerID
					if len(name) > 12 {
						name = name[:12]
					}
					fmt.Printf("%s %-12s | MCC: %s | Amount: $%10.2f | Bad: %-5v | Kestrel: %-7s (p=%.2f, score=%d)\n",
						status,
						name,
						row.MCC,
						row.Amount,
						row.IsBad,
						result.Decision.Decision,
						result.Score.PApproval,
						result.Score.FinalScore,
					)
				}
			}
		}()
	}

	// Send work
	for _, row := range checkouts {
		work <- row
	}
	close(work)

	// Wait for completion
	wg.Wait()

	return metrics
}

func decideCheckout(client *http.Client, baseURL string, row CheckoutRow) (*DecideResponse, error) {
	// Build request matching Kestrel's expected format
	req := DecideRequest{
		RequestID: row.RequestID,
		Cart: Cart{
			Currency: row.Currency,
			Total:    row.Amount,
		},
		Merchant: Merchant{
			Name: row.MerchantName,
			MCC:  row.MCC,
		},
		Customer: Customer{
			ID:             row.CustomerID,
			LoyaltyTier:    row.LoyaltyTier,
			Velocity24h:    row.Velocity24h,
			Chargebacks12m: row.Chargebacks12m,
		},
	}

	// Location data is optional in the dataset
	if row.DeviceCity != "" || row.DeviceCountry != "" {
		req.Device = &Device{Location: &Geo{City: row.DeviceCity, Country: row.DeviceCountry}}
	}
	if row.GeoCity != "" || row.GeoCountry != "" {
		req.Geo = &Geo{City: row.GeoCity, Country: row.GeoCountry}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/decide", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result DecideResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Bad:        %d\n", m.TotalBad)
	fmt.Printf("   Total Good:       %d\n", m.TotalGood)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	declined := m.DeclinedBad + m.DeclinedGood
	review := m.ReviewBad + m.ReviewGood
	approved := m.ApprovedBad + m.ApprovedGood
	total := declined + review + approved

	fmt.Printf("\n📊 DECISION DISTRIBUTION\n")
	if total > 0 {
		fmt.Printf("   APPROVE:  %8d (%.2f%%)\n", approved, 100*float64(approved)/float64(total))
		fmt.Printf("   REVIEW:   %8d (%.2f%%)\n", review, 100*float64(review)/float64(total))
		fmt.Printf("   DECLINE:  %8d (%.2f%%)\n", declined, 100*float64(declined)/float64(total))
	}

	fmt.Printf("\n📈 OUTCOME MATRIX\n")
	fmt.Println("                             Predicted")
	fmt.Println("                  DECLINE     REVIEW    APPROVE")
	fmt.Println("              ┌──────────┬──────────┬──────────┐")
	fmt.Printf("   Actual  B  │ %8d │ %8d │ %8d │\n", m.DeclinedBad, m.ReviewBad, m.ApprovedBad)
	fmt.Println("              ├──────────┼──────────┼──────────┤")
	fmt.Printf("           G  │ %8d │ %8d │ %8d │\n", m.DeclinedGood, m.ReviewGood, m.ApprovedGood)
	fmt.Println("              └──────────┴──────────┴──────────┘")

	// Precision and recall of DECLINE against the bad label
	truePositives := m.DeclinedBad
	falsePositives := m.DeclinedGood
	falseNegatives := m.ReviewBad + m.ApprovedBad
	trueNegatives := m.ReviewGood + m.ApprovedGood

	precision := float64(0)
	if truePositives+falsePositives > 0 {
		precision = float64(truePositives) / float64(truePositives+falsePositives)
	}

	recall := float64(0)
	if truePositives+falseNegatives > 0 {
		recall = float64(truePositives) / float64(truePositives+falseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	matrixTotal := truePositives + trueNegatives + falsePositives + falseNegatives
	if matrixTotal > 0 {
		accuracy = float64(truePositives+trueNegatives) / float64(matrixTotal)
	}

	fmt.Printf("\n🎯 DECLINE METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of declines, how many were actually bad)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of bad checkouts, how many were declined)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct predictions)\n", accuracy)

	// Detection rate analysis
	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalBad > 0 {
		declineRate := float64(m.DeclinedBad) / float64(m.TotalBad) * 100
		reviewRate := float64(m.ReviewBad) / float64(m.TotalBad) * 100
		missRate := float64(m.ApprovedBad) / float64(m.TotalBad) * 100
		fmt.Printf("   Bad Declined:      %d / %d (%.2f%%)\n", m.DeclinedBad, m.TotalBad, declineRate)
		fmt.Printf("   Bad in Review:     %d / %d (%.2f%%)\n", m.ReviewBad, m.TotalBad, reviewRate)
		fmt.Printf("   Bad Approved:      %d / %d (%.2f%%) ⚠️\n", m.ApprovedBad, m.TotalBad, missRate)
	}
	if m.TotalGood > 0 {
		lostSaleRate := float64(m.DeclinedGood) / float64(m.TotalGood) * 100
		fmt.Printf("   Good Declined:     %d / %d (%.2f%%) (lost sales)\n", m.DeclinedGood, m.TotalGood, lostSaleRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 {
		avgMs := float64(m.ProcessingTimeMs) / float64(m.TotalProcessed)
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Avg Latency:      %.2f ms\n", avgMs)
		fmt.Printf("   Throughput:       %.2f checkouts/sec\n", tps)
	}

	// Interpretation
	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - declining most bad checkouts")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but some bad checkouts slip through")
	} else if recall >= 0.5 {
		fmt.Println("   ⚠️  Moderate recall - many bad checkouts not declined")
	} else {
		fmt.Println("   ❌ Poor recall - most bad checkouts get through!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - declines are meaningful")
	} else if precision >= 0.2 {
		fmt.Println("   ⚠️  Low precision - declining too many good customers")
	} else {
		fmt.Println("   ❌ Very low precision - mostly false declines")
	}

	fmt.Println()
}
