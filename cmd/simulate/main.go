// Command simulate hammers the availability API with range and single-day
// queries for the same dates and checks that both call sites agree.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-availability/internal/availability"
	"github.com/hackgods/clinic-availability/internal/calendar"
	"github.com/hackgods/clinic-availability/internal/config"
	"github.com/hackgods/clinic-availability/internal/db"
	"github.com/hackgods/clinic-availability/internal/logging"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	MaxRange    int // days per range query
	Horizon     int // days ahead a query may start
	DoctorRatio float64
	PostgresDSN string
	Timezone    *time.Location
}

type DataPool struct {
	Orgs    []uuid.UUID
	Doctors map[uuid.UUID][]uuid.UUID
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, rejected bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if rejected {
		atomic.AddInt64(&om.Rejected, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]

	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	idx := n * p / 100
	if idx >= n {
		idx = n - 1
	}
	return idx
}

type Metrics struct {
	RangeQuery OperationMetrics
	DayQuery   OperationMetrics

	ComparedDates  int64
	Mismatches     int64
	InvalidResults int64
	CachedResults  int64
}

type Simulator struct {
	config    SimConfig
	pool      *DataPool
	client    *http.Client
	validator *availability.Validator
	logger    zerolog.Logger
	metrics   Metrics
}

var simCfg SimConfig

var rootCmd = &cobra.Command{
	Use:          "simulate",
	Short:        "Check range and single-day availability agree under load",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(simCfg)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&simCfg.APIBaseURL, "api", "http://localhost:8080", "API base URL")
	f.DurationVar(&simCfg.Duration, "duration", 30*time.Second, "how long to run")
	f.IntVar(&simCfg.Workers, "workers", 10, "concurrent workers")
	f.IntVar(&simCfg.MaxRange, "max-range", 7, "days per range query")
	f.IntVar(&simCfg.Horizon, "horizon", 21, "days ahead a query may start")
	f.Float64Var(&simCfg.DoctorRatio, "doctor-ratio", 0.3, "share of queries filtered by doctor")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg SimConfig) error {
	baseCfg, err := config.Load()
	logger := logging.New(baseCfg.Env, baseCfg.LogLevel)
	if err != nil {
		return fmt.Errorf("load base config: %w", err)
	}
	cfg.PostgresDSN = baseCfg.PostgresDSN
	cfg.Timezone = baseCfg.ClinicTimezone

	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Int("max_range", cfg.MaxRange).
		Int("horizon", cfg.Horizon).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool)
	if err != nil {
		return fmt.Errorf("load data pool: %w", err)
	}

	logger.Info().Int("organizations", len(dataPool.Orgs)).Msg("data pool loaded")

	sim := &Simulator{
		config:    cfg,
		pool:      dataPool,
		client:    &http.Client{Timeout: 10 * time.Second},
		validator: availability.NewValidator(nil, nil),
		logger:    logger,
	}

	sim.Run()
	sim.PrintReport()

	mismatches := atomic.LoadInt64(&sim.metrics.Mismatches)
	invalid := atomic.LoadInt64(&sim.metrics.InvalidResults)
	if mismatches > 0 || invalid > 0 {
		return fmt.Errorf("consistency check failed: %d mismatches, %d invalid responses", mismatches, invalid)
	}
	return nil
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.MaxRange <= 0 || cfg.Horizon <= 0 {
		return fmt.Errorf("--max-range and --horizon must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool) (*DataPool, error) {
	dataPool := &DataPool{Doctors: make(map[uuid.UUID][]uuid.UUID)}

	rows, err := pool.Query(ctx, `SELECT organization_id, id FROM doctors ORDER BY organization_id`)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var org, doctor uuid.UUID
		if err := rows.Scan(&org, &doctor); err != nil {
			return nil, err
		}
		if _, ok := dataPool.Doctors[org]; !ok {
			dataPool.Orgs = append(dataPool.Orgs, org)
		}
		dataPool.Doctors[org] = append(dataPool.Doctors[org], doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Orgs) == 0 {
		return nil, fmt.Errorf("no doctors loaded, run the seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.checkConsistency(ctx, rng)
		}
	}
}

// checkConsistency fetches a random range, then re-fetches one of its dates
// on its own and compares the two readings.
func (s *Simulator) checkConsistency(ctx context.Context, rng *rand.Rand) {
	org := s.pool.Orgs[rng.Intn(len(s.pool.Orgs))]
	today := calendar.FromTime(time.Now().In(s.config.Timezone))
	start := today.AddDays(rng.Intn(s.config.Horizon))
	end := start.AddDays(rng.Intn(s.config.MaxRange))

	params := url.Values{}
	// Staff bypasses minimum notice, so "now" moving between the two calls
	// cannot flip a slot.
	params.Set("role", "staff")
	if rng.Float64() < s.config.DoctorRatio {
		doctors := s.pool.Doctors[org]
		params.Set("doctor_id", doctors[rng.Intn(len(doctors))].String())
	}

	params.Set("start_date", start.String())
	params.Set("end_date", end.String())
	ranged, ok := s.fetch(ctx, org, params, &s.metrics.RangeQuery)
	if !ok {
		return
	}
	s.checkValidation("range", ranged)

	day := start.AddDays(rng.Intn(calendar.DaysBetween(start, end) + 1)).String()
	params.Set("start_date", day)
	params.Set("end_date", day)
	single, ok := s.fetch(ctx, org, params, &s.metrics.DayQuery)
	if !ok {
		return
	}
	s.checkValidation("single", single)

	atomic.AddInt64(&s.metrics.ComparedDates, 1)
	a, b := ranged.Availability[day], single.Availability[day]
	if a.TotalSlots != b.TotalSlots || a.AvailableSlots != b.AvailableSlots {
		atomic.AddInt64(&s.metrics.Mismatches, 1)
		s.logger.Error().
			Str("organization_id", org.String()).
			Str("date", day).
			Int("range_total", a.TotalSlots).
			Int("range_available", a.AvailableSlots).
			Int("single_total", b.TotalSlots).
			Int("single_available", b.AvailableSlots).
			Msg("range and single-day availability disagree")
	}
}

type availabilityResponse struct {
	Availability map[string]availability.DayAvailability `json:"availability"`
	Validation   availability.ValidationResult           `json:"validation"`
	Cached       bool                                    `json:"cached"`
}

func (s *Simulator) fetch(ctx context.Context, org uuid.UUID, params url.Values, om *OperationMetrics) (*availabilityResponse, bool) {
	start := time.Now()

	u := fmt.Sprintf("%s/organizations/%s/availability?%s", s.config.APIBaseURL, org, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false
	}

	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			om.Record(latency, false, false)
		}
		return nil, false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		om.Record(latency, false, true)
		return nil, false
	default:
		om.Record(latency, false, false)
		return nil, false
	}

	var out availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		om.Record(latency, false, false)
		return nil, false
	}
	om.Record(latency, true, false)
	if out.Cached {
		atomic.AddInt64(&s.metrics.CachedResults, 1)
	}
	return &out, true
}

// checkValidation re-validates a response client-side; the server's own
// verdict must agree.
func (s *Simulator) checkValidation(source string, r *availabilityResponse) {
	days := make([]availability.DayAvailability, 0, len(r.Availability))
	for _, d := range r.Availability {
		days = append(days, d)
	}
	res := s.validator.ValidateAvailabilityData(days, source)
	if res.IsValid && r.Validation.IsValid {
		return
	}
	atomic.AddInt64(&s.metrics.InvalidResults, 1)
	s.logger.Error().
		Str("source", source).
		Bool("server_valid", r.Validation.IsValid).
		Int("errors", len(res.Errors)).
		Msg("integrity violation in availability response")
}

func (s *Simulator) PrintReport() {
	rule := strings.Repeat("=", 80)
	fmt.Println("\n" + rule)
	fmt.Println("AVAILABILITY CONSISTENCY REPORT")
	fmt.Println(rule)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Range query", &s.metrics.RangeQuery)
	printOperationReport("Single-day query", &s.metrics.DayQuery)

	fmt.Println("Consistency:")
	fmt.Printf("  Dates compared: %d\n", atomic.LoadInt64(&s.metrics.ComparedDates))
	fmt.Printf("  Mismatches: %d\n", atomic.LoadInt64(&s.metrics.Mismatches))
	fmt.Printf("  Invalid responses: %d\n", atomic.LoadInt64(&s.metrics.InvalidResults))
	fmt.Printf("  Cached responses: %d\n", atomic.LoadInt64(&s.metrics.CachedResults))
	fmt.Println()
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if rejected > 0 {
		fmt.Printf("  Rejected (429): %d (%.1f%%)\n", rejected, float64(rejected)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
