package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hackgods/clinic-agenda/internal/calendar"
	"github.com/hackgods/clinic-agenda/internal/catalog"
	"github.com/hackgods/clinic-agenda/internal/config"
	"github.com/hackgods/clinic-agenda/internal/db"
	"github.com/hackgods/clinic-agenda/internal/logger"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	StatusRatio  float64
	ReadRatio    float64
	Days         int
	PatientLimit int
	// RPS caps requests per second across all workers, 0 means unlimited.
	RPS         float64
	PostgresDSN string
	Location    *time.Location
}

// DataPool holds the ids workers draw from. Few days and rooms against many
// workers keeps contention on the same resource-day locks high.
type DataPool struct {
	Patients      []string
	Psychologists []string
	Rooms         []string
	Dates         []string
	mu            sync.RWMutex
	appointments  []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Busy      int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeBusy
	outcomeError
)

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case outcomeBusy:
		atomic.AddInt64(&om.Busy, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := append([]time.Duration(nil), om.Latencies...)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return sum / time.Duration(len(latencies)), pct(50), pct(95), latencies[len(latencies)-1]
}

type Metrics struct {
	Booking OperationMetrics
	Status  OperationMetrics
	Agenda  OperationMetrics
	Slots   OperationMetrics
	Events  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	limiter *rate.Limiter
	log     zerolog.Logger
}

func main() {
	log := logger.New("simulate", "info", true, "")

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	log.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Float64("booking", cfg.BookingRatio).
		Float64("status", cfg.StatusRatio).
		Float64("read", cfg.ReadRatio).
		Float64("rps", cfg.RPS).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, db.Options{DSN: cfg.PostgresDSN, AppName: "clinic-agenda-simulate"})
	if err != nil {
		log.Fatal().Err(err).Msg("connect postgres")
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	log.Info().
		Int("patients", len(dataPool.Patients)).
		Int("psychologists", len(dataPool.Psychologists)).
		Strs("dates", dataPool.Dates).
		Msg("data pool loaded")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Workers)
	}

	sim := &Simulator{
		config:  cfg,
		pool:    dataPool,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		log:     log,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() (SimConfig, error) {
	base, err := config.Load()
	if err != nil {
		return SimConfig{}, err
	}

	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		StatusRatio:  getFloat("SIM_STATUS_RATIO", 0.1),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.4),
		Days:         getInt("SIM_DAYS", 2),
		PatientLimit: getInt("SIM_PATIENT_LIMIT", 2000),
		RPS:          getFloat("SIM_RPS", 0),
		PostgresDSN:  base.PostgresDSN,
		Location:     base.Location,
	}

	if cfg.Workers <= 0 {
		return SimConfig{}, errors.New("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return SimConfig{}, errors.New("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return SimConfig{}, errors.New("SIM_DAYS must be > 0")
	}
	if cfg.RPS < 0 {
		return SimConfig{}, errors.New("SIM_RPS must be >= 0")
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.StatusRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.StatusRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg, nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	var err error
	dp.Patients, err = loadIDs(ctx, pool, `SELECT id FROM patients LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	dp.Psychologists, err = loadIDs(ctx, pool, `SELECT id FROM psychologists LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load psychologists: %w", err)
	}
	if len(dp.Patients) == 0 || len(dp.Psychologists) == 0 {
		return nil, errors.New("no patients or psychologists loaded, run cmd/seed first")
	}

	for _, r := range catalog.Default().Rooms() {
		if r.Available {
			dp.Rooms = append(dp.Rooms, r.ID)
		}
	}

	// Start tomorrow so every generated time is in the future.
	tomorrow := calendar.StartOfDay(time.Now().In(cfg.Location)).AddDate(0, 0, 1)
	for d := 0; d < cfg.Days; d++ {
		dp.Dates = append(dp.Dates, calendar.FormatDateToString(tomorrow.AddDate(0, 0, d)))
	}
	return dp, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]string, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
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
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.StatusRatio:
			s.doConfirm(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doRead(ctx, &s.metrics.Agenda, "/api/v1/agenda", url.Values{"date": {s.pick(rng, s.pool.Dates)}})
			case 1:
				s.doRead(ctx, &s.metrics.Slots, "/api/v1/rooms/slots", url.Values{
					"date": {s.pick(rng, s.pool.Dates)},
					"room": {s.pick(rng, s.pool.Rooms)},
				})
			case 2:
				s.doRead(ctx, &s.metrics.Events, "/api/v1/calendar/events", url.Values{"date": {s.pick(rng, s.pool.Dates)}})
			}
		}
	}
}

func (s *Simulator) pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	body, _ := json.Marshal(map[string]any{
		"patientId":      s.pick(rng, s.pool.Patients),
		"psychologistId": s.pick(rng, s.pool.Psychologists),
		"date":           s.pick(rng, s.pool.Dates),
		"time":           fmt.Sprintf("%02d:%02d", 8+rng.Intn(10), 30*rng.Intn(2)),
		"duration":       60,
		"type":           "in_person",
		"roomId":         s.pick(rng, s.pool.Rooms),
	})

	start := time.Now()
	resp, err := s.post(ctx, "/api/v1/appointments", body)
	latency := time.Since(start)
	if err != nil {
		s.metrics.Booking.Record(latency, outcomeError)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		var created struct {
			ID string `json:"id"`
		}
		if json.NewDecoder(resp.Body).Decode(&created) == nil && created.ID != "" {
			s.pool.AddAppointment(created.ID)
		}
		s.metrics.Booking.Record(latency, outcomeSuccess)
	case http.StatusConflict:
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "resource_busy" {
			s.metrics.Booking.Record(latency, outcomeBusy)
		} else {
			s.metrics.Booking.Record(latency, outcomeConflict)
		}
	default:
		s.metrics.Booking.Record(latency, outcomeError)
	}
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.post(ctx, "/api/v1/appointments/"+id+"/status", []byte(`{"status":"confirmed"}`))
	latency := time.Since(start)
	if err != nil {
		s.metrics.Status.Record(latency, outcomeError)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		s.metrics.Status.Record(latency, outcomeSuccess)
	case http.StatusConflict:
		s.metrics.Status.Record(latency, outcomeConflict)
	default:
		s.metrics.Status.Record(latency, outcomeError)
	}
}

func (s *Simulator) doRead(ctx context.Context, om *OperationMetrics, path string, q url.Values) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		om.Record(time.Since(start), outcomeError)
		return
	}
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		om.Record(latency, outcomeError)
		return
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		om.Record(latency, outcomeSuccess)
	} else {
		om.Record(latency, outcomeError)
	}
}

func (s *Simulator) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.client.Do(req)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Dates: %s\n\n", strings.Join(s.pool.Dates, ", "))

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Status)
	printOperationReport("Agenda", &s.metrics.Agenda)
	printOperationReport("Room slots", &s.metrics.Slots)
	printOperationReport("Calendar events", &s.metrics.Events)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	share := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	success := atomic.LoadInt64(&om.Success)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, share(success))
	if n := atomic.LoadInt64(&om.Conflict); n > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", n, share(n))
	}
	if n := atomic.LoadInt64(&om.Busy); n > 0 {
		fmt.Printf("  Lock busy: %d (%.1f%%)\n", n, share(n))
	}
	if n := atomic.LoadInt64(&om.Error); n > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", n, share(n))
	}

	avg, p50, p95, max := om.Stats()
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
