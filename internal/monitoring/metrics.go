package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type Metrics struct {
	mu              sync.RWMutex
	RequestCount    int64            `json:"request_count"`
	RequestDuration time.Duration    `json:"avg_request_duration_ms"`
	ActiveRequests  int64            `json:"active_requests"`
	ErrorCount      int64            `json:"error_count"`
	StatusCodes     map[string]int64 `json:"status_codes"`
	Endpoints       map[string]int64 `json:"endpoint_calls"`
	StartTime       time.Time        `json:"start_time"`
	LastRequest     time.Time        `json:"last_request"`
	totalDuration   time.Duration
}

type HealthCheckFunc func(ctx context.Context) error

type HealthCheck struct {
	Name    string    `json:"name"`
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	LastRun time.Time `json:"last_run"`
}

type HealthChecker struct {
	mu     sync.RWMutex
	checks map[string]HealthCheckFunc
}

var globalMetrics = &Metrics{
	StatusCodes: make(map[string]int64),
	Endpoints:   make(map[string]int64),
	StartTime:   time.Now(),
}

var globalHealthChecker = &HealthChecker{
	checks: make(map[string]HealthCheckFunc),
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		globalMetrics.mu.Lock()
		globalMetrics.ActiveRequests++
		globalMetrics.mu.Unlock()

		c.Next()

		duration := time.Since(start)
		status := fmt.Sprintf("%d", c.Writer.Status())
		endpoint := c.Request.Method + " " + c.FullPath()

		globalMetrics.mu.Lock()
		globalMetrics.ActiveRequests--
		globalMetrics.RequestCount++
		globalMetrics.totalDuration += duration
		globalMetrics.RequestDuration = globalMetrics.totalDuration / time.Duration(globalMetrics.RequestCount)
		globalMetrics.StatusCodes[status]++
		globalMetrics.Endpoints[endpoint]++
		globalMetrics.LastRequest = time.Now()
		if c.Writer.Status() >= 500 {
			globalMetrics.ErrorCount++
		}
		globalMetrics.mu.Unlock()
	}
}

func RegisterHealthCheck(name string, check HealthCheckFunc) {
	globalHealthChecker.mu.Lock()
	defer globalHealthChecker.mu.Unlock()
	globalHealthChecker.checks[name] = check
}

func HealthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	globalHealthChecker.mu.RLock()
	names := make([]string, 0, len(globalHealthChecker.checks))
	for name := range globalHealthChecker.checks {
		names = append(names, name)
	}
	globalHealthChecker.mu.RUnlock()

	status := http.StatusOK
	results := make([]HealthCheck, 0, len(names))
	for _, name := range names {
		globalHealthChecker.mu.RLock()
		check := globalHealthChecker.checks[name]
		globalHealthChecker.mu.RUnlock()

		result := HealthCheck{Name: name, Status: "ok", LastRun: time.Now()}
		if err := check(ctx); err != nil {
			result.Status = "failing"
			result.Message = err.Error()
			status = http.StatusServiceUnavailable
		}
		results = append(results, result)
	}

	c.JSON(status, gin.H{
		"status": http.StatusText(status),
		"checks": results,
	})
}

func MetricsHandler(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	globalMetrics.mu.RLock()
	defer globalMetrics.mu.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"requests":   globalMetrics,
		"uptime":     time.Since(globalMetrics.StartTime).String(),
		"goroutines": runtime.NumGoroutine(),
		"heap_bytes": mem.HeapAlloc,
	})
}
