package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/market-confidence/internal/database"
	"github.com/aristath/market-confidence/internal/di"
	"github.com/aristath/market-confidence/internal/scheduler"
)

// SystemHandlers serves process, database and job status
type SystemHandlers struct {
	log       zerolog.Logger
	databases []*database.DB
	scheduler *scheduler.Scheduler
	jobs      map[string]scheduler.Job
	started   time.Time

	// Replaced in tests
	systemStats func() (float64, float64)
}

// NewSystemHandlers creates system handlers over the container's databases and jobs
func NewSystemHandlers(log zerolog.Logger, container *di.Container, jobs *di.JobInstances) *SystemHandlers {
	h := &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		databases: container.Databases(),
		scheduler: container.Scheduler,
		jobs:      make(map[string]scheduler.Job),
		started:   time.Now(),
	}
	h.systemStats = h.getSystemStats

	if jobs != nil {
		if jobs.CacheCleanup != nil {
			h.jobs["cache-cleanup"] = jobs.CacheCleanup
		}
		if jobs.WALCheckpoint != nil {
			h.jobs["wal-checkpoint"] = jobs.WALCheckpoint
		}
	}

	return h
}

// RegisterRoutes registers system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.HandleSystemStatus)
	r.Get("/jobs", h.HandleJobsStatus)
	r.Post("/jobs/{job}", h.HandleTriggerJob)
}

// SystemStatusResponse represents the process status
type SystemStatusResponse struct {
	Status        string    `json:"status"` // "healthy" or "degraded"
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	Databases     []DBInfo  `json:"databases"`
	Jobs          []JobInfo `json:"jobs"`
	CheckedAt     string    `json:"checked_at"`
}

// DBInfo represents information about a single database
type DBInfo struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	Healthy   bool    `json:"healthy"`
}

// JobInfo represents the state of a scheduled job
type JobInfo struct {
	Name      string `json:"name"`
	Schedule  string `json:"schedule"`
	Runs      int    `json:"runs"`
	LastRun   string `json:"last_run,omitempty"`
	LastError string `json:"last_error,omitempty"`
}

// HandleSystemStatus returns CPU, RAM, uptime, database and job status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.systemStats()

	status := "healthy"
	dbs := make([]DBInfo, 0, len(h.databases))
	for _, db := range h.databases {
		info := DBInfo{Name: db.Name(), Healthy: true}
		if err := db.HealthCheck(r.Context()); err != nil {
			h.log.Warn().Err(err).Str("db", db.Name()).Msg("Database health check failed")
			info.Healthy = false
			status = "degraded"
		}
		if stats, err := db.GetStats(); err == nil {
			info.SizeMB = bytesToMB(stats.SizeBytes)
			info.WALSizeMB = bytesToMB(stats.WALSizeBytes)
		}
		dbs = append(dbs, info)
	}

	h.writeJSON(w, http.StatusOK, SystemStatusResponse{
		Status:        status,
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		Databases:     dbs,
		Jobs:          h.jobInfo(),
		CheckedAt:     time.Now().Format(time.RFC3339),
	})
}

// HandleJobsStatus returns the state of every scheduled job
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": h.jobInfo(),
	})
}

// HandleTriggerJob runs a maintenance job immediately
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "job")
	job, ok := h.jobs[name]
	if !ok || h.scheduler == nil {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "Job not found"})
		return
	}

	h.log.Info().Str("job", name).Msg("Manual job trigger")
	if err := h.scheduler.RunNow(job); err != nil {
		h.log.Error().Err(err).Str("job", name).Msg("Manual job run failed")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": job.Name() + " completed",
	})
}

func (h *SystemHandlers) jobInfo() []JobInfo {
	if h.scheduler == nil {
		return []JobInfo{}
	}

	statuses := h.scheduler.Status()
	out := make([]JobInfo, 0, len(statuses))
	for _, st := range statuses {
		info := JobInfo{Name: st.Name, Schedule: st.Schedule, Runs: st.Runs, LastError: st.LastErr}
		if !st.LastRun.IsZero() {
			info.LastRun = st.LastRun.Format(time.RFC3339)
		}
		out = append(out, info)
	}
	return out
}

// getSystemStats calculates CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the call short.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func bytesToMB(b int64) float64 {
	return float64(b) / 1024 / 1024
}
