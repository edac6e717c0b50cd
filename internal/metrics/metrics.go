// Package metrics implements simple Prometheus-style counters for the
// scan engine. This is intentionally minimal and in-memory only,
// matching the teacher's metrics package.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	mu             sync.RWMutex
	requestsTotal  = make(map[reqKey]int64)
	latencyMsSum   = make(map[latKey]int64)
	latencyMsCount = make(map[latKey]int64)

	jobsTotal  = make(map[jobKey]int64)
	pagesTotal = make(map[pageKey]int64)

	retentionJobsDeleted = make(map[string]int64)

	taskEventsTotal = make(map[string]int64)
)

type reqKey struct {
	Method string
	Path   string
	Status int
}

type latKey struct {
	Method string
	Path   string
}

type jobKey struct {
	Mode   string
	Status string
}

type pageKey struct {
	Status string
}

// RecordRequest increments the request counter and records latency.
func RecordRequest(method, path string, status int, latencyMs int64) {
	mu.Lock()
	defer mu.Unlock()

	rk := reqKey{Method: method, Path: path, Status: status}
	requestsTotal[rk]++

	lk := latKey{Method: method, Path: path}
	latencyMsSum[lk] += latencyMs
	latencyMsCount[lk]++
}

// RecordJobTerminal increments the counter of jobs reaching a terminal
// (or running) status, keyed by mode and status.
func RecordJobTerminal(mode, status string) {
	mu.Lock()
	defer mu.Unlock()
	jobsTotal[jobKey{Mode: mode, Status: status}]++
}

// RecordPageTerminal increments the counter of pages reaching a
// terminal status.
func RecordPageTerminal(status string) {
	mu.Lock()
	defer mu.Unlock()
	pagesTotal[pageKey{Status: status}]++
}

// RecordTaskEvent increments the counter of task events emitted, keyed
// by event type.
func RecordTaskEvent(eventType string) {
	mu.Lock()
	defer mu.Unlock()
	taskEventsTotal[eventType]++
}

// RecordRetentionJobs increments the counter of jobs deleted by TTL
// cleanup.
func RecordRetentionJobs(deleted int64) {
	if deleted <= 0 {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	retentionJobsDeleted["scan"] += deleted
}

// Export returns Prometheus-style metrics text.
func Export() string {
	mu.RLock()
	defer mu.RUnlock()

	var b strings.Builder

	b.WriteString("# HELP scanengine_http_requests_total Total HTTP requests\n")
	b.WriteString("# TYPE scanengine_http_requests_total counter\n")

	var reqKeys []reqKey
	for k := range requestsTotal {
		reqKeys = append(reqKeys, k)
	}
	sort.Slice(reqKeys, func(i, j int) bool {
		if reqKeys[i].Method != reqKeys[j].Method {
			return reqKeys[i].Method < reqKeys[j].Method
		}
		if reqKeys[i].Path != reqKeys[j].Path {
			return reqKeys[i].Path < reqKeys[j].Path
		}
		return reqKeys[i].Status < reqKeys[j].Status
	})
	for _, k := range reqKeys {
		fmt.Fprintf(&b, "scanengine_http_requests_total{method=\"%s\",path=\"%s\",status=\"%d\"} %d\n",
			k.Method, k.Path, k.Status, requestsTotal[k])
	}

	b.WriteString("# HELP scanengine_http_request_duration_ms_sum Total request duration in milliseconds\n")
	b.WriteString("# TYPE scanengine_http_request_duration_ms_sum counter\n")
	b.WriteString("# HELP scanengine_http_request_duration_ms_count Request count for latency metric\n")
	b.WriteString("# TYPE scanengine_http_request_duration_ms_count counter\n")

	var latKeys []latKey
	for k := range latencyMsSum {
		latKeys = append(latKeys, k)
	}
	sort.Slice(latKeys, func(i, j int) bool {
		if latKeys[i].Method != latKeys[j].Method {
			return latKeys[i].Method < latKeys[j].Method
		}
		return latKeys[i].Path < latKeys[j].Path
	})
	for _, k := range latKeys {
		fmt.Fprintf(&b, "scanengine_http_request_duration_ms_sum{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsSum[k])
		fmt.Fprintf(&b, "scanengine_http_request_duration_ms_count{method=\"%s\",path=\"%s\"} %d\n",
			k.Method, k.Path, latencyMsCount[k])
	}

	b.WriteString("# HELP scanengine_jobs_total Total scan jobs by mode and status\n")
	b.WriteString("# TYPE scanengine_jobs_total counter\n")
	var jobKeys []jobKey
	for k := range jobsTotal {
		jobKeys = append(jobKeys, k)
	}
	sort.Slice(jobKeys, func(i, j int) bool {
		if jobKeys[i].Mode != jobKeys[j].Mode {
			return jobKeys[i].Mode < jobKeys[j].Mode
		}
		return jobKeys[i].Status < jobKeys[j].Status
	})
	for _, k := range jobKeys {
		fmt.Fprintf(&b, "scanengine_jobs_total{mode=\"%s\",status=\"%s\"} %d\n", k.Mode, k.Status, jobsTotal[k])
	}

	b.WriteString("# HELP scanengine_pages_total Total pages by terminal status\n")
	b.WriteString("# TYPE scanengine_pages_total counter\n")
	var pageKeys []pageKey
	for k := range pagesTotal {
		pageKeys = append(pageKeys, k)
	}
	sort.Slice(pageKeys, func(i, j int) bool { return pageKeys[i].Status < pageKeys[j].Status })
	for _, k := range pageKeys {
		fmt.Fprintf(&b, "scanengine_pages_total{status=\"%s\"} %d\n", k.Status, pagesTotal[k])
	}

	b.WriteString("# HELP scanengine_task_events_total Total task events emitted by type\n")
	b.WriteString("# TYPE scanengine_task_events_total counter\n")
	var eventTypes []string
	for t := range taskEventsTotal {
		eventTypes = append(eventTypes, t)
	}
	sort.Strings(eventTypes)
	for _, t := range eventTypes {
		fmt.Fprintf(&b, "scanengine_task_events_total{type=\"%s\"} %d\n", t, taskEventsTotal[t])
	}

	b.WriteString("# HELP scanengine_retention_jobs_deleted_total Total jobs deleted by TTL\n")
	b.WriteString("# TYPE scanengine_retention_jobs_deleted_total counter\n")
	var jobTypes []string
	for t := range retentionJobsDeleted {
		jobTypes = append(jobTypes, t)
	}
	sort.Strings(jobTypes)
	for _, t := range jobTypes {
		fmt.Fprintf(&b, "scanengine_retention_jobs_deleted_total{job_type=\"%s\"} %d\n", t, retentionJobsDeleted[t])
	}

	return b.String()
}
