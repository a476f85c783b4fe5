package types

// InstanceState is a model instance's lifecycle state, generalizing the
// teacher's State string-enum (which never defined the Draining value
// its own queue_admission.go and status_report.go referenced) into a
// complete set.
type InstanceState string

const (
	InstanceLoading  InstanceState = "loading"
	InstanceReady    InstanceState = "ready"
	InstanceDraining InstanceState = "draining"
	InstanceError    InstanceState = "error"
)

// InstanceStatus summarizes one loaded model instance, mirroring the
// teacher's pkg/types/api.go InstanceStatus shape.
type InstanceStatus struct {
	ModelKey      string `json:"model_key"`
	State         string `json:"state"`
	LastUsedUnix  int64  `json:"last_used_unix"`
	QueueLen      int    `json:"queue_len"`
	Inflight      int    `json:"inflight"`
	MaxQueueDepth int    `json:"max_queue_depth"`
}

// TaskStats accumulates per-task serving counters.
type TaskStats struct {
	CompletionsTotal uint64 `json:"completions_total"`
	TokensGenerated  uint64 `json:"tokens_generated"`
	ErrorsTotal      uint64 `json:"errors_total"`
}

// BackendStats is returned by the façade's Stats() operation.
type BackendStats struct {
	Instances      []InstanceStatus     `json:"instances"`
	Tasks          map[string]TaskStats `json:"tasks"`
	EvictionsTotal uint64               `json:"evictions_total"`
	LoadsTotal     uint64               `json:"loads_total"`
	UptimeSeconds  int64                `json:"uptime_seconds"`
}
