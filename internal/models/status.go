package models

import "time"

type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusStopped RunStatus = "stopped"
	StatusExited  RunStatus = "exited"
	StatusError   RunStatus = "error"
	// The binary is not reachable on this host
	StatusMissing RunStatus = "missing"
)

type RecipeStatus struct {
	Recipe     Recipe `json:"recipe"`
	ConfPath   string `json:"confPath"`
	Rendered   bool   `json:"rendered"`
	Drifted    bool   `json:"drifted"`
	Diff       string `json:"diff,omitempty"`
	PHPRunning bool   `json:"phpRunning"`
}

type BackendStatus struct {
	Kind      BackendKind `json:"kind"`
	Installed bool        `json:"installed"`
	Status    RunStatus   `json:"status"`
	Recipes   int         `json:"recipes"`
}

/**
 * Snapshot of desired and actual state (serialized by `status` and the API)
 * @property {time.Time} timestamp - When the snapshot was taken
 * @property {[]RecipeStatus} recipes - Recipes and their rendered configs
 * @property {[]Runtime} runtimes - Installed php runtimes
 * @property {[]BackendStatus} backends - Web servers
 */
type SystemStatus struct {
	Timestamp time.Time       `json:"timestamp"`
	Recipes   []RecipeStatus  `json:"recipes"`
	Runtimes  []Runtime       `json:"runtimes"`
	Backends  []BackendStatus `json:"backends"`
}

// HealthResponse is returned by the /healthz probe.
type HealthResponse struct {
	Version   string `json:"version"`
	StartTime string `json:"startTime"`
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Recipes   int    `json:"recipes"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
