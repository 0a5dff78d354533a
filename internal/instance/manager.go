// Package instance guards against two marcus processes serving the
// same port: a PID file records who holds it, an exclusive lock file
// prevents a race between two processes starting at once, and a
// ConflictResolver offers the operator a way out when a prior
// instance is found. Adapted from the teacher's internal/instance,
// generalized from a Windows-only implementation to one that also
// runs on Linux/macOS, since marcus is a server process rather than a
// desktop-only CLI tool.
package instance

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Manager handles PID-file and port-lock lifecycle for one marcus
// process.
type Manager struct {
	pidFilePath  string
	port         int
	lockFile     *os.File
	acquiredLock bool
}

// Info describes a running (or recently running) instance, read back
// from its PID file.
type Info struct {
	PID          int
	Port         int
	StartTime    time.Time
	IsRunning    bool
	IsResponding bool
	Version      string
}

// pidFileData is the JSON shape persisted to the PID file.
type pidFileData struct {
	PID       int       `json:"pid"`
	Port      int       `json:"port"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
	Hostname  string    `json:"hostname"`
}

func NewManager(pidFilePath string, port int) *Manager {
	return &Manager{pidFilePath: pidFilePath, port: port}
}

// CheckExistingInstance reports a running instance described by the
// PID file, or nil if there is none (including a stale PID file,
// which is removed).
func (m *Manager) CheckExistingInstance() (*Info, error) {
	data, err := m.readPIDFile()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("instance: failed to read PID file: %w", err)
	}

	running, err := IsProcessRunning(data.PID)
	if err != nil {
		return nil, fmt.Errorf("instance: failed to check process: %w", err)
	}
	if !running {
		m.RemovePIDFile()
		return nil, nil
	}

	responding := HealthCheck(data.Port) == nil
	return &Info{
		PID:          data.PID,
		Port:         data.Port,
		StartTime:    data.StartedAt,
		IsRunning:    true,
		IsResponding: responding,
		Version:      data.Version,
	}, nil
}

// WritePIDFile records the current process as the active instance.
func (m *Manager) WritePIDFile(version string) error {
	hostname, _ := os.Hostname()
	data := pidFileData{
		PID:       os.Getpid(),
		Port:      m.port,
		StartedAt: time.Now(),
		Version:   version,
		Hostname:  hostname,
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("instance: failed to marshal PID data: %w", err)
	}
	if err := os.WriteFile(m.pidFilePath, jsonData, 0o644); err != nil {
		return fmt.Errorf("instance: failed to write PID file: %w", err)
	}
	return nil
}

func (m *Manager) readPIDFile() (*pidFileData, error) {
	raw, err := os.ReadFile(m.pidFilePath)
	if err != nil {
		return nil, err
	}
	var data pidFileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("instance: failed to parse PID file: %w", err)
	}
	return &data, nil
}

func (m *Manager) RemovePIDFile() error {
	if err := os.Remove(m.pidFilePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("instance: failed to remove PID file: %w", err)
	}
	return nil
}

func (m *Manager) GetPort() int  { return m.port }
func (m *Manager) SetPort(p int) { m.port = p }

// AcquireLock creates pidFilePath+".lock" exclusively, so a second
// process racing to start at the same instant fails here instead of
// both believing they are the sole instance.
func (m *Manager) AcquireLock() error {
	lockPath := m.pidFilePath + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("instance: failed to acquire lock (another instance may be starting): %w", err)
	}
	fmt.Fprintf(f, "%d", os.Getpid())
	m.lockFile = f
	m.acquiredLock = true
	return nil
}

// ReleaseLock releases and removes the lock file.
func (m *Manager) ReleaseLock() error {
	if !m.acquiredLock {
		return nil
	}
	if m.lockFile != nil {
		m.lockFile.Close()
		m.lockFile = nil
	}
	lockPath := m.pidFilePath + ".lock"
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("instance: failed to remove lock file: %w", err)
	}
	m.acquiredLock = false
	return nil
}
