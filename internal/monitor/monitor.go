package monitor

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcus-mcp/marcus/internal/merrors"
)

// Notifier fans out new high- and critical-severity patterns to external channels
// (internal/notify's Slack and toast senders). Best-effort: a
// notifier failure is logged and never blocks ingestion.
type Notifier interface {
	NotifyPattern(ctx context.Context, p *ErrorPattern) error
	NotifyHealthDegraded(ctx context.Context, r HealthReport) error
}

// Monitor is the single process-wide error store. All mutation runs
// under mu; Record is synchronous so pattern detection always sees a
// consistent view of recent history.
type Monitor struct {
	mu     sync.Mutex
	cfg    Config
	logger *log.Logger

	ring     []ErrorRecord
	ringHead int
	ringLen  int

	total          int
	byType         map[string]int
	bySeverity     map[string]int
	byCategory     map[string]int
	byAgent        map[string]int
	byOperation    map[string]int
	byIntegration  map[string]int
	criticalCount  int
	retryableCount int

	patterns          map[string]*ErrorPattern
	correlationGroups map[string]*CorrelationGroup
	metricsHistory    []MetricsSnapshot

	notifier Notifier
}

// New builds a Monitor with cfg (zero-value HistorySize falls back to
// DefaultConfig's). Pass a nil Notifier to disable alert fan-out.
func New(cfg Config, logger *log.Logger, notifier Notifier) *Monitor {
	if cfg.HistorySize == 0 {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Monitor{
		cfg:               cfg,
		logger:            logger,
		ring:              make([]ErrorRecord, cfg.HistorySize),
		byType:            make(map[string]int),
		bySeverity:        make(map[string]int),
		byCategory:        make(map[string]int),
		byAgent:           make(map[string]int),
		byOperation:       make(map[string]int),
		byIntegration:     make(map[string]int),
		patterns:          make(map[string]*ErrorPattern),
		correlationGroups: make(map[string]*CorrelationGroup),
		notifier:          notifier,
	}
}

// Record ingests one error, updates counters, and runs the four
// pattern detectors against the now-current history.
func (m *Monitor) Record(ctx context.Context, err *merrors.MarcusError) {
	rec := recordFrom(err)

	m.mu.Lock()
	m.push(rec)
	m.total++
	m.byType[rec.ErrorType]++
	m.bySeverity[string(rec.Severity)]++
	m.byCategory[string(rec.Category)]++
	if rec.AgentID != "" {
		m.byAgent[rec.AgentID]++
	}
	if rec.Operation != "" {
		m.byOperation[rec.Operation]++
	}
	if rec.IntegrationName != "" {
		m.byIntegration[rec.IntegrationName]++
	}
	if rec.Severity == merrors.SeverityCritical {
		m.criticalCount++
	}
	if rec.Retryable {
		m.retryableCount++
	}

	newPatterns := m.detectPatterns(rec)
	m.correlate(rec)
	m.mu.Unlock()

	for _, p := range newPatterns {
		if p.Severity == merrors.SeverityCritical || p.Severity == merrors.SeverityHigh {
			m.notify(ctx, p)
		}
	}
}

func (m *Monitor) push(rec ErrorRecord) {
	m.ring[m.ringHead] = rec
	m.ringHead = (m.ringHead + 1) % len(m.ring)
	if m.ringLen < len(m.ring) {
		m.ringLen++
	}
}

// snapshot returns the ring's records in chronological order. Caller
// must hold m.mu.
func (m *Monitor) snapshot() []ErrorRecord {
	out := make([]ErrorRecord, m.ringLen)
	if m.ringLen < len(m.ring) {
		copy(out, m.ring[:m.ringLen])
		return out
	}
	copy(out, m.ring[m.ringHead:])
	copy(out[len(m.ring)-m.ringHead:], m.ring[:m.ringHead])
	return out
}

func (m *Monitor) since(window time.Duration) []ErrorRecord {
	cutoff := time.Now().Add(-window)
	all := m.snapshot()
	var out []ErrorRecord
	for _, r := range all {
		if r.Timestamp.After(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func (m *Monitor) notify(ctx context.Context, p *ErrorPattern) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyPattern(ctx, p); err != nil {
		m.logger.Printf("[MONITOR] pattern notification failed: %v", err)
	}
}

// detectPatterns runs the four detectors in §4.2 against the new
// record and returns any pattern that was newly created (not merely
// bumped) this call, for notification purposes. Caller must hold m.mu.
func (m *Monitor) detectPatterns(rec ErrorRecord) []*ErrorPattern {
	var fresh []*ErrorPattern

	if p := m.detectFrequency(rec); p != nil {
		fresh = append(fresh, p)
	}
	if p := m.detectBurst(rec); p != nil {
		fresh = append(fresh, p)
	}
	if rec.AgentID != "" {
		if p := m.detectAgentSpecific(rec); p != nil {
			fresh = append(fresh, p)
		}
	}
	if p := m.detectCascade(rec); p != nil {
		fresh = append(fresh, p)
	}
	return fresh
}

func (m *Monitor) detectFrequency(rec ErrorRecord) *ErrorPattern {
	window := m.since(m.cfg.FrequencyWindow)
	count := 0
	for _, r := range window {
		if r.ErrorType == rec.ErrorType {
			count++
		}
	}
	if count < m.cfg.FrequencyThreshold {
		return nil
	}
	hour := rec.Timestamp.Format("2006010215")
	key := fmt.Sprintf("frequency|%s|%s", rec.ErrorType, hour)
	return m.upsertPattern(key, PatternFrequency, rec,
		fmt.Sprintf("%s occurred %d times in the last %s", rec.ErrorType, count, m.cfg.FrequencyWindow),
		count, merrors.SeverityMedium)
}

func (m *Monitor) detectBurst(rec ErrorRecord) *ErrorPattern {
	window := m.since(m.cfg.BurstWindow)
	count := len(window)
	if count < m.cfg.BurstThreshold {
		return nil
	}
	sev := merrors.SeverityHigh
	if count >= 20 {
		sev = merrors.SeverityCritical
	}
	key := fmt.Sprintf("burst|%s", rec.Timestamp.Format("200601021504"))
	return m.upsertPattern(key, PatternBurst, rec,
		fmt.Sprintf("%d errors in the last %s", count, m.cfg.BurstWindow), count, sev)
}

func (m *Monitor) detectAgentSpecific(rec ErrorRecord) *ErrorPattern {
	window := m.since(m.cfg.AgentWindow)
	count := 0
	for _, r := range window {
		if r.AgentID == rec.AgentID {
			count++
		}
	}
	if count < m.cfg.AgentErrorThreshold {
		return nil
	}
	key := fmt.Sprintf("agent_specific|%s", rec.AgentID)
	return m.upsertPattern(key, PatternAgentSpecific, rec,
		fmt.Sprintf("agent %s produced %d errors in the last %s", rec.AgentID, count, m.cfg.AgentWindow),
		count, merrors.SeverityHigh)
}

// detectCascade compares rec against the last CascadeLookback errors
// within CascadeWindow, weighting same-type 0.4, same-operation 0.3,
// same-integration 0.2, and within-60s 0.1, per §4.2.
func (m *Monitor) detectCascade(rec ErrorRecord) *ErrorPattern {
	window := m.since(m.cfg.CascadeWindow)
	if len(window) > m.cfg.CascadeLookback {
		window = window[len(window)-m.cfg.CascadeLookback:]
	}

	similar := 0
	for _, r := range window {
		if r.CorrelationID == rec.CorrelationID {
			continue
		}
		if similarity(r, rec) >= 0.7 {
			similar++
		}
	}
	if similar < m.cfg.CascadeThreshold {
		return nil
	}
	key := fmt.Sprintf("cascade|%s|%s", rec.Operation, rec.Timestamp.Format("200601021504"))
	return m.upsertPattern(key, PatternCascade, rec,
		fmt.Sprintf("%d similar errors cascading around %s", similar, rec.Operation), similar, merrors.SeverityHigh)
}

func similarity(a, b ErrorRecord) float64 {
	score := 0.0
	if a.ErrorType == b.ErrorType {
		score += 0.4
	}
	if a.Operation != "" && a.Operation == b.Operation {
		score += 0.3
	}
	if a.IntegrationName != "" && a.IntegrationName == b.IntegrationName {
		score += 0.2
	}
	if diff := a.Timestamp.Sub(b.Timestamp); diff > -60*time.Second && diff < 60*time.Second {
		score += 0.1
	}
	return score
}

// upsertPattern creates or refreshes the pattern keyed by key,
// returning the pattern only the first time it is created this call
// (so the caller only notifies on genuinely new patterns, matching
// the teacher's shouldAlert dedup idiom in internal/metrics).
func (m *Monitor) upsertPattern(key string, pt PatternType, rec ErrorRecord, desc string, freq int, sev merrors.Severity) *ErrorPattern {
	existing, ok := m.patterns[key]
	if ok {
		existing.Frequency = freq
		existing.LastSeen = rec.Timestamp
		existing.Description = desc
		existing.Severity = sev
		existing.AffectedAgents = appendUnique(existing.AffectedAgents, rec.AgentID)
		existing.AffectedOperations = appendUnique(existing.AffectedOperations, rec.Operation)
		return nil
	}
	p := &ErrorPattern{
		PatternID:          uuid.New().String(),
		PatternType:        pt,
		Description:        desc,
		Frequency:          freq,
		FirstSeen:          rec.Timestamp,
		LastSeen:           rec.Timestamp,
		Severity:           sev,
		AffectedAgents:     appendUnique(nil, rec.AgentID),
		AffectedOperations: appendUnique(nil, rec.Operation),
	}
	m.patterns[key] = p
	return p
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// correlate maintains the operation|agent|integration correlation
// group for rec, dropping it from "active" once CorrelationTimeout
// elapses (checked lazily by callers reading group.EndTime).
// Caller must hold m.mu.
func (m *Monitor) correlate(rec ErrorRecord) {
	key := fmt.Sprintf("%s|%s|%s", rec.Operation, rec.AgentID, rec.IntegrationName)
	g, ok := m.correlationGroups[key]
	if !ok {
		g = &CorrelationGroup{
			GroupID:        uuid.New().String(),
			CorrelationKey: key,
			StartTime:      rec.Timestamp,
		}
		m.correlationGroups[key] = g
	}
	g.ErrorIDs = append(g.ErrorIDs, rec.CorrelationID)
	g.EndTime = rec.Timestamp
}

// HealthReport computes the [0,100] score and band from §4.2's
// formula: rate penalty tiers, -25 for any critical error present,
// -10 per active pattern.
func (m *Monitor) HealthReport() HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	lastMinute := m.since(time.Minute)
	rate := float64(len(lastMinute))

	score := 100
	switch {
	case rate >= 20:
		score -= 50
	case rate >= 10:
		score -= 30
	case rate >= 5:
		score -= 15
	case rate >= 1:
		score -= 5
	}

	if m.criticalCount > 0 {
		score -= 25
	}

	activePatterns := m.activePatternsLocked()
	score -= 10 * len(activePatterns)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	status := bandFor(score)

	return HealthReport{
		Score:               score,
		Status:              status,
		ErrorRatePerMinute:  rate,
		CriticalErrorCount:  m.criticalCount,
		ActivePatternCount:  len(activePatterns),
		TopErrorTypes:       topN(m.byType, 5),
		TopAgents:           topN(m.byAgent, 5),
		TopIntegrations:     topN(m.byIntegration, 5),
		Recommendations:     recommendationsFor(topN(m.byType, 3), topN(m.byAgent, 3), topN(m.byIntegration, 3)),
		GeneratedAt:         time.Now(),
	}
}

func bandFor(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 50:
		return "fair"
	case score >= 25:
		return "poor"
	default:
		return "critical"
	}
}

// activePatternsLocked returns patterns last seen within the
// correlation timeout window. Caller must hold m.mu.
func (m *Monitor) activePatternsLocked() []*ErrorPattern {
	cutoff := time.Now().Add(-m.cfg.CorrelationTimeout)
	var active []*ErrorPattern
	for _, p := range m.patterns {
		if p.LastSeen.After(cutoff) {
			active = append(active, p)
		}
	}
	return active
}

func topN(counts map[string]int, n int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for k, v := range counts {
		entries = append(entries, CountEntry{Name: k, Count: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func recommendationsFor(types, agents, integrations []CountEntry) []string {
	var recs []string
	for _, t := range types {
		recs = append(recs, fmt.Sprintf("investigate recurring %s errors", t.Name))
	}
	for _, a := range agents {
		recs = append(recs, fmt.Sprintf("review agent %s's recent task assignments", a.Name))
	}
	for _, i := range integrations {
		recs = append(recs, fmt.Sprintf("check health of integration %s", i.Name))
	}
	return recs
}
