package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
)

// Store is the persistence contract the manager writes through. LoadSession
// returns (nil, nil) when the session does not exist.
type Store interface {
	LoadSession(ctx context.Context, id string) (*Session, error)
	SaveSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessionIDs(ctx context.Context, limit, offset int) ([]string, error)
}

// Ratchet thresholds: complexity preference moves up one tier after this
// many consecutive successes at or above this score.
const (
	ratchetStreak = 3
	ratchetScore  = 80.0
)

// Expertise increments per recorded outcome.
const (
	expertiseGainSuccess = 0.1
	expertiseGainFailure = 0.02
)

// Manager owns session mutation. History append and preference updates are
// non-commutative (the complexity ratchet depends on order), so every
// operation on one session is serialized behind a per-session mutex.
// Operations on different sessions run in parallel.
type Manager struct {
	store  Store
	logger utils.ExtendedLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a session manager over the given store.
func NewManager(store Store, logger utils.ExtendedLogger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// Get loads a session, returning (nil, nil) when it does not exist.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	return m.store.LoadSession(ctx, id)
}

// GetOrCreate loads a session, creating and persisting a fresh one on
// first contact.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if sess != nil {
		return sess, nil
	}

	sess = NewSession(id)
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save new session %s: %w", id, err)
	}
	m.logger.Infof("🆕 Created session %s", sess.ID)
	return sess, nil
}

// List returns known session IDs, most recently active first.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]string, error) {
	return m.store.ListSessionIDs(ctx, limit, offset)
}

// Delete removes a session permanently. Explicit user action only; nothing
// in the pipeline deletes sessions on its own.
func (m *Manager) Delete(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	return m.store.DeleteSession(ctx, id)
}

// RecordOutcome appends a history entry for one generation attempt and
// folds the outcome into the derived preferences, then persists.
func (m *Manager) RecordOutcome(ctx context.Context, id string, summary string, analysis analyzer.Analysis, outcome Outcome) (*Session, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if sess == nil {
		sess = NewSession(id)
	}

	sess.History = append(sess.History, HistoryEntry{
		Timestamp:      time.Now(),
		RequestSummary: summary,
		Analysis:       analysis,
		Outcome:        outcome,
	})
	sess.GenerationCount++
	sess.LastActivityAt = time.Now()

	applyOutcome(sess, analysis, outcome)

	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session %s: %w", id, err)
	}
	m.logger.Debugf("recorded outcome for session %s: success=%v generations=%d",
		sess.ID, outcome.Success, sess.GenerationCount)
	return sess, nil
}

// Touch updates the activity timestamp without recording an outcome.
func (m *Manager) Touch(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.LoadSession(ctx, id)
	if err != nil || sess == nil {
		return err
	}
	sess.LastActivityAt = time.Now()
	return m.store.SaveSession(ctx, sess)
}

// applyOutcome mutates the derived preferences in place. Caller holds the
// session lock.
func applyOutcome(sess *Session, analysis analyzer.Analysis, outcome Outcome) {
	gain := expertiseGainFailure
	if outcome.Success {
		gain = expertiseGainSuccess
	}
	expertise := sess.Preferences.DomainExpertise[analysis.Domain] + gain
	if expertise > 1.0 {
		expertise = 1.0
	}
	sess.Preferences.DomainExpertise[analysis.Domain] = expertise

	for _, feature := range analysis.KeyFeatures {
		sess.Preferences.FrequentFeatures[feature]++
	}
	for _, pref := range analysis.TechPreferences {
		if pref.Explicit {
			sess.Preferences.FavoriteTechnologies[pref.Value] = true
		}
	}

	if shouldRatchetUp(sess) {
		sess.Preferences.ComplexityPreference = nextTier(sess.Preferences.ComplexityPreference)
	}
}

// shouldRatchetUp checks the tail of the history for ratchetStreak
// consecutive successes scoring at least ratchetScore.
func shouldRatchetUp(sess *Session) bool {
	if len(sess.History) < ratchetStreak {
		return false
	}
	for i := len(sess.History) - 1; i >= len(sess.History)-ratchetStreak; i-- {
		entry := sess.History[i]
		if !entry.Outcome.Success {
			return false
		}
		if entry.Outcome.Score == nil || *entry.Outcome.Score < ratchetScore {
			return false
		}
	}
	return true
}

// nextTier moves one step up. The ratchet never moves down; recovering from
// an over-ambitious preference is the simplify-architecture rule's job.
func nextTier(tier analyzer.ComplexityTier) analyzer.ComplexityTier {
	switch tier {
	case analyzer.ComplexitySimple:
		return analyzer.ComplexityMedium
	case analyzer.ComplexityMedium:
		return analyzer.ComplexityComplex
	case analyzer.ComplexityComplex, analyzer.ComplexityEnterprise:
		return analyzer.ComplexityEnterprise
	default:
		return tier
	}
}
