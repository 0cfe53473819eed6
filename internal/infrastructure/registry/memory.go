// Package registry holds all session state in process memory. Sessions are
// short-lived and bounded by upload size, so nothing here persists across a
// restart; the durable audit trail lives in the history repository.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

const DefaultSubscriberBuffer = 256

var (
	errDuplicateSession = errors.New("session already exists")
	errUnknownSession   = errors.New("unknown session")
	errNoArtifact       = errors.New("no workbook generated for mode")
)

// Memory implements ports.SessionRegistry. The outer lock guards only the
// session map; each session carries its own lock so batches never contend
// with each other.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	buffer   int
}

type entry struct {
	mu        sync.Mutex
	session   domain.Session
	artifacts map[domain.OutputMode]domain.Artifact
	subs      map[*subscription]struct{}
	cancel    context.CancelFunc
}

type subscription struct {
	ch    chan domain.ProgressSnapshot
	entry *entry
	once  sync.Once
}

func (s *subscription) Snapshots() <-chan domain.ProgressSnapshot { return s.ch }

func (s *subscription) Close() {
	s.entry.mu.Lock()
	s.entry.dropLocked(s)
	s.entry.mu.Unlock()
}

// dropLocked removes and closes the subscription. Callers hold the entry
// lock.
func (e *entry) dropLocked(s *subscription) {
	if _, ok := e.subs[s]; !ok {
		return
	}
	delete(e.subs, s)
	s.once.Do(func() { close(s.ch) })
}

func NewMemory(subscriberBuffer int) *Memory {
	if subscriberBuffer <= 0 {
		subscriberBuffer = DefaultSubscriberBuffer
	}
	return &Memory{
		sessions: make(map[string]*entry),
		buffer:   subscriberBuffer,
	}
}

var _ ports.SessionRegistry = (*Memory)(nil)

func (m *Memory) Create(id string, files []domain.SourceFile) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "registry: create "+id, errDuplicateSession)
	}
	e := &entry{
		session: domain.Session{
			ID:        id,
			Files:     append([]domain.SourceFile(nil), files...),
			Status:    domain.SessionCollecting,
			CreatedAt: time.Now().UTC(),
		},
		artifacts: make(map[domain.OutputMode]domain.Artifact),
		subs:      make(map[*subscription]struct{}),
	}
	m.sessions[id] = e
	return cloneSession(&e.session), nil
}

func (m *Memory) Get(id string) (*domain.Session, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSession(&e.session), nil
}

func (m *Memory) SetStatus(id string, status domain.SessionStatus) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session.Status = status
	e.mu.Unlock()
	return nil
}

func (m *Memory) AppendRecord(id string, rec domain.Record) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session.Records = append(e.session.Records, rec)
	e.mu.Unlock()
	return nil
}

func (m *Memory) AppendFailure(id string, f domain.Failure) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.session.Failures = append(e.session.Failures, f)
	e.mu.Unlock()
	return nil
}

// PublishSnapshot never blocks on a subscriber. A subscriber whose buffer is
// full has stopped reading; it is dropped and can resync from Latest on
// reconnect.
func (m *Memory) PublishSnapshot(id string, snap domain.ProgressSnapshot) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	copied := snap
	e.session.Latest = &copied
	for s := range e.subs {
		select {
		case s.ch <- snap:
		default:
			e.dropLocked(s)
		}
	}
	return nil
}

func (m *Memory) Latest(id string) (*domain.ProgressSnapshot, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.Latest == nil {
		return nil, nil
	}
	copied := *e.session.Latest
	return &copied, nil
}

func (m *Memory) Subscribe(id string) (ports.Subscription, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &subscription{ch: make(chan domain.ProgressSnapshot, m.buffer), entry: e}
	e.subs[s] = struct{}{}
	return s, nil
}

func (m *Memory) PutArtifact(art domain.Artifact) error {
	e, err := m.entry(art.SessionID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.artifacts[art.Mode] = art
	e.mu.Unlock()
	return nil
}

func (m *Memory) Artifact(id string, mode domain.OutputMode) (*domain.Artifact, error) {
	e, err := m.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	art, ok := e.artifacts[mode]
	if !ok {
		return nil, domain.WrapError(domain.ErrArtifactNotReady, "registry: artifact "+id, errNoArtifact)
	}
	copied := art
	return &copied, nil
}

func (m *Memory) RegisterCancel(id string, cancel context.CancelFunc) error {
	e, err := m.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	return nil
}

// Delete removes the session, cancels its in-flight run and closes every live
// subscription. Deleting an unknown session is a no-op.
func (m *Memory) Delete(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	cancel := e.cancel
	for s := range e.subs {
		e.dropLocked(s)
	}
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Memory) entry(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "registry: session "+id, errUnknownSession)
	}
	return e, nil
}

func cloneSession(s *domain.Session) *domain.Session {
	copied := *s
	copied.Files = append([]domain.SourceFile(nil), s.Files...)
	copied.Records = append([]domain.Record(nil), s.Records...)
	copied.Failures = append([]domain.Failure(nil), s.Failures...)
	if s.Latest != nil {
		latest := *s.Latest
		copied.Latest = &latest
	}
	return &copied
}
