package cache

import (
	"encoding/hex"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/panbanda/pqinspect/pkg/analyzer/typeinfer"
	"github.com/panbanda/pqinspect/pkg/ast"
)

// Session is one parsed document version with its inference cache. The
// type cache is not safe for concurrent use: hold the session lock while
// inspecting.
type Session struct {
	sync.Mutex

	Name     string
	Hash     string
	Graph    *ast.Graph
	ParseErr error
	Types    *typeinfer.Cache

	lastUsed time.Time
}

// ParseFunc builds the graph for a document. A parse error is kept on the
// session alongside the partial graph.
type ParseFunc func(content []byte) (*ast.Graph, error)

// Store keeps sessions keyed by document name. A new content hash for the
// same name replaces the old session, so each document version gets its
// own type cache.
type Store struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	enabled  bool
	now      func() time.Time
	entries  map[string]*Session
	stats    Stats
}

// Stats counts store activity.
type Stats struct {
	Entries   int `json:"entries" toon:"entries"`
	Hits      int `json:"hits" toon:"hits"`
	Misses    int `json:"misses" toon:"misses"`
	Evictions int `json:"evictions" toon:"evictions"`
}

// New creates a store holding at most capacity sessions (0 means
// unbounded) that expire after ttl without use (0 means never). A
// disabled store parses on every request and keeps nothing.
func New(capacity int, ttl time.Duration, enabled bool) *Store {
	return &Store{
		capacity: capacity,
		ttl:      ttl,
		enabled:  enabled,
		now:      time.Now,
		entries:  make(map[string]*Session),
	}
}

// HashFile computes a BLAKE3 hash of a file's contents.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Session returns the session for name at this content, parsing it on a
// miss. The bool reports a hit.
func (s *Store) Session(name string, content []byte, parse ParseFunc) (*Session, bool) {
	hash := HashBytes(content)

	if !s.enabled {
		return newSession(name, hash, content, parse, s.now()), false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.expire(now)
	if sess, ok := s.entries[name]; ok && sess.Hash == hash {
		sess.lastUsed = now
		s.stats.Hits++
		return sess, true
	}

	s.stats.Misses++
	sess := newSession(name, hash, content, parse, now)
	s.entries[name] = sess
	s.evict()
	return sess, false
}

func newSession(name, hash string, content []byte, parse ParseFunc, now time.Time) *Session {
	graph, err := parse(content)
	return &Session{
		Name:     name,
		Hash:     hash,
		Graph:    graph,
		ParseErr: err,
		Types:    typeinfer.NewCache(),
		lastUsed: now,
	}
}

// Invalidate removes a session.
func (s *Store) Invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// Clear removes all sessions.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Session)
}

// Stats returns a snapshot of store statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.Entries = len(s.entries)
	return stats
}

// expire drops sessions unused for longer than the TTL.
func (s *Store) expire(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for name, sess := range s.entries {
		if now.Sub(sess.lastUsed) > s.ttl {
			delete(s.entries, name)
			s.stats.Evictions++
		}
	}
}

// evict drops least recently used sessions above capacity.
func (s *Store) evict() {
	if s.capacity <= 0 || len(s.entries) <= s.capacity {
		return
	}
	sessions := make([]*Session, 0, len(s.entries))
	for _, sess := range s.entries {
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].lastUsed.Before(sessions[j].lastUsed)
	})
	for _, sess := range sessions[:len(sessions)-s.capacity] {
		delete(s.entries, sess.Name)
		s.stats.Evictions++
	}
}
