package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// file is the on-disk shape of the config. Vhost entries stay raw nodes
// so each one can be decoded over a default-seeded Vhost.
type file struct {
	Logging Logging     `yaml:"logging"`
	Vhosts  []yaml.Node `yaml:"vhosts"`
}

// Logging is the top-level logging section of the config file.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// ReloadKind identifies which reload callback a config change should
// fire.
type ReloadKind int

const (
	ReloadVhostRemoved ReloadKind = iota
	ReloadVhostPlay
	ReloadVhostTcpNodelay
	ReloadVhostRealtime
	ReloadVhostPublish
)

type ReloadEvent struct {
	Kind  ReloadKind
	Vhost string
}

// Subscription is a per-session channel of reload events scoped to one
// vhost name; Close unregisters it.
type Subscription struct {
	vhost string
	ch    chan ReloadEvent
	store *Store
}

func (s *Subscription) Events() <-chan ReloadEvent { return s.ch }

func (s *Subscription) Close() {
	s.store.unsubscribe(s)
}

// Store is the vhost configuration table: YAML-backed, hot reloaded via
// fsnotify, read through a RWMutex-guarded map. A reload swaps the whole
// table then fans events out to per-vhost subscribers, since each session
// cares about exactly one vhost.
type Store struct {
	mu      sync.RWMutex
	vhosts  map[string]*Vhost
	logging Logging
	path    string
	watcher *fsnotify.Watcher

	subMu sync.Mutex
	subs  map[string][]*Subscription
}

func NewStore(path string) (*Store, error) {
	s := &Store{
		vhosts: make(map[string]*Vhost),
		path:   path,
		subs:   make(map[string][]*Subscription),
	}
	if path != "" {
		if err := s.reloadFromDisk(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Vhost returns the resolved vhost config, following a single alias hop.
func (s *Store) Vhost(name string) (*Vhost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vhosts[name]
	if !ok {
		return nil, false
	}
	if v.Alias != "" {
		if aliased, ok := s.vhosts[v.Alias]; ok {
			return aliased, true
		}
	}
	return v, true
}

// Put installs (or replaces) a vhost in-memory, primarily for tests that
// don't want a YAML file on disk.
func (s *Store) Put(v *Vhost) {
	s.mu.Lock()
	s.vhosts[v.Name] = v
	s.mu.Unlock()
}

func (s *Store) reloadFromDisk() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", s.path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config %s: %w", s.path, err)
	}

	// Decoding each entry into a pre-seeded Vhost keeps the defaults for
	// every key the file leaves unset.
	next := make(map[string]*Vhost, len(f.Vhosts))
	for _, node := range f.Vhosts {
		v := defaultVhost("")
		if err := node.Decode(v); err != nil {
			return fmt.Errorf("parse config %s: %w", s.path, err)
		}
		next[v.Name] = v
	}

	s.mu.Lock()
	prev := s.vhosts
	s.vhosts = next
	s.logging = f.Logging
	s.mu.Unlock()

	s.diffAndNotify(prev, next)
	return nil
}

// Logging returns the logging section from the last successful load.
func (s *Store) Logging() Logging {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logging
}

func (s *Store) diffAndNotify(prev, next map[string]*Vhost) {
	for name, old := range prev {
		nv, ok := next[name]
		if !ok {
			s.notify(name, ReloadVhostRemoved)
			continue
		}
		if old.Enabled && !nv.Enabled {
			// A disabled vhost expires its sessions the same way a removed one does.
			s.notify(name, ReloadVhostRemoved)
			continue
		}
		if old.SendMinInterval != nv.SendMinInterval {
			s.notify(name, ReloadVhostPlay)
		}
		if old.TcpNodelay != nv.TcpNodelay {
			s.notify(name, ReloadVhostTcpNodelay)
		}
		if old.RealtimeEnabled != nv.RealtimeEnabled {
			s.notify(name, ReloadVhostRealtime)
		}
		if old.PublishFirstPktTimeoutMs != nv.PublishFirstPktTimeoutMs ||
			old.PublishNormalTimeoutMs != nv.PublishNormalTimeoutMs {
			s.notify(name, ReloadVhostPublish)
		}
	}
}

func (s *Store) notify(vhost string, kind ReloadKind) {
	s.subMu.Lock()
	subs := append([]*Subscription{}, s.subs[vhost]...)
	s.subMu.Unlock()
	for _, sub := range subs {
		select {
		case sub.ch <- ReloadEvent{Kind: kind, Vhost: vhost}:
		default:
			log.Warn().Str("vhost", vhost).Msg("reload subscriber channel full, dropping event")
		}
	}
}

// Subscribe registers for reload events scoped to one vhost. The session
// driver holds exactly one of these per connection and closes it when Run
// returns.
func (s *Store) Subscribe(vhost string) *Subscription {
	sub := &Subscription{vhost: vhost, ch: make(chan ReloadEvent, 8), store: s}
	s.subMu.Lock()
	s.subs[vhost] = append(s.subs[vhost], sub)
	s.subMu.Unlock()
	return sub
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	list := s.subs[sub.vhost]
	for i, x := range list {
		if x == sub {
			s.subs[sub.vhost] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

// Watch starts the fsnotify-driven hot reload loop; it returns immediately
// and stops when stop is closed. Rapid writes are debounced so an editor's
// save-via-rename doesn't trigger a half-written parse.
func (s *Store) Watch(stop <-chan struct{}) error {
	if s.path == "" {
		log.Info().Msg("config file watcher disabled (no path configured)")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}
	s.watcher = watcher

	go func() {
		var debounce *time.Timer
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					if err := s.reloadFromDisk(); err != nil {
						log.Error().Err(err).Msg("config reload failed, keeping previous config")
					} else {
						log.Info().Str("path", s.path).Msg("config reloaded")
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("config watcher error")
			}
		}
	}()
	return nil
}
