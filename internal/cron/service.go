package cron

import (
	"log"
	"sync"

	rcron "github.com/robfig/cron/v3"
)

// Service wraps robfig/cron for the gateway's built-in jobs (registration
// digest, catalog refresh). Expressions use the 6-field form with seconds.
type Service struct {
	mu      sync.Mutex
	cron    *rcron.Cron
	entries map[string]rcron.EntryID
	started bool
}

func NewService() *Service {
	return &Service{
		cron:    rcron.New(rcron.WithSeconds()),
		entries: make(map[string]rcron.EntryID),
	}
}

// AddJob registers a named job. Job failures are logged, never fatal.
func (s *Service) AddJob(name, expr string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(expr, func() {
		log.Printf("[cron] executing job %s", name)
		if err := fn(); err != nil {
			log.Printf("[cron] job %s failed: %v", name, err)
		}
	})
	if err != nil {
		return err
	}
	s.entries[name] = id
	return nil
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
	log.Printf("[cron] started with %d jobs", len(s.entries))
}

func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.started = false
	log.Printf("[cron] stopped")
}

func (s *Service) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	return names
}
