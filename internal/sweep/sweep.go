package sweep

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/drakeRAGE/Real-Time-Collaborative-Whiteboard/internal/metrics"
)

type Config struct {
	Interval  time.Duration
	IdleAfter time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:  5 * time.Minute,
		IdleAfter: 30 * time.Minute,
	}
}

// Rooms is the in-memory room state being swept.
type Rooms interface {
	Sweep(idleAfter time.Duration, isActive func(roomID string) bool) int
	Count() int
}

// Service periodically evicts volatile room state (lock and redo stack) for
// rooms nobody is subscribed to.
type Service struct {
	rooms    Rooms
	isActive func(roomID string) bool
	config   Config
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(rooms Rooms, isActive func(roomID string) bool, config Config) *Service {
	return &Service{
		rooms:    rooms,
		isActive: isActive,
		config:   config,
		stop:     make(chan struct{}),
	}
}

func (s *Service) Start() {
	s.wg.Add(1)
	go s.run()
	log.Info().Str("module", "sweep").
		Dur("interval", s.config.Interval).
		Dur("idle_after", s.config.IdleAfter).
		Msg("room sweeper started")
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	log.Info().Str("module", "sweep").Msg("room sweeper stopped")
}

func (s *Service) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.SweepNow()
		}
	}
}

// SweepNow runs one pass and returns the number of states evicted.
func (s *Service) SweepNow() int {
	evicted := s.rooms.Sweep(s.config.IdleAfter, s.isActive)
	remaining := s.rooms.Count()
	metrics.RoomStates.Set(float64(remaining))

	if evicted > 0 {
		log.Info().Str("module", "sweep").Int("evicted", evicted).Int("remaining", remaining).Msg("evicted idle room state")
	}
	return evicted
}
