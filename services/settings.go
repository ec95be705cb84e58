package services

import "sync"

// CanteenSettings holds the owner-controlled open flag and announcement.
// Values live in memory and reset to the configured defaults on restart.
type CanteenSettings struct {
	mu           sync.RWMutex
	open         bool
	announcement string
}

func NewCanteenSettings(open bool, announcement string) *CanteenSettings {
	return &CanteenSettings{open: open, announcement: announcement}
}

func (s *CanteenSettings) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *CanteenSettings) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}

func (s *CanteenSettings) Announcement() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.announcement
}

func (s *CanteenSettings) SetAnnouncement(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcement = text
}
