package models

import (
	"testing"
	"time"
)

func TestStreamCanTransitionTo(t *testing.T) {
	tests := []struct {
		from   string
		to     string
		want   bool
	}{
		{from: StreamStatusScheduled, to: StreamStatusRehearsal, want: true},
		{from: StreamStatusScheduled, to: StreamStatusLive, want: true},
		{from: StreamStatusScheduled, to: StreamStatusEnded, want: true},
		{from: StreamStatusRehearsal, to: StreamStatusLive, want: true},
		{from: StreamStatusRehearsal, to: StreamStatusScheduled, want: false},
		{from: StreamStatusLive, to: StreamStatusEnded, want: true},
		{from: StreamStatusLive, to: StreamStatusRehearsal, want: false},
		{from: StreamStatusEnded, to: StreamStatusLive, want: false},
		{from: StreamStatusEnded, to: StreamStatusScheduled, want: false},
		{from: StreamStatusLive, to: StreamStatusLive, want: false},
	}

	for _, tt := range tests {
		s := Stream{Status: tt.from}
		if got := s.CanTransitionTo(tt.to); got != tt.want {
			t.Fatalf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStreamLiveDuration(t *testing.T) {
	now := time.Now()
	s := Stream{}
	if d := s.LiveDuration(now); d != 0 {
		t.Fatalf("expected zero duration for unstarted stream, got %s", d)
	}

	started := now.Add(-90 * time.Minute)
	s.StartedAt = &started
	if d := s.LiveDuration(now); d != 90*time.Minute {
		t.Fatalf("expected 90m live duration, got %s", d)
	}
}
