package services

import (
	"math"
	"testing"
	"time"

	"gatherly/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMutualFriendsScore(t *testing.T) {
	tests := []struct {
		name  string
		count int
		want  float64
	}{
		{"zero mutuals", 0, 0},
		{"two mutuals", 2, 8},
		{"five mutuals", 5, 20},
		{"at saturation", 10, 40},
		{"beyond saturation", 25, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mutualFriendsScore(tt.count)
			if !almostEqual(got, tt.want) {
				t.Errorf("mutualFriendsScore(%d) = %v, want %v", tt.count, got, tt.want)
			}
		})
	}
}

func TestCommonInterestsScore(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"both empty", nil, nil, 0},
		{"one side empty", []string{"go"}, nil, 0},
		{"no overlap", []string{"go"}, []string{"rust"}, 0},
		{"two shared", []string{"go", "ai", "music"}, []string{"AI", "Go"}, 10},
		{"five shared caps out", []string{"a", "b", "c", "d", "e", "f"}, []string{"a", "b", "c", "d", "e", "f"}, 25},
		{"duplicates counted once", []string{"go"}, []string{"go", "Go", "GO"}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := commonInterestsScore(tt.a, tt.b)
			if !almostEqual(got, tt.want) {
				t.Errorf("commonInterestsScore(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSameLocationScore(t *testing.T) {
	if got := sameLocationScore("Berlin", "berlin "); !almostEqual(got, 15) {
		t.Errorf("matching locations = %v, want 15", got)
	}
	if got := sameLocationScore("", ""); got != 0 {
		t.Errorf("empty locations should not match, got %v", got)
	}
	if got := sameLocationScore("Berlin", "Munich"); got != 0 {
		t.Errorf("different locations = %v, want 0", got)
	}
}

func TestSameRoleScore(t *testing.T) {
	if got := sameRoleScore("organizer", "Organizer"); !almostEqual(got, 10) {
		t.Errorf("matching roles = %v, want 10", got)
	}
	if got := sameRoleScore("", ""); got != 0 {
		t.Errorf("empty roles should not match, got %v", got)
	}
}

func TestProfileCompletenessScore(t *testing.T) {
	full := &models.User{
		Bio:       "hello",
		Avatar:    "https://cdn.example.com/a.png",
		Interests: []string{"go"},
		Location:  "Berlin",
		Company:   "Acme",
	}
	if got := profileCompletenessScore(full); !almostEqual(got, 5) {
		t.Errorf("full profile = %v, want 5", got)
	}

	empty := &models.User{}
	if got := profileCompletenessScore(empty); got != 0 {
		t.Errorf("empty profile = %v, want 0", got)
	}

	partial := &models.User{Bio: "hi", Location: "Berlin"}
	if got := profileCompletenessScore(partial); !almostEqual(got, 2) {
		t.Errorf("two of five fields = %v, want 2", got)
	}
}

func TestRecentActivityScore(t *testing.T) {
	now := time.Now()

	active := now.Add(-1 * time.Hour)
	if got := recentActivityScore(&active, now); got < 4.9 || got > 5 {
		t.Errorf("active an hour ago = %v, want near 5", got)
	}

	halfway := now.Add(-15 * 24 * time.Hour)
	if got := recentActivityScore(&halfway, now); !almostEqual(got, 2.5) {
		t.Errorf("active 15 days ago = %v, want 2.5", got)
	}

	stale := now.Add(-60 * 24 * time.Hour)
	if got := recentActivityScore(&stale, now); got != 0 {
		t.Errorf("active 60 days ago = %v, want 0", got)
	}

	if got := recentActivityScore(nil, now); !almostEqual(got, 2.5) {
		t.Errorf("never active = %v, want 2.5", got)
	}
}

func TestScoreCandidateBounds(t *testing.T) {
	now := time.Now()
	user := &models.User{
		Role:      "attendee",
		Location:  "Berlin",
		Interests: []string{"go", "ai", "music", "art", "chess"},
	}
	best := &models.User{
		Role:         "attendee",
		Location:     "Berlin",
		Bio:          "bio",
		Avatar:       "avatar",
		Company:      "Acme",
		Interests:    []string{"go", "ai", "music", "art", "chess"},
		LastActiveAt: &now,
	}

	breakdown := scoreCandidate(user, best, 10, now)
	if total := breakdown.Total(); !almostEqual(total, 100) {
		t.Errorf("perfect candidate total = %v, want 100", total)
	}

	worst := &models.User{}
	breakdown = scoreCandidate(user, worst, 0, now)
	// Only the never-seen activity credit remains.
	if total := breakdown.Total(); !almostEqual(total, 2.5) {
		t.Errorf("empty candidate total = %v, want 2.5", total)
	}
}

func TestSortCandidates(t *testing.T) {
	candidates := []models.FriendCandidate{
		{TotalScore: 40, MutualFriendCount: 1},
		{TotalScore: 70, MutualFriendCount: 2},
		{TotalScore: 70, MutualFriendCount: 5},
		{TotalScore: 10, MutualFriendCount: 9},
	}

	sortCandidates(candidates)

	wantScores := []float64{70, 70, 40, 10}
	for i, want := range wantScores {
		if candidates[i].TotalScore != want {
			t.Fatalf("position %d score = %v, want %v", i, candidates[i].TotalScore, want)
		}
	}
	// Equal totals break ties on mutual count.
	if candidates[0].MutualFriendCount != 5 || candidates[1].MutualFriendCount != 2 {
		t.Errorf("tie not broken by mutual count: got %d then %d", candidates[0].MutualFriendCount, candidates[1].MutualFriendCount)
	}
}
