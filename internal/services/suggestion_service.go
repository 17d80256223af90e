package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SuggestionService ranks friend-of-friend candidates for a user
type SuggestionService struct {
	userService    *UserService
	userCollection *mongo.Collection
}

const (
	maxSuggestions = 10

	mutualFriendsWeight       = 40.0
	commonInterestsWeight     = 25.0
	sameLocationWeight        = 15.0
	sameRoleWeight            = 10.0
	profileCompletenessWeight = 5.0
	recentActivityWeight      = 5.0

	mutualFriendsSaturation   = 10
	commonInterestsSaturation = 5
	activityWindowDays        = 30.0
)

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(mongodb *database.MongoDB, userService *UserService) *SuggestionService {
	return &SuggestionService{
		userService:    userService,
		userCollection: mongodb.Collection(database.CollectionUsers),
	}
}

// SuggestFriends returns up to 10 scored friend-of-friend candidates for
// the given user, best first. Users with no accepted connections get an
// empty list, not an error.
func (s *SuggestionService) SuggestFriends(ctx context.Context, userID string) ([]models.FriendCandidate, error) {
	metricSuggestionRequests.Inc()

	user, err := s.userService.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	friends, err := s.userService.acceptedNeighborIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(friends) == 0 {
		return []models.FriendCandidate{}, nil
	}

	// Walk one hop out from each friend and group the candidates we land
	// on by who led us there.
	mutuals := make(map[primitive.ObjectID][]primitive.ObjectID)
	for _, friendID := range friends {
		theirFriends, err := s.userService.acceptedNeighborIDs(ctx, friendID)
		if err != nil {
			return nil, err
		}
		for _, candidateID := range theirFriends {
			mutuals[candidateID] = append(mutuals[candidateID], friendID)
		}
	}

	excluded, err := s.userService.connectedOrPendingIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	candidateIDs := make([]primitive.ObjectID, 0, len(mutuals))
	for candidateID := range mutuals {
		if candidateID == user.ID || excluded[candidateID] {
			continue
		}
		candidateIDs = append(candidateIDs, candidateID)
	}
	if len(candidateIDs) == 0 {
		return []models.FriendCandidate{}, nil
	}

	cursor, err := s.userCollection.Find(ctx, bson.M{"_id": bson.M{"$in": candidateIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var candidates []models.User
	if err := cursor.All(ctx, &candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}

	now := time.Now()
	results := make([]models.FriendCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		mutualIDs := mutuals[candidate.ID]
		breakdown := scoreCandidate(user, &candidate, len(mutualIDs), now)
		results = append(results, models.FriendCandidate{
			User:              candidate.Public(),
			MutualFriendIDs:   mutualIDs,
			MutualFriendCount: len(mutualIDs),
			ScoreBreakdown:    breakdown,
			TotalScore:        breakdown.Total(),
		})
	}

	sortCandidates(results)
	if len(results) > maxSuggestions {
		results = results[:maxSuggestions]
	}

	log.Printf("🤝 [SUGGEST] %d candidates ranked for user %s", len(results), userID)
	return results, nil
}

// scoreCandidate computes the full score breakdown for one candidate
func scoreCandidate(user, candidate *models.User, mutualCount int, now time.Time) models.ScoreBreakdown {
	return models.ScoreBreakdown{
		MutualFriends:       mutualFriendsScore(mutualCount),
		CommonInterests:     commonInterestsScore(user.Interests, candidate.Interests),
		SameLocation:        sameLocationScore(user.Location, candidate.Location),
		SameRole:            sameRoleScore(user.Role, candidate.Role),
		ProfileCompleteness: profileCompletenessScore(candidate),
		RecentActivity:      recentActivityScore(candidate.LastActiveAt, now),
	}
}

func mutualFriendsScore(count int) float64 {
	ratio := float64(count) / float64(mutualFriendsSaturation)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * mutualFriendsWeight
}

func commonInterestsScore(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	set := make(map[string]bool, len(a))
	for _, interest := range a {
		set[strings.ToLower(strings.TrimSpace(interest))] = true
	}

	shared := 0
	counted := make(map[string]bool)
	for _, interest := range b {
		key := strings.ToLower(strings.TrimSpace(interest))
		if set[key] && !counted[key] {
			shared++
			counted[key] = true
		}
	}

	ratio := float64(shared) / float64(commonInterestsSaturation)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * commonInterestsWeight
}

func sameLocationScore(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a != "" && a == b {
		return sameLocationWeight
	}
	return 0
}

func sameRoleScore(a, b string) float64 {
	if a != "" && strings.EqualFold(a, b) {
		return sameRoleWeight
	}
	return 0
}

func profileCompletenessScore(u *models.User) float64 {
	present := 0
	if strings.TrimSpace(u.Bio) != "" {
		present++
	}
	if strings.TrimSpace(u.Avatar) != "" {
		present++
	}
	if len(u.Interests) > 0 {
		present++
	}
	if strings.TrimSpace(u.Location) != "" {
		present++
	}
	if strings.TrimSpace(u.Company) != "" {
		present++
	}
	return float64(present) / 5.0 * profileCompletenessWeight
}

// recentActivityScore decays linearly over a 30 day window. Users who have
// never been seen active get half credit rather than zero.
func recentActivityScore(lastActive *time.Time, now time.Time) float64 {
	if lastActive == nil {
		return 0.5 * recentActivityWeight
	}
	days := now.Sub(*lastActive).Hours() / 24.0
	factor := 1.0 - days/activityWindowDays
	if factor < 0 {
		factor = 0
	}
	return factor * recentActivityWeight
}

// sortCandidates orders by total score descending, breaking ties on mutual
// friend count descending.
func sortCandidates(candidates []models.FriendCandidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].TotalScore != candidates[j].TotalScore {
			return candidates[i].TotalScore > candidates[j].TotalScore
		}
		return candidates[i].MutualFriendCount > candidates[j].MutualFriendCount
	})
}
