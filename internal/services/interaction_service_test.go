package services

import (
	"testing"

	"gatherly/internal/models"
)

func TestValidReactions(t *testing.T) {
	for _, reaction := range []string{
		models.ReactionLike,
		models.ReactionLove,
		models.ReactionInsightful,
		models.ReactionCelebrate,
	} {
		if !validReactions[reaction] {
			t.Errorf("reaction %q not accepted", reaction)
		}
	}
	if validReactions["dislike"] {
		t.Error("unknown reaction accepted")
	}
}
