package services

import (
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLastMessagePreview(t *testing.T) {
	sender := primitive.NewObjectID()
	at := time.Now()

	short := lastMessagePreview("hello there", sender, at)
	if short.Content != "hello there" {
		t.Errorf("content = %q, want body unchanged", short.Content)
	}
	if short.Sender != sender {
		t.Error("preview lost the sender")
	}
	if !short.CreatedAt.Equal(at) {
		t.Error("preview lost the timestamp")
	}

	long := lastMessagePreview(strings.Repeat("x", 200), sender, at)
	if len(long.Content) != 80 {
		t.Errorf("long content = %d bytes, want truncated to 80", len(long.Content))
	}
}

func TestParticipantPair(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	forward := participantPair(a, b)
	backward := participantPair(b, a)
	if forward[0] != backward[0] || forward[1] != backward[1] {
		t.Error("pair order should not depend on argument order")
	}
	if forward[0].Hex() > forward[1].Hex() {
		t.Error("pair should be sorted")
	}
}
