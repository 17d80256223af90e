package services

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewBoothProduct(t *testing.T) {
	booth := primitive.NewObjectID()
	now := time.Now()
	input := AddProductInput{
		Name:        "  Poster  ",
		Description: "A3 print",
		Media:       []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
		Link:        "https://example.com/poster",
		Category:    "merch",
	}

	product := newBoothProduct(booth, input, now)
	if product.Name != "Poster" {
		t.Errorf("name = %q, want trimmed", product.Name)
	}
	if len(product.Media) != 2 {
		t.Errorf("media = %v, want both URLs kept", product.Media)
	}
	if product.Booth != booth {
		t.Error("booth not carried over")
	}
	if !product.CreatedAt.Equal(now) || !product.UpdatedAt.Equal(now) {
		t.Error("timestamps not set from now")
	}
}
