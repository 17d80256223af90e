package services

import (
	"context"
	"fmt"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SaleService handles discount sales attached to posts
type SaleService struct {
	saleCollection *mongo.Collection
	postCollection *mongo.Collection
}

// NewSaleService creates a new sale service
func NewSaleService(mongodb *database.MongoDB) *SaleService {
	return &SaleService{
		saleCollection: mongodb.Collection(database.CollectionSales),
		postCollection: mongodb.Collection(database.CollectionPosts),
	}
}

// CreateSale attaches a sale to a post the seller authored. One sale per
// post.
func (s *SaleService) CreateSale(ctx context.Context, postID, sellerID string, price, discountPercent float64) (*models.Sale, error) {
	if price <= 0 {
		return nil, validationError("price must be positive")
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, validationError("discountPercent must be between 0 and 100")
	}

	postOID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, validationError("invalid post ID")
	}
	sellerOID, err := primitive.ObjectIDFromHex(sellerID)
	if err != nil {
		return nil, validationError("invalid seller ID")
	}

	count, err := s.postCollection.CountDocuments(ctx, bson.M{"_id": postOID, "author": sellerOID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify post: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("post")
	}

	now := time.Now()
	sale := &models.Sale{
		ID:              primitive.NewObjectID(),
		Post:            postOID,
		Seller:          sellerOID,
		Price:           price,
		DiscountPercent: discountPercent,
		Status:          models.SaleStatusActive,
		Buyers:          []models.SaleBuyer{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	sale.FinalPrice = sale.ComputeFinalPrice()

	if _, err := s.saleCollection.InsertOne(ctx, sale); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, validationError("post already has a sale")
		}
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}
	return sale, nil
}

// GetSaleByPost fetches the sale attached to a post
func (s *SaleService) GetSaleByPost(ctx context.Context, postID string) (*models.Sale, error) {
	postOID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, validationError("invalid post ID")
	}

	var sale models.Sale
	err = s.saleCollection.FindOne(ctx, bson.M{"post": postOID}).Decode(&sale)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("sale")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sale: %w", err)
	}
	return &sale, nil
}

// ListActiveSales pages through open sales, newest first
func (s *SaleService) ListActiveSales(ctx context.Context, limit, offset int64) ([]models.Sale, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cursor, err := s.saleCollection.Find(ctx, bson.M{"status": models.SaleStatusActive},
		options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit).SetSkip(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer cursor.Close(ctx)

	sales := []models.Sale{}
	if err := cursor.All(ctx, &sales); err != nil {
		return nil, fmt.Errorf("failed to decode sales: %w", err)
	}
	return sales, nil
}

// Buy records a purchase at the sale's current final price. Sellers cannot
// buy their own sale, and each buyer is recorded once.
func (s *SaleService) Buy(ctx context.Context, saleID, buyerID string) (*models.Sale, error) {
	saleOID, err := primitive.ObjectIDFromHex(saleID)
	if err != nil {
		return nil, validationError("invalid sale ID")
	}
	buyerOID, err := primitive.ObjectIDFromHex(buyerID)
	if err != nil {
		return nil, validationError("invalid buyer ID")
	}

	var sale models.Sale
	err = s.saleCollection.FindOne(ctx, bson.M{"_id": saleOID}).Decode(&sale)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("sale")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sale: %w", err)
	}

	if sale.Status != models.SaleStatusActive {
		return nil, validationError("sale is closed")
	}
	if sale.Seller == buyerOID {
		return nil, validationError("cannot buy your own sale")
	}
	for _, buyer := range sale.Buyers {
		if buyer.User == buyerOID {
			return nil, validationError("already purchased")
		}
	}

	entry := models.SaleBuyer{
		User:      buyerOID,
		PaidPrice: sale.ComputeFinalPrice(),
		BoughtAt:  time.Now(),
	}

	var updated models.Sale
	err = s.saleCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": saleOID, "status": models.SaleStatusActive, "buyers.user": bson.M{"$ne": buyerOID}},
		bson.M{
			"$push": bson.M{"buyers": entry},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, validationError("already purchased")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}
	return &updated, nil
}

// CloseSale ends a sale. Only the seller may close it.
func (s *SaleService) CloseSale(ctx context.Context, saleID, sellerID string) (*models.Sale, error) {
	saleOID, err := primitive.ObjectIDFromHex(saleID)
	if err != nil {
		return nil, validationError("invalid sale ID")
	}
	sellerOID, err := primitive.ObjectIDFromHex(sellerID)
	if err != nil {
		return nil, validationError("invalid seller ID")
	}

	var updated models.Sale
	err = s.saleCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": saleOID, "seller": sellerOID, "status": models.SaleStatusActive},
		bson.M{"$set": bson.M{"status": models.SaleStatusClosed, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("active sale")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to close sale: %w", err)
	}
	return &updated, nil
}
