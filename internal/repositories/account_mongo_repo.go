package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prudhvinik1/authcore/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const accountsCollection = "users"

// accountDocument is the stored shape of an account in the users collection.
type accountDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Username     string             `bson:"username"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password"`
	FullName     *string            `bson:"full_name,omitempty"`
	ProfileBio   *string            `bson:"profile_bio,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	LastLogin    *time.Time         `bson:"last_login,omitempty"`
	IsActive     bool               `bson:"is_active"`
	IsVerified   bool               `bson:"is_verified"`
}

func newAccountDocument(a *models.Account) accountDocument {
	return accountDocument{
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		FullName:     a.FullName,
		ProfileBio:   a.ProfileBio,
		CreatedAt:    a.CreatedAt,
		LastLogin:    a.LastLogin,
		IsActive:     a.IsActive,
		IsVerified:   a.IsVerified,
	}
}

func (d accountDocument) toModel() *models.Account {
	return &models.Account{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FullName:     d.FullName,
		ProfileBio:   d.ProfileBio,
		CreatedAt:    d.CreatedAt,
		LastLogin:    d.LastLogin,
		IsActive:     d.IsActive,
		IsVerified:   d.IsVerified,
	}
}

type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewMongoAccountRepository(db *mongo.Database) *MongoAccountRepository {
	return &MongoAccountRepository{coll: db.Collection(accountsCollection)}
}

func (r *MongoAccountRepository) Create(ctx context.Context, account *models.Account) error {
	result, err := r.coll.InsertOne(ctx, newAccountDocument(account))
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("failed to create account: unexpected id type %T", result.InsertedID)
	}
	account.ID = id.Hex()
	return nil
}

func (r *MongoAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoAccountRepository) GetByUsernameOrEmail(ctx context.Context, identifier string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": identifier},
		bson.M{"email": identifier},
	}})
}

func (r *MongoAccountRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	// $max keeps last_login monotonic if updates land out of order.
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$max": bson.M{"last_login": at}})
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoAccountRepository) UpdateProfile(ctx context.Context, id string, update models.ProfileUpdate) (*models.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	set := bson.M{}
	if update.FullName != nil {
		set["full_name"] = *update.FullName
	}
	if update.ProfileBio != nil {
		set["profile_bio"] = *update.ProfileBio
	}
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	var doc accountDocument
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoAccountRepository) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var doc accountDocument
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "_id", Value: 1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return doc.toModel(), nil
}
