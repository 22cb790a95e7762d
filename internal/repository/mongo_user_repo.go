package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/account-service/internal/models"
)

type mongoUserRepo struct {
	col *mongo.Collection
}

// NewMongoUserRepo builds the Mongo-backed repository and ensures the two
// partial unique indexes. Each index only covers documents that carry the
// field, so accounts without an email (or phone) do not collide.
func NewMongoUserRepo(ctx context.Context, db *mongo.Database, collection string) (UserRepository, error) {
	col := db.Collection(collection)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"email": bson.M{"$exists": true, "$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().
				SetName("phone_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"phone_number": bson.M{"$exists": true, "$gt": ""}}),
		},
	})
	if err != nil {
		return nil, err
	}
	return &mongoUserRepo{col: col}, nil
}

func (r *mongoUserRepo) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		return mapDuplicateKey(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// mapDuplicateKey translates an E11000 write error into the violated
// constraint, using the explicit index names set above.
func mapDuplicateKey(err error) error {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code != 11000 {
				continue
			}
			if strings.Contains(e.Message, "phone_unique") {
				return ErrDuplicatePhone
			}
			return ErrDuplicateEmail
		}
	}
	return err
}

func (r *mongoUserRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	err := r.col.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoUserRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"phone_number": phone})
}

func (r *mongoUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *mongoUserRepo) FindByEmailAndPhone(ctx context.Context, email, phone string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email, "phone_number": phone})
}

func (r *mongoUserRepo) FindByIdentifiers(ctx context.Context, username, email, phone string) (*models.User, error) {
	var or []bson.M
	if username != "" {
		or = append(or, bson.M{"name": username})
	}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if phone != "" {
		or = append(or, bson.M{"phone_number": phone})
	}
	if len(or) == 0 {
		return nil, ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or})
}

func (r *mongoUserRepo) UpdateFields(ctx context.Context, id string, patch models.UserPatch) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrUserNotFound
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.IsEmailVerified != nil {
		set["is_email_verified"] = *patch.IsEmailVerified
	}
	if patch.IsPhoneVerified != nil {
		set["is_phone_verified"] = *patch.IsPhoneVerified
	}
	if patch.IsActive != nil {
		set["is_active"] = *patch.IsActive
	}
	if patch.Provider != nil {
		set["provider"] = *patch.Provider
	}
	if patch.EmailVerificationOTP != nil {
		set["email_verification_otp"] = *patch.EmailVerificationOTP
	}
	if patch.PhoneVerificationOTP != nil {
		set["phone_verification_otp"] = *patch.PhoneVerificationOTP
	}
	if patch.VerificationOTPExpiry != nil {
		set["verification_otp_expiry"] = *patch.VerificationOTPExpiry
	}
	if patch.LastLogin != nil {
		set["last_login"] = *patch.LastLogin
	}

	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
