package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is an anonymous note embedded in its owner's document.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// User represents an account. An account is usable for sign-in only once
// IsVerified is true. VerifyCode is overwritten on every signup cycle but is
// not cleared when verification succeeds.
type User struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username            string             `bson:"username" json:"username"`
	Email               string             `bson:"email" json:"email"`
	Password            string             `bson:"password" json:"-"`
	VerifyCode          string             `bson:"verifyCode" json:"-"`
	VerifyCodeExpiry    time.Time          `bson:"verifyCodeExpiry" json:"-"`
	IsVerified          bool               `bson:"isVerified" json:"isVerified"`
	IsAcceptingMessages bool               `bson:"isAcceptingMessages" json:"isAcceptingMessages"`
	Messages            []Message          `bson:"messages" json:"-"`
}
