package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	MobileNumber string             `bson:"mobileNumber" json:"mobileNumber"`
	Password     string             `bson:"password" json:"-"` // Hide from JSON responses
	Address      string             `bson:"address" json:"address"`
	DateOfBirth  string             `bson:"dateOfBirth" json:"dateOfBirth"`

	EmailVerified  bool       `bson:"emailVerified" json:"emailVerified"`
	EmailOTP       string     `bson:"emailOTP,omitempty" json:"-"`
	EmailOTPExpiry *time.Time `bson:"emailOTPExpiry,omitempty" json:"-"`

	IsAdmin  bool `bson:"isAdmin" json:"isAdmin"`
	IsDoctor bool `bson:"isDoctor" json:"isDoctor"`

	Notifications     []Notification    `bson:"notification" json:"notification"`
	SeenNotifications []Notification    `bson:"seenNotification" json:"seenNotification"`
	PushSubscription  *PushSubscription `bson:"pushSubscription,omitempty" json:"pushSubscription,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// FullName prefers the split name fields and falls back to the legacy name.
func (u *User) FullName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Name
}

// PushSubscription is the browser PushSubscription JSON as produced by the
// Push API.
type PushSubscription struct {
	Endpoint string   `bson:"endpoint" json:"endpoint" binding:"required,url"`
	Keys     PushKeys `bson:"keys" json:"keys" binding:"required"`
}

type PushKeys struct {
	P256dh string `bson:"p256dh" json:"p256dh" binding:"required"`
	Auth   string `bson:"auth" json:"auth" binding:"required"`
}

// Registration is the profile completed by a user whose email was verified.
type Registration struct {
	FirstName    string
	LastName     string
	MobileNumber string
	PasswordHash string
	Address      string
	DateOfBirth  string
}
