// Package model defines the data structures used throughout the application.
package model

import "strings"

// TimestampLayout is the canonical textual timestamp format used for every
// stored and exchanged timestamp: YYYY-MM-DD HH:MM:SS.
const TimestampLayout = "2006-01-02 15:04:05"

// UserType is the closed set of account kinds.
type UserType string

const (
	UserTypeStudent      UserType = "student"
	UserTypeTeacher      UserType = "teacher"
	UserTypeParent       UserType = "parent"
	UserTypePrivateTutor UserType = "private tutor"
)

// UserTypes lists every valid UserType in display order.
var UserTypes = []UserType{
	UserTypeStudent,
	UserTypeTeacher,
	UserTypeParent,
	UserTypePrivateTutor,
}

// ParseUserType returns the UserType named by s.
// "private_tutor" is accepted as an alias of "private tutor".
func ParseUserType(s string) (UserType, bool) {
	if s == "private_tutor" {
		return UserTypePrivateTutor, true
	}
	for _, t := range UserTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// User represents a registered user account.
//
// WHY PasswordHash HAS json:"-":
// The hash is loaded from the database for login checks but must never be
// serialised into a response. The "-" tag makes encoding/json skip it entirely.
//
// WHY DeletedAt IS *string WITH omitempty:
// A live user has no deletion timestamp. With a nil pointer and omitempty the
// key is absent from the JSON instead of being rendered as null.
type User struct {
	ID           int64    `json:"id"`
	FullName     string   `json:"fullName"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	UserType     UserType `json:"userType"`
	CreatedAt    string   `json:"createdAt"`
	DeletedAt    *string  `json:"deletedAt,omitempty"`
}

// CreateUserInput is the registration payload as received from a client.
// Fields are plain strings; validation decides what is acceptable.
type CreateUserInput struct {
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UserType  string `json:"userType"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// LoginInput is the payload for password login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserTypeList renders the valid user types as a comma-separated list.
func UserTypeList() string {
	names := make([]string, len(UserTypes))
	for i, t := range UserTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
