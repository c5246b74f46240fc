package models

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Profile holds the onboarding questionnaire for a user. At most one Profile
// exists per user, and a user may be onboarded with no Profile at all (the
// skip path for federated accounts), so readers must tolerate absence.
type Profile struct {
	ID           bson.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string        `bson:"userId" json:"userId"`
	Gender       string        `bson:"gender,omitempty" json:"gender"`
	DateOfBirth  string        `bson:"dateOfBirth,omitempty" json:"dateOfBirth"`
	ProfileType  string        `bson:"profileType,omitempty" json:"profileType"`
	Class        string        `bson:"class,omitempty" json:"class"`
	Syllabus     string        `bson:"syllabus,omitempty" json:"syllabus"`
	School       string        `bson:"school,omitempty" json:"school"`
	Bio          string        `bson:"bio,omitempty" json:"bio"`
	ProfileImage string        `bson:"profileImage,omitempty" json:"profileImage"`
	CreatedAt    int64         `bson:"createdAt" json:"createdAt"`
	UpdatedAt    int64         `bson:"updatedAt" json:"updatedAt"`
}

// ProfileFields are the client-settable fields of a Profile. Zero-valued
// fields are left untouched on merge.
type ProfileFields struct {
	Gender       string `json:"gender"`
	DateOfBirth  string `json:"dateOfBirth"`
	ProfileType  string `json:"profileType"`
	Class        string `json:"class"`
	Syllabus     string `json:"syllabus"`
	School       string `json:"school"`
	Bio          string `json:"bio"`
	ProfileImage string `json:"profileImage"`
}
