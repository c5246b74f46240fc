package models

import "time"

// QuizResult is a completed quiz attempt saved for the authenticated user.
type QuizResult struct {
	ID                 string             `bson:"_id,omitempty" json:"id"`
	UserID             string             `bson:"user_id" json:"user_id"`
	QuizID             string             `bson:"quiz_id" json:"quiz_id"`
	Subject            string             `bson:"subject,omitempty" json:"subject"`
	FinalScore         float64            `bson:"final_score" json:"final_score"`
	Percentage         float64            `bson:"percentage" json:"percentage"`
	QuestionsAttempted int                `bson:"questions_attempted" json:"questions_attempted"`
	QuestionsCorrect   int                `bson:"questions_correct" json:"questions_correct"`
	TimeSpentSeconds   int                `bson:"time_spent_seconds" json:"time_spent_seconds"`
	SectionBreakdown   map[string]float64 `bson:"section_breakdown,omitempty" json:"section_breakdown,omitempty"`
	CompletionType     string             `bson:"completion_type" json:"completion_type"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
}
