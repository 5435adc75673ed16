package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interval is the measurement cadence of a KPI.
type Interval string

const (
	IntervalWeekly    Interval = "weekly"
	IntervalMonthly   Interval = "monthly"
	IntervalQuarterly Interval = "quarterly"
)

func (i Interval) IsValid() bool {
	switch i {
	case IntervalWeekly, IntervalMonthly, IntervalQuarterly:
		return true
	}
	return false
}

type KPI struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description string             `json:"description" bson:"description" validate:"max=500"`
	Interval    Interval           `json:"interval" bson:"interval" validate:"required"`
	DueDate     time.Time          `json:"due_date" bson:"due_date"`
	Target      *float64           `json:"target,omitempty" bson:"target,omitempty"`
	Unit        string             `json:"unit" bson:"unit" validate:"max=30"`
	OwnerID     string             `json:"owner_id" bson:"owner_id" validate:"required"`
	OwnerName   OwnerName          `json:"owner_name" bson:"owner_name"`
	IsDeleted   bool               `json:"is_deleted" bson:"is_deleted"`
	Metadata    Metadata           `json:"metadata" bson:"metadata"`
}

// OwnerName carries the recipient name parts used for reminder personalization.
type OwnerName struct {
	FirstName string `json:"first_name" bson:"first_name"`
	LastName  string `json:"last_name" bson:"last_name"`
	Title     string `json:"title" bson:"title"`
}

type KPIValue struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	KPIID    primitive.ObjectID `json:"kpi_id" bson:"kpi_id" validate:"required"`
	Period   string             `json:"period" bson:"period" validate:"required"`
	Value    float64            `json:"value" bson:"value"`
	Comment  string             `json:"comment" bson:"comment" validate:"max=500"`
	Evidence []Attachment       `json:"evidence" bson:"evidence"`
	Metadata Metadata           `json:"metadata" bson:"metadata"`
}

type Metadata struct {
	CreatedBy string    `json:"created_by" bson:"created_by"`
	UpdatedBy string    `json:"updated_by" bson:"updated_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type Attachment struct {
	FileID   primitive.ObjectID `bson:"file_id" json:"file_id"`   // GridFS file ID
	Filename string             `bson:"filename" json:"filename"` // Original filename
}
