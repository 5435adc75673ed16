package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func CreateIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	kpiIndexes := []mongo.IndexModel{
		// DASHBOARD: all non-deleted KPIs, optionally per owner
		{
			Keys: bson.D{
				{Key: "is_deleted", Value: 1},
				{Key: "owner_id", Value: 1},
			},
			Options: options.Index().SetName("idx_is_deleted_owner_id"),
		},

		// ESCALATIONS: overdue scan by due date
		{
			Keys: bson.D{
				{Key: "is_deleted", Value: 1},
				{Key: "due_date", Value: 1},
			},
			Options: options.Index().SetName("idx_is_deleted_due_date"),
		},
	}
	if _, err := db.Collection("kpis").Indexes().CreateMany(ctx, kpiIndexes); err != nil {
		return fmt.Errorf("failed to create KPI indexes: %v", err)
	}

	valueIndexes := []mongo.IndexModel{
		// STATUS/REMINDER: value lookup by (kpi, period). Deliberately not
		// unique: the duplicate engine owns the one-value-per-period rule.
		{
			Keys: bson.D{
				{Key: "kpi_id", Value: 1},
				{Key: "period", Value: 1},
			},
			Options: options.Index().SetName("idx_kpi_id_period"),
		},

		// STATISTICS: history newest first
		{
			Keys: bson.D{
				{Key: "kpi_id", Value: 1},
				{Key: "metadata.created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_kpi_id_created_at"),
		},

		// EVIDENCE: file lookups
		{
			Keys: bson.D{
				{Key: "evidence.file_id", Value: 1},
			},
			Options: options.Index().SetName("idx_evidence_file_id"),
		},
	}
	if _, err := db.Collection("kpi_values").Indexes().CreateMany(ctx, valueIndexes); err != nil {
		return fmt.Errorf("failed to create value indexes: %v", err)
	}

	logIndexes := []mongo.IndexModel{
		// THROTTLE: one last-sent entry per KPI
		{
			Keys:    bson.D{{Key: "kpi_id", Value: 1}},
			Options: options.Index().SetName("idx_reminder_log_kpi_id").SetUnique(true),
		},
	}
	if _, err := db.Collection("reminder_log").Indexes().CreateMany(ctx, logIndexes); err != nil {
		return fmt.Errorf("failed to create reminder log indexes: %v", err)
	}

	fmt.Println("Indexes created successfully")
	return nil
}
