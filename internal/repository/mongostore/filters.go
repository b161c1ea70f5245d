package mongostore

import (
	"regexp"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// dueOrder matches the relational ordering: due date, creation time, id.
var dueOrder = bson.D{
	{Key: "dueDate", Value: 1},
	{Key: "createdAt", Value: 1},
	{Key: "_id", Value: 1},
}

func ownedFilter(id, ownerID string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: ownerID}}
}

func listFilter(ownerID string, filter repository.TaskFilter) bson.D {
	f := bson.D{{Key: "userId", Value: ownerID}}
	if filter.Completed != nil {
		f = append(f, bson.E{Key: "completed", Value: *filter.Completed})
	}
	return f
}

// searchFilter matches term literally, case-insensitively, in either field.
func searchFilter(ownerID, term string) bson.D {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	return bson.D{
		{Key: "userId", Value: ownerID},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: pattern}},
			bson.D{{Key: "description", Value: pattern}},
		}},
	}
}

func dueFilter(start, end time.Time, ownerID *string) bson.D {
	f := bson.D{
		{Key: "completed", Value: false},
		{Key: "dueDate", Value: bson.D{
			{Key: "$gte", Value: start.UTC()},
			{Key: "$lte", Value: end.UTC()},
		}},
	}
	if ownerID != nil {
		f = append(f, bson.E{Key: "userId", Value: *ownerID})
	}
	return f
}

// patchUpdate builds a $set document. Keys follow the stored field names.
func patchUpdate(patch repository.TaskPatch, now time.Time) bson.D {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: string(*patch.Priority)})
	}
	if patch.DueDate != nil {
		set = append(set, bson.E{Key: "dueDate", Value: patch.DueDate.UTC()})
	}
	if patch.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *patch.Completed})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: now})
	return bson.D{{Key: "$set", Value: set}}
}

// toggleUpdate is an aggregation pipeline update so the flip happens inside
// the single findOneAndUpdate.
func toggleUpdate(now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "completed", Value: bson.D{{Key: "$not", Value: bson.A{"$completed"}}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
}
