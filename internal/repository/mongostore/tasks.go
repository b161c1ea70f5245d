package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/todoapp/todo-reminder-api/internal/models"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskRepository implements repository.TaskRepository on the todos collection.
type TaskRepository struct {
	store *Store
	coll  *mongo.Collection
	users *mongo.Collection
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	task.PrepareInsert()
	now := r.store.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByOwner(ctx context.Context, ownerID string, filter repository.TaskFilter) ([]models.Task, error) {
	opts := options.Find().SetSort(dueOrder)
	if filter.Pagination.Enabled() {
		opts.SetSkip(int64(filter.Pagination.Offset)).SetLimit(int64(filter.Pagination.Limit))
	}
	return r.find(ctx, listFilter(ownerID, filter), opts)
}

func (r *TaskRepository) FindByIDForOwner(ctx context.Context, id, ownerID string) (*models.Task, error) {
	var task models.Task
	if err := r.coll.FindOne(ctx, ownedFilter(id, ownerID)).Decode(&task); err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepository) Search(ctx context.Context, ownerID, term string) ([]models.Task, error) {
	return r.find(ctx, searchFilter(ownerID, term), options.Find().SetSort(dueOrder))
}

// FindDueWithin loads the owners with a second $in query, the equivalent of
// a populate on userId.
func (r *TaskRepository) FindDueWithin(ctx context.Context, start, end time.Time, ownerID *string) ([]models.Task, error) {
	tasks, err := r.find(ctx, dueFilter(start, end, ownerID), options.Find().SetSort(dueOrder))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	seen := make(map[string]struct{}, len(tasks))
	ids := bson.A{}
	for _, t := range tasks {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		ids = append(ids, t.UserID)
	}

	cursor, err := r.users.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, fmt.Errorf("load task owners: %w", err)
	}
	var owners []models.User
	if err := cursor.All(ctx, &owners); err != nil {
		return nil, fmt.Errorf("decode task owners: %w", err)
	}

	byID := make(map[string]models.User, len(owners))
	for _, u := range owners {
		byID[u.ID] = u
	}
	for i := range tasks {
		tasks[i].User = byID[tasks[i].UserID]
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, id, ownerID string, patch repository.TaskPatch) (*models.Task, error) {
	if patch.Empty() {
		return r.FindByIDForOwner(ctx, id, ownerID)
	}
	return r.findOneAndUpdate(ctx, id, ownerID, patchUpdate(patch, r.store.now()))
}

func (r *TaskRepository) Toggle(ctx context.Context, id, ownerID string) (*models.Task, error) {
	return r.findOneAndUpdate(ctx, id, ownerID, toggleUpdate(r.store.now()))
}

func (r *TaskRepository) Delete(ctx context.Context, id, ownerID string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, ownedFilter(id, ownerID))
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *TaskRepository) findOneAndUpdate(ctx context.Context, id, ownerID string, update interface{}) (*models.Task, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var task models.Task
	if err := r.coll.FindOneAndUpdate(ctx, ownedFilter(id, ownerID), update, opts).Decode(&task); err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r *TaskRepository) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]models.Task, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}
	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func translate(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return err
}
