package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/steveos/steve-mcp/pkg/types"
)

const (
	productsCollection = "products"
	tasksCollection    = "tasks"

	defaultTaskLimit = 10
	maxTaskLimit     = 100
)

// MongoStore implements Store against a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

// Connect dials MongoDB and returns a read-only store bound to the named
// database.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to document store: %w", err)
	}
	return &MongoStore{db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Client().Disconnect(ctx)
}

// Ping verifies store connectivity.
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

type productDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	WorkspaceID any                `bson:"workspace_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	CreatedAt   time.Time          `bson:"created_at,omitempty"`
}

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	ProductID   any                `bson:"product_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description,omitempty"`
	Status      string             `bson:"status"`
	Priority    string             `bson:"priority,omitempty"`
	Type        string             `bson:"type,omitempty"`
	AssignedTo  []string           `bson:"assigned_to,omitempty"`
	Tags        []string           `bson:"tags,omitempty"`
	StartDate   *time.Time         `bson:"start_date,omitempty"`
	DueDate     *time.Time         `bson:"due_date,omitempty"`
	CreatedAt   time.Time          `bson:"created_at,omitempty"`
	UpdatedAt   time.Time          `bson:"updated_at,omitempty"`
}

// ListProducts returns the products in a workspace, newest first. An empty
// workspace yields an empty slice, not an error.
func (s *MongoStore) ListProducts(ctx context.Context, workspaceID string) ([]types.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(productsCollection).Find(ctx, productFilter(workspaceID), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: listing products: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decoding products: %v", ErrUnavailable, err)
	}

	products := make([]types.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, types.Product{
			ID:          doc.ID.Hex(),
			WorkspaceID: idToString(doc.WorkspaceID),
			Name:        doc.Name,
			Description: doc.Description,
			CreatedAt:   doc.CreatedAt,
		})
	}
	return products, nil
}

// ListTasks returns tasks matching the filter, due-soonest first.
func (s *MongoStore) ListTasks(ctx context.Context, filter TaskFilter) ([]types.Task, error) {
	page, limit := normalizePagination(filter.Page, filter.Limit)
	opts := options.Find().
		SetSort(bson.D{{Key: "due_date", Value: 1}, {Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.db.Collection(tasksCollection).Find(ctx, taskFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: listing tasks: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decoding tasks: %v", ErrUnavailable, err)
	}

	tasks := make([]types.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, types.Task{
			ID:          doc.ID.Hex(),
			ProductID:   idToString(doc.ProductID),
			Name:        doc.Name,
			Description: doc.Description,
			Status:      doc.Status,
			Priority:    doc.Priority,
			Type:        doc.Type,
			AssignedTo:  doc.AssignedTo,
			Tags:        doc.Tags,
			StartDate:   doc.StartDate,
			DueDate:     doc.DueDate,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
		})
	}
	return tasks, nil
}

func productFilter(workspaceID string) bson.D {
	return bson.D{{Key: "workspace_id", Value: idValue(workspaceID)}}
}

func taskFilter(filter TaskFilter) bson.D {
	query := bson.D{{Key: "workspace_id", Value: idValue(filter.WorkspaceID)}}
	if productID := strings.TrimSpace(filter.ProductID); productID != "" {
		query = append(query, bson.E{Key: "product_id", Value: idValue(productID)})
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = append(query, bson.E{Key: "status", Value: status})
	}
	if priority := strings.TrimSpace(filter.Priority); priority != "" {
		query = append(query, bson.E{Key: "priority", Value: priority})
	}
	if taskType := strings.TrimSpace(filter.Type); taskType != "" {
		query = append(query, bson.E{Key: "type", Value: taskType})
	}
	return query
}

// idValue matches both ObjectID and plain-string id fields, since older
// Steve collections store workspace references as strings.
func idValue(id string) any {
	trimmed := strings.TrimSpace(id)
	if objectID, err := primitive.ObjectIDFromHex(trimmed); err == nil {
		return bson.D{{Key: "$in", Value: bson.A{objectID, trimmed}}}
	}
	return trimmed
}

func idToString(value any) string {
	switch typed := value.(type) {
	case primitive.ObjectID:
		return typed.Hex()
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return ""
	}
}

func normalizePagination(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultTaskLimit
	}
	if limit > maxTaskLimit {
		limit = maxTaskLimit
	}
	return page, limit
}
