package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dharsanguruparan/filevault/internal/common"
	"github.com/dharsanguruparan/filevault/internal/model"
)

const (
	usersCollection = "users"
	filesCollection = "files"
)

type userDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
}

// fileDoc mirrors the persisted shape: parentId holds either the string "0"
// or the parent's ObjectID.
type fileDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	UserID    primitive.ObjectID `bson:"userId"`
	Name      string             `bson:"name"`
	Type      string             `bson:"type"`
	IsPublic  bool               `bson:"isPublic"`
	ParentID  interface{}        `bson:"parentId"`
	LocalPath string             `bson:"localPath,omitempty"`
}

// MongoStore persists records in the users and files collections.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	files  *mongo.Collection
}

// NewMongoStore binds the store to a database of a connected client.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		files:  db.Collection(filesCollection),
	}
}

// EnsureIndexes creates the unique email index and the listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users index: %w", err)
	}
	_, err = s.files.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("files index: %w", err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateUser(ctx context.Context, user *model.User) error {
	oid, err := newOrParse(user.ID)
	if err != nil {
		return err
	}
	_, err = s.users.InsertOne(ctx, userDoc{ID: oid, Email: user.Email, Password: user.Password})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = oid.Hex()
	return nil
}

func (s *MongoStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *MongoStore) UserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &model.User{ID: doc.ID.Hex(), Email: doc.Email, Password: doc.Password}, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	return s.users.CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) CreateFile(ctx context.Context, file *model.File) error {
	oid, err := newOrParse(file.ID)
	if err != nil {
		return err
	}
	owner, err := primitive.ObjectIDFromHex(file.UserID)
	if err != nil {
		return fmt.Errorf("owner id: %w", err)
	}
	parent, err := parentToBSON(file.Parent)
	if err != nil {
		return err
	}
	doc := fileDoc{
		ID:        oid,
		UserID:    owner,
		Name:      file.Name,
		Type:      string(file.Type),
		IsPublic:  file.IsPublic,
		ParentID:  parent,
		LocalPath: file.LocalPath,
	}
	if _, err := s.files.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	file.ID = oid.Hex()
	return nil
}

func (s *MongoStore) FileByID(ctx context.Context, id string) (*model.File, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrNotFound
	}
	return s.findFile(ctx, bson.M{"_id": oid})
}

func (s *MongoStore) FileByOwner(ctx context.Context, id, userID string) (*model.File, error) {
	filter, ok := ownedFilter(id, userID)
	if !ok {
		return nil, common.ErrNotFound
	}
	return s.findFile(ctx, filter)
}

func (s *MongoStore) findFile(ctx context.Context, filter bson.M) (*model.File, error) {
	var doc fileDoc
	if err := s.files.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) ListFiles(ctx context.Context, userID string, parent model.Parent, skip, limit int) ([]*model.File, error) {
	if skip < 0 {
		return []*model.File{}, nil
	}
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return []*model.File{}, nil
	}
	parentValue, err := parentToBSON(parent)
	if err != nil {
		return []*model.File{}, nil
	}
	cursor, err := s.files.Aggregate(ctx, listPipeline(owner, parentValue, skip, limit))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer cursor.Close(ctx)
	out := make([]*model.File, 0, limit)
	for cursor.Next(ctx) {
		var doc fileDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode file: %w", err)
		}
		out = append(out, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

func (s *MongoStore) SetPublic(ctx context.Context, id, userID string, public bool) (*model.File, error) {
	filter, ok := ownedFilter(id, userID)
	if !ok {
		return nil, common.ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc fileDoc
	err := s.files.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M{"isPublic": public}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("update file: %w", err)
	}
	return doc.toModel(), nil
}

func (s *MongoStore) CountFiles(ctx context.Context) (int64, error) {
	return s.files.CountDocuments(ctx, bson.M{})
}

func listPipeline(owner primitive.ObjectID, parent interface{}, skip, limit int) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "userId", Value: owner}, {Key: "parentId", Value: parent}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64(skip)}},
		{{Key: "$limit", Value: int64(limit)}},
	}
}

func ownedFilter(id, userID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "userId": owner}, true
}

func newOrParse(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NewObjectID(), nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("record id: %w", err)
	}
	return oid, nil
}

func parentToBSON(p model.Parent) (interface{}, error) {
	if p.IsRoot() {
		return model.RootValue, nil
	}
	oid, err := primitive.ObjectIDFromHex(p.ID())
	if err != nil {
		return nil, fmt.Errorf("parent id: %w", err)
	}
	return oid, nil
}

func parentFromBSON(v interface{}) model.Parent {
	switch p := v.(type) {
	case primitive.ObjectID:
		return model.Folder(p.Hex())
	case string:
		return model.Folder(p)
	}
	return model.Root
}

func (d fileDoc) toModel() *model.File {
	return &model.File{
		ID:        d.ID.Hex(),
		UserID:    d.UserID.Hex(),
		Name:      d.Name,
		Type:      model.FileType(d.Type),
		IsPublic:  d.IsPublic,
		Parent:    parentFromBSON(d.ParentID),
		LocalPath: d.LocalPath,
	}
}
