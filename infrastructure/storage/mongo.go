package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/rhaversen/GaslightBackend/internal/domain"
	"github.com/rhaversen/GaslightBackend/internal/ports"
)

// MongoStore connects the engine's store ports to MongoDB collections.
// Gradings and tournaments are write-once documents; only submissions
// are mutated after creation.
type MongoStore struct {
	client      *mongo.Client
	database    *mongo.Database
	collections struct {
		gradings    *mongo.Collection
		tournaments *mongo.Collection
		submissions *mongo.Collection
		users       *mongo.Collection
	}
}

// NewMongoStore connects to MongoDB, verifies the connection, and
// ensures the indexes the query patterns rely on.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{client: client, database: db}
	s.collections.gradings = db.Collection("gradings")
	s.collections.tournaments = db.Collection("tournaments")
	s.collections.submissions = db.Collection("submissions")
	s.collections.users = db.Collection("users")

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collections.gradings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "submissionId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create grading index: %w", err)
	}
	_, err = s.collections.tournaments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create tournament index: %w", err)
	}
	_, err = s.collections.submissions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "active", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create submission index: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Gradings returns the grading-store view.
func (s *MongoStore) Gradings() ports.GradingStore {
	return &mongoGradings{coll: s.collections.gradings}
}

// Tournaments returns the tournament-store view.
func (s *MongoStore) Tournaments() ports.TournamentStore {
	return &mongoTournaments{coll: s.collections.tournaments}
}

// Submissions returns the submission-store view.
func (s *MongoStore) Submissions() ports.SubmissionStore {
	return &mongoSubmissions{coll: s.collections.submissions}
}

// Users returns the user-lookup view.
func (s *MongoStore) Users() ports.UserReader {
	return &mongoUsers{coll: s.collections.users}
}

type mongoGradings struct{ coll *mongo.Collection }

func (g *mongoGradings) InsertMany(ctx context.Context, gradings []domain.Grading) error {
	docs := make([]any, len(gradings))
	for i, grading := range gradings {
		docs[i] = gradingToDoc(grading)
	}
	// Ordered inserts stop at the first failure so a partial batch is
	// detected and surfaced to the caller for compensation.
	if _, err := g.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return ports.NewStoreError("gradings", "insert_many", err)
	}
	return nil
}

func (g *mongoGradings) FindByIDs(ctx context.Context, ids []string) ([]domain.Grading, error) {
	cursor, err := g.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, ports.NewStoreError("gradings", "find_by_ids", err)
	}
	var docs []gradingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ports.NewStoreError("gradings", "decode", err)
	}
	gradings := make([]domain.Grading, len(docs))
	for i, doc := range docs {
		gradings[i] = doc.toDomain()
	}
	return gradings, nil
}

func (g *mongoGradings) DeleteByIDs(ctx context.Context, ids []string) error {
	if _, err := g.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return ports.NewStoreError("gradings", "delete_by_ids", err)
	}
	return nil
}

func (g *mongoGradings) DeleteBySubmission(ctx context.Context, submissionID string) error {
	if _, err := g.coll.DeleteMany(ctx, bson.M{"submissionId": submissionID}); err != nil {
		return ports.NewStoreError("gradings", "delete_by_submission", err)
	}
	return nil
}

type mongoTournaments struct{ coll *mongo.Collection }

func (t *mongoTournaments) Insert(ctx context.Context, tournament domain.Tournament) error {
	if _, err := t.coll.InsertOne(ctx, tournamentToDoc(tournament)); err != nil {
		return ports.NewStoreError("tournaments", "insert", err)
	}
	return nil
}

func (t *mongoTournaments) FindByID(ctx context.Context, id string) (domain.Tournament, error) {
	var doc tournamentDoc
	err := t.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Tournament{}, ports.ErrNotFound
		}
		return domain.Tournament{}, ports.NewStoreError("tournaments", "find_by_id", err)
	}
	return doc.toDomain(), nil
}

func (t *mongoTournaments) List(ctx context.Context, filter ports.TournamentFilter) ([]domain.Tournament, error) {
	query := bson.M{}
	createdAt := bson.M{}
	if filter.From != nil {
		createdAt["$gte"] = *filter.From
	}
	if filter.To != nil {
		createdAt["$lte"] = *filter.To
	}
	if len(createdAt) > 0 {
		query["createdAt"] = createdAt
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(filter.Skip)
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := t.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, ports.NewStoreError("tournaments", "list", err)
	}
	var docs []tournamentDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ports.NewStoreError("tournaments", "decode", err)
	}
	tournaments := make([]domain.Tournament, len(docs))
	for i, doc := range docs {
		tournaments[i] = doc.toDomain()
	}
	return tournaments, nil
}

type mongoSubmissions struct{ coll *mongo.Collection }

func (s *mongoSubmissions) FindByID(ctx context.Context, id string) (domain.Submission, error) {
	var doc submissionDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Submission{}, ports.ErrNotFound
		}
		return domain.Submission{}, ports.NewStoreError("submissions", "find_by_id", err)
	}
	return doc.toDomain(), nil
}

func (s *mongoSubmissions) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Submission, error) {
	cursor, err := s.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, ports.NewStoreError("submissions", "find_by_ids", err)
	}
	var docs []submissionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ports.NewStoreError("submissions", "decode", err)
	}
	submissions := make(map[string]domain.Submission, len(docs))
	for _, doc := range docs {
		submissions[doc.ID] = doc.toDomain()
	}
	return submissions, nil
}

func (s *mongoSubmissions) ListEligible(ctx context.Context) ([]domain.Submission, error) {
	return s.list(ctx, bson.M{"active": true, "evaluation.status": string(domain.EvaluationPassed)})
}

func (s *mongoSubmissions) ListOthers(ctx context.Context, excludeID string) ([]domain.Submission, error) {
	return s.list(ctx, bson.M{"_id": bson.M{"$ne": excludeID}})
}

func (s *mongoSubmissions) list(ctx context.Context, query bson.M) ([]domain.Submission, error) {
	cursor, err := s.coll.Find(ctx, query)
	if err != nil {
		return nil, ports.NewStoreError("submissions", "list", err)
	}
	var docs []submissionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ports.NewStoreError("submissions", "decode", err)
	}
	submissions := make([]domain.Submission, len(docs))
	for i, doc := range docs {
		submissions[i] = doc.toDomain()
	}
	return submissions, nil
}

func (s *mongoSubmissions) SetEvaluation(
	ctx context.Context,
	id string,
	record domain.EvaluationRecord,
	active bool,
) error {
	result, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"evaluation": evaluationToDoc(record),
			"active":     active,
		}},
	)
	if err != nil {
		return ports.NewStoreError("submissions", "set_evaluation", err)
	}
	if result.MatchedCount == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type mongoUsers struct{ coll *mongo.Collection }

func (u *mongoUsers) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"username": 1}))
	if err != nil {
		return nil, ports.NewStoreError("users", "display_names", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, ports.NewStoreError("users", "decode", err)
	}
	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.DisplayName
	}
	return names, nil
}

// Compile-time verification that the views satisfy the ports.
var (
	_ ports.GradingStore    = (*mongoGradings)(nil)
	_ ports.TournamentStore = (*mongoTournaments)(nil)
	_ ports.SubmissionStore = (*mongoSubmissions)(nil)
	_ ports.UserReader      = (*mongoUsers)(nil)
)
