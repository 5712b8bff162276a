// Package mongo hosts the MongoDB client used by the lineage store.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"goa.design/clue/health"
)

const (
	defaultRunsCollection = "agent_run_lineage"
	defaultOpTimeout      = 5 * time.Second
	lineageClientName     = "lineage-mongo"
)

// ErrDuplicate reports an insert that collided with an existing
// (thread id, run id) pair. The store maps it onto its own sentinel.
var ErrDuplicate = errors.New("duplicate run document")

type (
	// Run is the lineage document stored per run.
	Run struct {
		// ThreadID identifies the conversation.
		ThreadID string
		// RunID identifies the run within the thread.
		RunID string
		// ParentRunID names the lineage parent, empty for a root run.
		ParentRunID string
		// StartedAt is when the run started.
		StartedAt time.Time
	}

	// Client exposes Mongo-backed operations for run lineage.
	Client interface {
		health.Pinger

		// InsertRun appends a run document. Returns ErrDuplicate when the
		// (thread id, run id) pair already exists.
		InsertRun(ctx context.Context, run Run) error
		// FindRun loads a run document, reporting whether it exists.
		FindRun(ctx context.Context, threadID, runID string) (Run, bool, error)
		// FindChildren returns the run ids recorded with runID as parent, in
		// insertion order.
		FindChildren(ctx context.Context, threadID, runID string) ([]string, error)
	}

	// Options configures the Mongo lineage client.
	Options struct {
		Client     *mongodriver.Client
		Database   string
		Collection string
		Timeout    time.Duration
	}
)

type client struct {
	mongo   *mongodriver.Client
	coll    collection
	timeout time.Duration
}

// New returns a Client backed by MongoDB. It ensures the unique
// (thread_id, run_id) index on construction.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultRunsCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	mcoll := opts.Client.Database(opts.Database).Collection(collName)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	wrapper := mongoCollection{coll: mcoll}
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return newClientWithCollection(opts.Client, wrapper, timeout)
}

func (c *client) Name() string {
	return lineageClientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) InsertRun(ctx context.Context, run Run) error {
	if run.ThreadID == "" || run.RunID == "" {
		return errors.New("thread id and run id are required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	_, err := c.coll.InsertOne(ctx, fromRun(run))
	if mongodriver.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (c *client) FindRun(ctx context.Context, threadID, runID string) (Run, bool, error) {
	if threadID == "" || runID == "" {
		return Run{}, false, errors.New("thread id and run id are required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"thread_id": threadID, "run_id": runID}
	var doc runDocument
	if err := c.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	return doc.toRun(), true, nil
}

func (c *client) FindChildren(ctx context.Context, threadID, runID string) ([]string, error) {
	if threadID == "" || runID == "" {
		return nil, errors.New("thread id and run id are required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"thread_id": threadID, "parent_run_id": runID}
	docs, err := c.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "started_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	children := make([]string, 0, len(docs))
	for _, doc := range docs {
		children = append(children, doc.RunID)
	}
	return children, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type runDocument struct {
	ThreadID    string    `bson:"thread_id"`
	RunID       string    `bson:"run_id"`
	ParentRunID string    `bson:"parent_run_id,omitempty"`
	StartedAt   time.Time `bson:"started_at"`
}

func fromRun(run Run) runDocument {
	return runDocument{
		ThreadID:    run.ThreadID,
		RunID:       run.RunID,
		ParentRunID: run.ParentRunID,
		StartedAt:   run.StartedAt.UTC(),
	}
}

func (doc runDocument) toRun() Run {
	return Run{
		ThreadID:    doc.ThreadID,
		RunID:       doc.RunID,
		ParentRunID: doc.ParentRunID,
		StartedAt:   doc.StartedAt,
	}
}

func ensureIndexes(ctx context.Context, coll collection) error {
	index := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "thread_id", Value: 1}, {Key: "run_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := coll.Indexes().CreateOne(ctx, index)
	return err
}

func newClientWithCollection(mongoClient *mongodriver.Client, coll collection, timeout time.Duration) (*client, error) {
	if coll == nil {
		return nil, errors.New("collection is required")
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{
		mongo:   mongoClient,
		coll:    coll,
		timeout: timeout,
	}, nil
}

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult
	InsertOne(ctx context.Context, doc any, opts ...*options.InsertOneOptions) (*mongodriver.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]runDocument, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...*options.CreateIndexesOptions) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) singleResult {
	return mongoSingleResult{res: c.coll.FindOne(ctx, filter, opts...)}
}

func (c mongoCollection) InsertOne(ctx context.Context, doc any, opts ...*options.InsertOneOptions) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, doc, opts...)
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) ([]runDocument, error) {
	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoSingleResult struct {
	res *mongodriver.SingleResult
}

func (r mongoSingleResult) Decode(val any) error {
	return r.res.Decode(val)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...*options.CreateIndexesOptions) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
