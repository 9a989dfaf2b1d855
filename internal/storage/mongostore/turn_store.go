package mongostore

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

// turnDocument is the persisted shape of a chat.Turn.
type turnDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	Role      string             `bson:"role"`
	Text      string             `bson:"text"`
	Username  string             `bson:"username,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

type probeEntry struct {
	Sender   string   `bson:"sender"`
	Messages []string `bson:"messages"`
}

type probeDocument struct {
	Messages []probeEntry `bson:"messages"`
}

// TurnStore implements chat.TurnStore on a single collection.
type TurnStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

var _ chat.TurnStore = (*TurnStore)(nil)

// NewTurnStore binds the store to an existing collection handle.
func NewTurnStore(coll *mongo.Collection) *TurnStore {
	return &TurnStore{
		coll: coll,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// InsertTurn writes one turn document.
func (s *TurnStore) InsertTurn(ctx context.Context, turn chat.Turn) (chat.Turn, error) {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	doc := turnDocument{
		SessionID: turn.SessionID,
		Role:      string(turn.Role),
		Text:      turn.Text,
		CreatedAt: turn.CreatedAt,
	}
	if turn.Role == chat.RoleUser {
		doc.Username = turn.Username
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return chat.Turn{}, fmt.Errorf("insert %s turn: %w", turn.Role, err)
	}
	return turn, nil
}

// FindBySession reads the requested window and returns it oldest first.
// A Latest window is queried newest first and reversed after decoding.
func (s *TurnStore) FindBySession(ctx context.Context, sessionID string, window chat.Window) ([]chat.Turn, error) {
	direction := 1
	if window.Latest {
		direction = -1
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: direction}})
	if window.Limit > 0 {
		opts.SetLimit(int64(window.Limit))
	}

	cursor, err := s.coll.Find(ctx, bson.D{{Key: "session_id", Value: sessionID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find turns: %w", err)
	}

	var docs []turnDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}

	turns := make([]chat.Turn, 0, len(docs))
	for _, doc := range docs {
		turns = append(turns, chat.Turn{
			SessionID: doc.SessionID,
			Role:      chat.Role(doc.Role),
			Text:      doc.Text,
			Username:  doc.Username,
			CreatedAt: doc.CreatedAt.UTC(),
		})
	}
	if window.Latest {
		slices.Reverse(turns)
	}
	return turns, nil
}

// Probe inserts the startup diagnostic document. It is never read back.
func (s *TurnStore) Probe(ctx context.Context) (string, error) {
	doc := probeDocument{
		Messages: []probeEntry{{Sender: "system", Messages: []string{}}},
	}

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert probe document: %w", err)
	}

	id := fmt.Sprint(res.InsertedID)
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	log.Printf("[store] inserted probe document id=%s", id)
	return id, nil
}
