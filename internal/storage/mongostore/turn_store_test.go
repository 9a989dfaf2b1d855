package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

func turnDoc(sessionID, role, text string, at time.Time) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "session_id", Value: sessionID},
		{Key: "role", Value: role},
		{Key: "text", Value: text},
		{Key: "created_at", Value: primitive.NewDateTimeFromTime(at)},
	}
}

func TestTurnStoreInsertTurn(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("stamps created_at on success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewTurnStore(mt.Coll)

		saved, err := store.InsertTurn(context.Background(), chat.UserTurn("s1", "alice", "hello"))
		require.NoError(mt, err)
		assert.False(mt, saved.CreatedAt.IsZero())
		assert.Equal(mt, chat.RoleUser, saved.Role)
		assert.Equal(mt, "alice", saved.Username)
	})

	mt.Run("surfaces write errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Name:    "ShutdownInProgress",
			Message: "server shutting down",
		}))
		store := NewTurnStore(mt.Coll)

		_, err := store.InsertTurn(context.Background(), chat.AssistantTurn("s1", "hi"))
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "insert assistant turn")
	})
}

func TestTurnStoreFindBySession(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("returns newest window oldest first", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		// the server answers in descending created_at order
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			turnDoc("s1", "assistant", "hi there", base.Add(time.Second)),
			turnDoc("s1", "user", "hello", base),
		))
		store := NewTurnStore(mt.Coll)

		turns, err := store.FindBySession(context.Background(), "s1", chat.Latest(50))
		require.NoError(mt, err)
		require.Len(mt, turns, 2)
		assert.Equal(mt, chat.RoleUser, turns[0].Role)
		assert.Equal(mt, "hello", turns[0].Text)
		assert.Equal(mt, chat.RoleAssistant, turns[1].Role)
		assert.False(mt, turns[1].CreatedAt.Before(turns[0].CreatedAt))
	})

	mt.Run("keeps earliest window in server order", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			turnDoc("s1", "user", "first", base),
			turnDoc("s1", "assistant", "second", base.Add(time.Second)),
		))
		store := NewTurnStore(mt.Coll)

		turns, err := store.FindBySession(context.Background(), "s1", chat.First(200))
		require.NoError(mt, err)
		require.Len(mt, turns, 2)
		assert.Equal(mt, "first", turns[0].Text)
		assert.Equal(mt, "second", turns[1].Text)
	})

	mt.Run("empty session", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		store := NewTurnStore(mt.Coll)

		turns, err := store.FindBySession(context.Background(), "missing", chat.First(200))
		require.NoError(mt, err)
		assert.NotNil(mt, turns)
		assert.Empty(mt, turns)
	})

	mt.Run("surfaces query errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad query",
		}))
		store := NewTurnStore(mt.Coll)

		_, err := store.FindBySession(context.Background(), "s1", chat.First(200))
		require.Error(mt, err)
	})
}

func TestTurnStoreProbe(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("returns inserted id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		store := NewTurnStore(mt.Coll)

		id, err := store.Probe(context.Background())
		require.NoError(mt, err)
		assert.NotEmpty(mt, id)
	})
}
