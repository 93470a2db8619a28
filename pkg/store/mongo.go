package store

import (
	"context"
	"time"

	"github.com/go-go-golems/marionette/pkg/conversation"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore persists conversations, messages and provider configs in three
// collections of one database.
type MongoStore struct {
	client        *mongo.Client
	conversations *mongo.Collection
	messages      *mongo.Collection
	providers     *mongo.Collection
}

var _ Store = (*MongoStore)(nil)

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri string, database string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, wrapErr("connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, wrapErr("ping", err)
	}
	db := client.Database(database)
	return &MongoStore{
		client:        client,
		conversations: db.Collection("conversations"),
		messages:      db.Collection("messages"),
		providers:     db.Collection("provider_configs"),
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return wrapErr("disconnect", s.client.Disconnect(ctx))
}

type conversationDoc struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d conversationDoc) toDomain() conversation.Conversation {
	return conversation.Conversation{
		ID:        d.ID,
		Owner:     d.Owner,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type messageDoc struct {
	ID             string                    `bson:"_id"`
	ConversationID string                    `bson:"conversation_id"`
	Role           string                    `bson:"role"`
	Text           string                    `bson:"text"`
	ImageURI       string                    `bson:"image_uri,omitempty"`
	Attachments    []conversation.Attachment `bson:"attachments,omitempty"`
	CreatedAt      time.Time                 `bson:"created_at"`
}

func messageToDoc(msg *conversation.Message) messageDoc {
	doc := messageDoc{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Role:           string(msg.Role),
		Text:           msg.Text,
		Attachments:    msg.Attachments,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Image != nil {
		doc.ImageURI = msg.Image.DataURI()
	}
	return doc
}

func (d messageDoc) toDomain() (conversation.Message, error) {
	msg := conversation.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		Role:           conversation.Role(d.Role),
		Text:           d.Text,
		Attachments:    d.Attachments,
		CreatedAt:      d.CreatedAt,
	}
	if d.ImageURI != "" {
		mediaType, data, err := conversation.ParseDataURI(d.ImageURI)
		if err != nil {
			return msg, err
		}
		msg.Image = &conversation.ImageRef{MediaType: mediaType, Data: data}
	}
	return msg, nil
}

func (s *MongoStore) ListConversations(ctx context.Context, owner string) ([]conversation.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := s.conversations.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, wrapErr("list conversations", err)
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var ret []conversation.Conversation
	for cur.Next(ctx) {
		var doc conversationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, wrapErr("list conversations", err)
		}
		ret = append(ret, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, wrapErr("list conversations", err)
	}
	return ret, nil
}

func (s *MongoStore) CreateConversation(ctx context.Context, owner string, title string) (*conversation.Conversation, error) {
	now := time.Now().UTC()
	doc := conversationDoc{
		ID:        uuid.NewString(),
		Owner:     owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.conversations.InsertOne(ctx, doc); err != nil {
		return nil, wrapErr("create conversation", err)
	}
	ret := doc.toDomain()
	return &ret, nil
}

func (s *MongoStore) RenameConversation(ctx context.Context, id string, title string) error {
	res, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title}})
	if err != nil {
		return wrapErr("rename conversation", err)
	}
	if res.MatchedCount == 0 {
		return wrapErr("rename conversation", errors.Errorf("conversation %s not found", id))
	}
	return nil
}

func (s *MongoStore) DeleteConversation(ctx context.Context, id string) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{"conversation_id": id}); err != nil {
		return wrapErr("delete conversation messages", err)
	}
	res, err := s.conversations.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapErr("delete conversation", err)
	}
	if res.DeletedCount == 0 {
		return wrapErr("delete conversation", errors.Errorf("conversation %s not found", id))
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.messages.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, wrapErr("list messages", err)
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var ret []conversation.Message
	for cur.Next(ctx) {
		var doc messageDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, wrapErr("list messages", err)
		}
		msg, err := doc.toDomain()
		if err != nil {
			return nil, wrapErr("list messages", err)
		}
		ret = append(ret, msg)
	}
	if err := cur.Err(); err != nil {
		return nil, wrapErr("list messages", err)
	}
	return ret, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, msg *conversation.Message) (*conversation.Message, error) {
	stored := *msg
	stored.ID = uuid.NewString()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if _, err := s.messages.InsertOne(ctx, messageToDoc(&stored)); err != nil {
		return nil, wrapErr("append message", err)
	}
	// last-activity bump on the owning conversation
	_, err := s.conversations.UpdateOne(ctx,
		bson.M{"_id": stored.ConversationID},
		bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}})
	if err != nil {
		return nil, wrapErr("bump conversation", err)
	}
	return &stored, nil
}

func (s *MongoStore) UpdateMessage(ctx context.Context, msg *conversation.Message) error {
	doc := messageToDoc(msg)
	res, err := s.messages.UpdateOne(ctx,
		bson.M{"_id": msg.ID},
		bson.M{"$set": bson.M{
			"text":      doc.Text,
			"image_uri": doc.ImageURI,
		}})
	if err != nil {
		return wrapErr("update message", err)
	}
	if res.MatchedCount == 0 {
		return wrapErr("update message", errors.Errorf("message %s not found", msg.ID))
	}
	return nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.messages.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapErr("delete message", err)
	}
	if res.DeletedCount == 0 {
		return wrapErr("delete message", errors.Errorf("message %s not found", id))
	}
	return nil
}

type providerDoc struct {
	ID         string `bson:"_id"`
	Owner      string `bson:"owner"`
	Name       string `bson:"name"`
	Capability string `bson:"capability"`
	Model      string `bson:"model"`
	APIKey     string `bson:"api_key,omitempty"`
	BaseURL    string `bson:"base_url,omitempty"`
	Active     bool   `bson:"active"`
}

func (d providerDoc) toDomain() conversation.ProviderConfig {
	return conversation.ProviderConfig{
		ID:         d.ID,
		Name:       d.Name,
		Capability: conversation.Capability(d.Capability),
		Model:      d.Model,
		APIKey:     d.APIKey,
		BaseURL:    d.BaseURL,
		Active:     d.Active,
	}
}

func (s *MongoStore) ListProviderConfigs(ctx context.Context, owner string) ([]conversation.ProviderConfig, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.providers.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, wrapErr("list provider configs", err)
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var ret []conversation.ProviderConfig
	for cur.Next(ctx) {
		var doc providerDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, wrapErr("list provider configs", err)
		}
		ret = append(ret, doc.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, wrapErr("list provider configs", err)
	}
	return ret, nil
}

func (s *MongoStore) UpsertProviderConfig(ctx context.Context, owner string, cfg *conversation.ProviderConfig) (*conversation.ProviderConfig, error) {
	stored := *cfg
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	doc := providerDoc{
		ID:         stored.ID,
		Owner:      owner,
		Name:       stored.Name,
		Capability: string(stored.Capability),
		Model:      stored.Model,
		APIKey:     stored.APIKey,
		BaseURL:    stored.BaseURL,
		Active:     stored.Active,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.providers.ReplaceOne(ctx, bson.M{"_id": stored.ID}, doc, opts); err != nil {
		return nil, wrapErr("upsert provider config", err)
	}
	return &stored, nil
}

func (s *MongoStore) DeleteProviderConfig(ctx context.Context, id string) error {
	res, err := s.providers.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return wrapErr("delete provider config", err)
	}
	if res.DeletedCount == 0 {
		return wrapErr("delete provider config", errors.Errorf("provider config %s not found", id))
	}
	return nil
}
