package codec

import (
	"github.com/anonto42/nano-midea/storysync/internal/models"
	"github.com/anonto42/nano-midea/storysync/internal/remote"
)

// EncodeReaction maps a reaction activity to its remote document.
func EncodeReaction(r models.ReactionActivity) remote.Document {
	return remote.Document{
		FieldEntityType: string(r.EntityType),
		FieldEntityID:   r.EntityID,
		FieldUserID:     r.UserID,
		FieldType:       string(r.Type),
		FieldCreatedAt:  r.CreatedAt.UTC(),
	}
}

// DecodeReaction maps a remote document to a reaction activity.
func DecodeReaction(id string, d remote.Document) models.ReactionActivity {
	return models.ReactionActivity{
		ID:         id,
		EntityType: models.ParseEntityType(str(d, FieldEntityType)),
		EntityID:   str(d, FieldEntityID),
		UserID:     str(d, FieldUserID),
		Type:       models.ParseReactionType(str(d, FieldType)),
		CreatedAt:  timestamp(d, FieldCreatedAt),
	}
}
