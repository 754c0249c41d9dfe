package models

import "time"

// Conversation is a thread between two users scoped to one property.
type Conversation struct {
	Base
	PropertyID   *string `json:"property_id" gorm:"type:varchar(36);index"`
	ParticipantA string  `json:"participant_a" gorm:"type:varchar(36);not null;index"`
	ParticipantB string  `json:"participant_b" gorm:"type:varchar(36);not null;index"`

	Property *Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

func (c Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

type Message struct {
	Base
	ConversationID string     `json:"conversation_id" gorm:"type:varchar(36);not null;index"`
	SenderID       string     `json:"sender_id" gorm:"type:varchar(36);not null;index"`
	Content        string     `json:"content" gorm:"type:text;not null"`
	AttachmentURL  *string    `json:"attachment_url" gorm:"size:1024"`
	ReadAt         *time.Time `json:"read_at"`

	Sender *Profile `json:"-" gorm:"foreignKey:SenderID"`
}
