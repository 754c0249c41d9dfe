package routes

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/services"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/storage"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
	"gorm.io/gorm"
)

func SendMessage(ctx iris.Context) {
	var input SendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}
	userID := ctx.Values().GetString("userID")

	if input.ReceiverID == userID {
		utils.CreateError(iris.StatusBadRequest, "Validation Error", "Cannot message yourself", ctx)
		return
	}

	var property models.Property
	if err := storage.DB.Select("id", "owner_id", "title").First(&property, "id = ?", input.PropertyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.CreateError(iris.StatusNotFound, "Not Found", "Property not found", ctx)
			return
		}
		utils.InternalError(ctx, err)
		return
	}

	var receivers int64
	if err := storage.DB.Model(&models.Profile{}).Where("id = ?", input.ReceiverID).Count(&receivers).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	if receivers == 0 {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Receiver not found", ctx)
		return
	}

	var conversation models.Conversation
	message := models.Message{
		SenderID:      userID,
		Content:       input.Content,
		AttachmentURL: utils.NilIfEmpty(input.AttachmentURL),
	}
	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		conversation, err = findOrCreateConversation(tx, property.ID, userID, input.ReceiverID)
		if err != nil {
			return err
		}
		message.ConversationID = conversation.ID
		return tx.Create(&message).Error
	})
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	services.Publish(ctx.Request().Context(), services.EventMessageSent, services.MessageSent{
		ConversationID: conversation.ID,
		MessageID:      message.ID,
		PropertyID:     property.ID,
		SenderID:       userID,
		ReceiverID:     input.ReceiverID,
		Preview:        preview(message.Content, 80),
	})

	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{
		"success":         true,
		"message":         message,
		"conversation_id": conversation.ID,
	})
}

// findOrCreateConversation returns the conversation about propertyID between
// the two users regardless of who started it, touching updated_at when it
// already exists.
func findOrCreateConversation(tx *gorm.DB, propertyID, a, b string) (models.Conversation, error) {
	var conversation models.Conversation
	res := tx.Where("property_id = ?", propertyID).
		Where(tx.Where("participant_a = ? AND participant_b = ?", a, b).
			Or("participant_a = ? AND participant_b = ?", b, a)).
		Limit(1).Find(&conversation)
	if res.Error != nil {
		return conversation, res.Error
	}
	if res.RowsAffected > 0 {
		err := tx.Model(&conversation).Update("updated_at", time.Now()).Error
		return conversation, err
	}

	conversation = models.Conversation{PropertyID: &propertyID, ParticipantA: a, ParticipantB: b}
	return conversation, tx.Create(&conversation).Error
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

type conversationView struct {
	models.Conversation
	OtherParticipant models.ProfileSummary `json:"other_participant"`
	LastMessage      *models.Message       `json:"last_message"`
	UnreadCount      int64                 `json:"unread_count"`
}

func GetConversations(ctx iris.Context) {
	userID := ctx.Values().GetString("userID")

	var conversations []models.Conversation
	err := storage.DB.Preload("Property", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "title", "town", "county", "status")
	}).Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("updated_at DESC").Find(&conversations).Error
	if err != nil {
		utils.InternalError(ctx, err)
		return
	}

	views := make([]conversationView, 0, len(conversations))
	for _, c := range conversations {
		view := conversationView{Conversation: c}

		otherID := c.ParticipantA
		if otherID == userID {
			otherID = c.ParticipantB
		}
		var other models.Profile
		if err := storage.DB.Select("id", "full_name", "avatar_url").Limit(1).Find(&other, "id = ?", otherID).Error; err != nil {
			utils.InternalError(ctx, err)
			return
		}
		view.OtherParticipant = other.Summary()

		var last models.Message
		res := storage.DB.Where("conversation_id = ?", c.ID).Order("created_at DESC").Limit(1).Find(&last)
		if res.Error != nil {
			utils.InternalError(ctx, res.Error)
			return
		}
		if res.RowsAffected > 0 {
			view.LastMessage = &last
		}

		if err := storage.DB.Model(&models.Message{}).
			Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", c.ID, userID).
			Count(&view.UnreadCount).Error; err != nil {
			utils.InternalError(ctx, err)
			return
		}
		views = append(views, view)
	}
	ctx.JSON(views)
}

func GetConversationMessages(ctx iris.Context) {
	conversation := getParticipantConversation(ctx)
	if conversation == nil {
		return
	}
	page, perPage := utils.Paging(ctx, 50)

	query := storage.DB.Model(&models.Message{}).Where("conversation_id = ?", conversation.ID).Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	messages := []models.Message{}
	if err := query.Order("created_at ASC").Offset((page - 1) * perPage).Limit(perPage).Find(&messages).Error; err != nil {
		utils.InternalError(ctx, err)
		return
	}
	utils.JSONPage(ctx, messages, page, perPage, total)
}

func MarkConversationRead(ctx iris.Context) {
	conversation := getParticipantConversation(ctx)
	if conversation == nil {
		return
	}
	userID := ctx.Values().GetString("userID")

	res := storage.DB.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read_at IS NULL", conversation.ID, userID).
		Update("read_at", time.Now())
	if res.Error != nil {
		utils.InternalError(ctx, res.Error)
		return
	}
	ctx.JSON(iris.Map{"success": true, "updated": res.RowsAffected})
}

// getParticipantConversation loads the {id} conversation and answers 404/403
// itself when it is missing or the caller is not part of it.
func getParticipantConversation(ctx iris.Context) *models.Conversation {
	var conversation models.Conversation
	err := storage.DB.First(&conversation, "id = ?", ctx.Params().Get("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CreateError(iris.StatusNotFound, "Not Found", "Conversation not found", ctx)
		return nil
	}
	if err != nil {
		utils.InternalError(ctx, err)
		return nil
	}
	if !conversation.HasParticipant(ctx.Values().GetString("userID")) {
		utils.CreateError(iris.StatusForbidden, "Forbidden", "Not a participant", ctx)
		return nil
	}
	return &conversation
}

type SendMessageInput struct {
	PropertyID    string `json:"property_id" validate:"required"`
	ReceiverID    string `json:"receiver_id" validate:"required"`
	Content       string `json:"content" validate:"required,max=5000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url,max=1024"`
}
