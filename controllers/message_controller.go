package controller

import (
	"errors"
	"time"

	"launchpad/middleware"
	"launchpad/models"
	"launchpad/store"
	"launchpad/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type MessageController struct {
	Store  store.Store
	Logger *logrus.Entry
}

func NewMessageController(s store.Store, logger *logrus.Entry) *MessageController {
	return &MessageController{
		Store:  s,
		Logger: logger,
	}
}

// GetInbox lists messages addressed to the caller, newest first.
func (mc *MessageController) GetInbox(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
	}

	filter := actor.Inbox(c.QueryBool("unread", false))
	filter.Limit = c.QueryInt("limit", 50)
	if filter.Limit < 1 || filter.Limit > 200 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "limit must be between 1 and 200", nil)
	}

	msgs, err := mc.Store.ListMessages(c.UserContext(), filter)
	if err != nil {
		utils.LogError("inbox_failed", err, map[string]interface{}{"actor_id": actor.ID})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load messages", nil)
	}
	return c.JSON(utils.SuccessResponse(msgs))
}

// MarkRead sets read_at on a message sent directly to the caller. Role and
// team rows are shared by every recipient, so they have no read mark.
// Marking an already read message is not an error; the first read time is kept.
func (mc *MessageController) MarkRead(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
	}
	id := c.Params("id")

	inbox, err := mc.Store.ListMessages(c.UserContext(), actor.Inbox(false))
	if err != nil {
		utils.LogError("inbox_failed", err, map[string]interface{}{"actor_id": actor.ID})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load messages", nil)
	}
	var target *models.Message
	for i := range inbox {
		if inbox[i].ID == id {
			target = &inbox[i]
			break
		}
	}
	if target == nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
	}
	if !target.Directed() || *target.ReceiverID != actor.ID {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Only messages sent directly to you can be marked read", nil)
	}

	changed, err := mc.Store.MarkMessageRead(c.UserContext(), id, time.Now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Message not found", nil)
	}
	if err != nil {
		utils.LogError("mark_read_failed", err, map[string]interface{}{"actor_id": actor.ID, "message_id": id})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update message", nil)
	}

	mc.Logger.WithFields(logrus.Fields{"actor": actor.ID, "message": id, "changed": changed}).Debug("Message marked read")
	return c.JSON(utils.SuccessResponse(fiber.Map{"id": id, "changed": changed}))
}
