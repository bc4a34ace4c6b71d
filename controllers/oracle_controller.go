package controller

import (
	"launchpad/command"
	"launchpad/middleware"
	"launchpad/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type OracleController struct {
	Dispatcher *command.Dispatcher
	Logger     *logrus.Entry
}

func NewOracleController(d *command.Dispatcher, logger *logrus.Entry) *OracleController {
	return &OracleController{
		Dispatcher: d,
		Logger:     logger,
	}
}

type CommandRequest struct {
	Input string `json:"input" validate:"required,max=4000"`
}

type CommandInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Usage       string   `json:"usage"`
	Description string   `json:"description"`
}

// RunCommand dispatches one input as the caller. Expected failures are
// reported inside the result with a 200; only malformed requests fail the call.
func (oc *OracleController) RunCommand(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
	}

	var req CommandRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	res := oc.Dispatcher.Run(c.UserContext(), req.Input, actor)
	oc.Logger.WithFields(logrus.Fields{
		"actor":   actor.ID,
		"command": res.Command,
		"success": res.Success,
		"kind":    res.Kind,
	}).Debug("Command dispatched")

	return c.JSON(utils.SuccessResponse(res))
}

// ListCommands returns the registry entries the caller may run.
func (oc *OracleController) ListCommands(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
	}

	visible := oc.Dispatcher.Registry().Visible(actor.Role)
	out := make([]CommandInfo, 0, len(visible))
	for _, e := range visible {
		out = append(out, CommandInfo{
			Name:        e.Name,
			Aliases:     e.Aliases,
			Usage:       e.Usage,
			Description: e.Description,
		})
	}
	return c.JSON(utils.SuccessResponse(out))
}
