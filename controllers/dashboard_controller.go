package controller

import (
	"time"

	"launchpad/analysis"
	"launchpad/middleware"
	"launchpad/permissions"
	"launchpad/store"
	"launchpad/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type DashboardController struct {
	Store  store.Store
	Logger *logrus.Entry
	now    func() time.Time
}

func NewDashboardController(s store.Store, logger *logrus.Entry) *DashboardController {
	return &DashboardController{
		Store:  s,
		Logger: logger,
		now:    time.Now,
	}
}

type TeamHealthSummary struct {
	Average     int               `json:"average"`
	TeamCount   int               `json:"team_count"`
	AtRisk      int               `json:"at_risk"`
	Teams       []analysis.Report `json:"teams"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// GetTeamHealth scores every team, weakest first. Same gate as /analyze.
func (dc *DashboardController) GetTeamHealth(c *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Authorization required", nil)
	}
	if !permissions.Authorize(actor.Role, permissions.RunAnalysis) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "insufficient permission", nil)
	}

	now := dc.now().UTC()
	reports, err := analysis.Overall(c.UserContext(), dc.Store, now)
	if err != nil {
		utils.LogError("team_health_failed", err, map[string]interface{}{"actor_id": actor.ID})
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to compute team health", nil)
	}

	summary := TeamHealthSummary{
		Average:     analysis.Average(reports),
		TeamCount:   len(reports),
		Teams:       reports,
		GeneratedAt: now,
	}
	for _, r := range reports {
		if r.Label == analysis.LabelAtRisk {
			summary.AtRisk++
		}
	}
	return c.JSON(utils.SuccessResponse(summary))
}
