package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
)

type scheduleRequest struct {
	UserID         string `json:"user_id"`
	CronExpression string `json:"cron_expression"`
}

// scheduleView adds the live trigger state to a persisted schedule.
type scheduleView struct {
	scheduledomain.JobSchedule
	Status  string     `json:"status,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

func (s *Server) viewSchedule(schedule scheduledomain.JobSchedule) scheduleView {
	view := scheduleView{JobSchedule: schedule}
	if s.status == nil {
		return view
	}
	view.Status = string(s.status.Status(schedule.ID))
	if next := s.status.NextRun(schedule.ID); !next.IsZero() {
		next = next.UTC()
		view.NextRun = &next
	}
	return view
}

func (s *Server) CreateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.scheduleSvc.Create(c.Request.Context(), scheduledomain.CreateScheduleRequest{
		UserID:         strings.TrimSpace(req.UserID),
		CronExpression: strings.TrimSpace(req.CronExpression),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": s.viewSchedule(resp)})
}

func (s *Server) GetSchedule(c *gin.Context) {
	resp, err := s.scheduleSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.viewSchedule(resp)})
}

func (s *Server) ListSchedules(c *gin.Context) {
	items, err := s.scheduleSvc.ListByUser(c.Request.Context(), strings.TrimSpace(c.Param("user_id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]scheduleView, 0, len(items))
	for _, item := range items {
		views = append(views, s.viewSchedule(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) UpdateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.scheduleSvc.Update(c.Request.Context(), scheduledomain.UpdateScheduleRequest{
		ID:             strings.TrimSpace(c.Param("id")),
		CronExpression: strings.TrimSpace(req.CronExpression),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.viewSchedule(resp)})
}

func (s *Server) DeleteSchedule(c *gin.Context) {
	if err := s.scheduleSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) PauseSchedule(c *gin.Context) {
	resp, err := s.scheduleSvc.Pause(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.viewSchedule(resp)})
}

func (s *Server) ResumeSchedule(c *gin.Context) {
	resp, err := s.scheduleSvc.Resume(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.viewSchedule(resp)})
}

// RunSchedule fires the schedule's job once in the background.
func (s *Server) RunSchedule(c *gin.Context) {
	if err := s.scheduleSvc.RunNow(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"triggered": true}})
}
