// Package domain contains persisted per-user dispatch schedules.
package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// JobSchedule drives recurring dispatch runs for one user.
type JobSchedule struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID         snowflake.ID `gorm:"not null;index" json:"user_id"`
	CronExpression string       `gorm:"type:text;not null" json:"cron_expression"`
	Paused         bool         `gorm:"not null;default:false" json:"paused"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (JobSchedule) TableName() string { return "job_schedules" }

// JobKey names the live job registered for this schedule.
func (s JobSchedule) JobKey() string { return fmt.Sprintf("%d.job", s.ID) }

// TriggerKey names the live trigger registered for this schedule.
func (s JobSchedule) TriggerKey() string { return fmt.Sprintf("%d.trigger", s.ID) }
