package model

import (
	"time"

	"gorm.io/gorm"
)

// Appointment types
const (
	AppointmentExam     = "exam"
	AppointmentFitting  = "fitting"
	AppointmentPickup   = "pickup"
	AppointmentFollowUp = "follow_up"
)

// Appointment statuses
const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

// AppointmentTransitions lists the statuses an appointment may move to
var AppointmentTransitions = Transitions{
	AppointmentScheduled: {AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

// Appointment is a booked slot with a customer
type Appointment struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	TenantID        uint           `json:"tenant_id" gorm:"index;not null"`
	CustomerID      uint           `json:"customer_id" gorm:"index;not null"`
	ProfileID       *uint          `json:"profile_id" gorm:"index"`
	ScheduledAt     time.Time      `json:"scheduled_at" gorm:"index;not null"`
	DurationMinutes int            `json:"duration_minutes" gorm:"not null;default:30"`
	Type            string         `json:"type" gorm:"type:varchar(20);not null;default:'exam'"`
	Status          string         `json:"status" gorm:"type:varchar(20);not null;default:'scheduled';index"`
	Notes           string         `json:"notes" gorm:"type:text"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`

	Customer *Customer `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
}

// EndsAt returns the end of the appointment slot
func (a Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
