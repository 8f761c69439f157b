package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/pkg/mailer"
	"github.com/opticshop/optics/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const appointmentTemplate = "appointment_confirmation.tmpl"

var mailSender mailer.Sender

// SetMailer enables appointment confirmation emails. nil disables them.
func SetMailer(s mailer.Sender) {
	mailSender = s
}

// AppointmentRequest defines the structure for appointment creation/update requests
type AppointmentRequest struct {
	CustomerID      uint      `json:"customer_id" validate:"required"`
	ProfileID       *uint     `json:"profile_id"`
	ScheduledAt     time.Time `json:"scheduled_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,gte=5,lte=480"`
	Type            string    `json:"type" validate:"omitempty,oneof=exam fitting pickup follow_up"`
	Notes           string    `json:"notes"`
}

func (r AppointmentRequest) apply(a *model.Appointment) {
	a.CustomerID = r.CustomerID
	a.ProfileID = r.ProfileID
	a.ScheduledAt = r.ScheduledAt
	a.Notes = r.Notes
	if r.DurationMinutes > 0 {
		a.DurationMinutes = r.DurationMinutes
	}
	if r.Type != "" {
		a.Type = r.Type
	}
}

// ListAppointments lists appointments filtered by from/to, status and customer_id
func ListAppointments(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("appointment", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)
	from, to, err := dateRange(c)
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_request")
	}

	filter := func(db *gorm.DB) *gorm.DB {
		if status := c.QueryParam("status"); status != "" {
			db = db.Where("status = ?", status)
		}
		if customerID, ok := queryID(c, "customer_id"); ok {
			db = db.Where("customer_id = ?", customerID)
		}
		return applyDateRange(db, "scheduled_at", from, to)
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.Appointment{}).Count(&total).Error; err != nil {
		log.Error("Failed to count appointments", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var appointments []model.Appointment
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Preload("Customer").
		Order("scheduled_at").
		Find(&appointments).Error; err != nil {
		log.Error("Failed to retrieve appointments", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(appointments, page, limit, total))
}

// GetAppointment retrieves an appointment with its customer
func GetAppointment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("appointment", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var appointment model.Appointment
	if err := scoped(c, tenantID).Preload("Customer").First(&appointment, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve appointment", zap.Uint("appointment_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, appointment)
}

// CreateAppointment books an appointment and, when mail is configured and the
// customer has an email, sends a confirmation in the background.
func CreateAppointment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("appointment", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req AppointmentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	var customer model.Customer
	if err := scoped(c, tenantID).First(&customer, req.CustomerID).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
		log.Error("Failed to retrieve customer", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	appointment := model.Appointment{
		TenantID:        tenantID,
		DurationMinutes: 30,
		Type:            model.AppointmentExam,
		Status:          model.AppointmentScheduled,
	}
	req.apply(&appointment)

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&appointment).Error; err != nil {
		log.Error("Failed to create appointment", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	appointment.Customer = &customer

	log.Info("Appointment created",
		zap.Uint("appointment_id", appointment.ID),
		zap.Uint("customer_id", customer.ID),
		zap.Time("scheduled_at", appointment.ScheduledAt))

	if mailSender != nil && customer.Email != "" {
		sendConfirmation(c.Request().Context(), log, mailSender, middleware.Locale(c), appointment, customer)
	}

	return c.JSON(http.StatusCreated, appointment)
}

// sendConfirmation emails the customer from a goroutine. Panics are logged, not propagated.
func sendConfirmation(ctx context.Context, log *zap.Logger, sender mailer.Sender, locale string, appointment model.Appointment, customer model.Customer) {
	var tenant model.Tenant
	if err := database.GetDB().WithContext(ctx).First(&tenant, appointment.TenantID).Error; err != nil {
		log.Warn("Tenant not found for confirmation email", zap.Error(err))
	}

	data := map[string]any{
		"Subject":         middleware.TranslateLocale(locale, "mail.appointment_subject"),
		"CustomerName":    customer.FirstName,
		"Type":            appointment.Type,
		"ShopName":        tenant.Name,
		"ShopPhone":       tenant.Phone,
		"When":            appointment.ScheduledAt.Format("2006-01-02 15:04"),
		"DurationMinutes": appointment.DurationMinutes,
	}

	background(log, func() {
		if err := sender.Send(customer.Email, appointmentTemplate, data); err != nil {
			prometheus.MailsSentCounter.WithLabelValues(appointmentTemplate, "error").Inc()
			log.Error("Failed to send appointment confirmation",
				zap.Uint("appointment_id", appointment.ID),
				zap.Error(err))
			return
		}
		prometheus.MailsSentCounter.WithLabelValues(appointmentTemplate, "sent").Inc()
		log.Info("Appointment confirmation sent", zap.Uint("appointment_id", appointment.ID))
	})
}

// background runs fn in a goroutine and recovers from panics
func background(log *zap.Logger, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Background task panicked", zap.Any("panic", r))
			}
		}()
		fn()
	}()
}

// UpdateAppointment reschedules or edits an appointment
func UpdateAppointment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("appointment", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req AppointmentRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var appointment model.Appointment
	if err := scoped(c, tenantID).First(&appointment, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve appointment", zap.Uint("appointment_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.CustomerID != appointment.CustomerID {
		exists, err := customerExists(c, tenantID, req.CustomerID)
		if err != nil {
			log.Error("Failed to check customer", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if !exists {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
	}

	req.apply(&appointment)
	if err := database.GetDB().WithContext(c.Request().Context()).Omit("Customer").Save(&appointment).Error; err != nil {
		log.Error("Failed to update appointment", zap.Uint("appointment_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Appointment updated", zap.Uint("appointment_id", id))
	return c.JSON(http.StatusOK, appointment)
}

// UpdateAppointmentStatus confirms, completes, cancels or marks no-show
func UpdateAppointmentStatus(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("appointment", "status")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req StatusRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !model.AppointmentTransitions.Valid(req.Status) {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.validation_failed")
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var appointment model.Appointment
	if err := scoped(c, tenantID).First(&appointment, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve appointment", zap.Uint("appointment_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if !model.AppointmentTransitions.Allows(appointment.Status, req.Status) {
		return middleware.JSONError(c, http.StatusConflict, "errors.invalid_transition")
	}

	if err := scoped(c, tenantID).Model(&appointment).Update("status", req.Status).Error; err != nil {
		log.Error("Failed to update appointment status", zap.Uint("appointment_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	appointment.Status = req.Status

	log.Info("Appointment status updated",
		zap.Uint("appointment_id", id),
		zap.String("status", req.Status))
	return c.JSON(http.StatusOK, appointment)
}

// DeleteAppointment soft-deletes an appointment
func DeleteAppointment(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("appointment", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.Appointment{}, id)
	if result.Error != nil {
		log.Error("Failed to delete appointment", zap.Uint("appointment_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Appointment deleted", zap.Uint("appointment_id", id))
	return deleted(c)
}
