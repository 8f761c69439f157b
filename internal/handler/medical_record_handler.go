package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/opticshop/optics/internal/middleware"
	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MedicalRecordRequest defines the structure for medical record creation/update requests
type MedicalRecordRequest struct {
	CustomerID     uint                `json:"customer_id" validate:"required"`
	VisitDate      time.Time           `json:"visit_date" validate:"required"`
	ChiefComplaint string              `json:"chief_complaint"`
	Diagnosis      string              `json:"diagnosis"`
	IOPRight       decimal.NullDecimal `json:"iop_right"`
	IOPLeft        decimal.NullDecimal `json:"iop_left"`
	Notes          string              `json:"notes"`
}

func (r MedicalRecordRequest) apply(m *model.MedicalRecord) {
	m.CustomerID = r.CustomerID
	m.VisitDate = r.VisitDate
	m.ChiefComplaint = r.ChiefComplaint
	m.Diagnosis = r.Diagnosis
	m.IOPRight = r.IOPRight
	m.IOPLeft = r.IOPLeft
	m.Notes = r.Notes
}

// ListMedicalRecords lists visit notes, optionally for one customer_id
func ListMedicalRecords(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("medical_record", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)

	filter := func(db *gorm.DB) *gorm.DB {
		if customerID, ok := queryID(c, "customer_id"); ok {
			db = db.Where("customer_id = ?", customerID)
		}
		return db
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var total int64
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.MedicalRecord{}).Count(&total).Error; err != nil {
		log.Error("Failed to count medical records", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var records []model.MedicalRecord
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Order("visit_date desc").
		Find(&records).Error; err != nil {
		log.Error("Failed to retrieve medical records", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(records, page, limit, total))
}

// GetMedicalRecord retrieves a visit note
func GetMedicalRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("medical_record", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var record model.MedicalRecord
	if err := scoped(c, tenantID).First(&record, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve medical record", zap.Uint("record_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, record)
}

// CreateMedicalRecord records a visit for a customer, authored by the current profile
func CreateMedicalRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("medical_record", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	userID, _ := middleware.UserID(c)

	var req MedicalRecordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	exists, err := customerExists(c, tenantID, req.CustomerID)
	if err != nil {
		log.Error("Failed to check customer", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if !exists {
		return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
	}

	record := model.MedicalRecord{TenantID: tenantID, ProfileID: userID}
	req.apply(&record)

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&record).Error; err != nil {
		log.Error("Failed to create medical record", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Medical record created",
		zap.Uint("record_id", record.ID),
		zap.Uint("customer_id", record.CustomerID))
	return c.JSON(http.StatusCreated, record)
}

// UpdateMedicalRecord updates a visit note
func UpdateMedicalRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("medical_record", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req MedicalRecordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var record model.MedicalRecord
	if err := scoped(c, tenantID).First(&record, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve medical record", zap.Uint("record_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.CustomerID != record.CustomerID {
		exists, err := customerExists(c, tenantID, req.CustomerID)
		if err != nil {
			log.Error("Failed to check customer", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if !exists {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
	}

	req.apply(&record)
	if err := database.GetDB().WithContext(c.Request().Context()).Save(&record).Error; err != nil {
		log.Error("Failed to update medical record", zap.Uint("record_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Medical record updated", zap.Uint("record_id", id))
	return c.JSON(http.StatusOK, record)
}

// DeleteMedicalRecord soft-deletes a visit note
func DeleteMedicalRecord(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("medical_record", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.MedicalRecord{}, id)
	if result.Error != nil {
		log.Error("Failed to delete medical record", zap.Uint("record_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Medical record deleted", zap.Uint("record_id", id))
	return deleted(c)
}
