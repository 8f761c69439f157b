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

// PrescriptionRequest defines the structure for prescription creation/update requests
type PrescriptionRequest struct {
	CustomerID        uint                `json:"customer_id" validate:"required"`
	Prescriber        string              `json:"prescriber" validate:"max=150"`
	IssuedAt          time.Time           `json:"issued_at" validate:"required"`
	ExpiresAt         *time.Time          `json:"expires_at"`
	ODSphere          decimal.NullDecimal `json:"od_sphere"`
	ODCylinder        decimal.NullDecimal `json:"od_cylinder"`
	ODAxis            *int                `json:"od_axis" validate:"omitempty,gte=0,lte=180"`
	ODAdd             decimal.NullDecimal `json:"od_add"`
	OSSphere          decimal.NullDecimal `json:"os_sphere"`
	OSCylinder        decimal.NullDecimal `json:"os_cylinder"`
	OSAxis            *int                `json:"os_axis" validate:"omitempty,gte=0,lte=180"`
	OSAdd             decimal.NullDecimal `json:"os_add"`
	PupillaryDistance decimal.NullDecimal `json:"pupillary_distance"`
	Notes             string              `json:"notes"`
}

func (r PrescriptionRequest) apply(p *model.Prescription) {
	p.CustomerID = r.CustomerID
	p.Prescriber = r.Prescriber
	p.IssuedAt = r.IssuedAt
	p.ExpiresAt = r.ExpiresAt
	p.ODSphere = r.ODSphere
	p.ODCylinder = r.ODCylinder
	p.ODAxis = r.ODAxis
	p.ODAdd = r.ODAdd
	p.OSSphere = r.OSSphere
	p.OSCylinder = r.OSCylinder
	p.OSAxis = r.OSAxis
	p.OSAdd = r.OSAdd
	p.PupillaryDistance = r.PupillaryDistance
	p.Notes = r.Notes
}

func customerExists(c echo.Context, tenantID, customerID uint) (bool, error) {
	var count int64
	err := scoped(c, tenantID).Model(&model.Customer{}).Where("id = ?", customerID).Count(&count).Error
	return count > 0, err
}

// ListPrescriptions lists prescriptions, optionally for one customer_id
func ListPrescriptions(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("prescription", "list")

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
	if err := scoped(c, tenantID).Scopes(filter).Model(&model.Prescription{}).Count(&total).Error; err != nil {
		log.Error("Failed to count prescriptions", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var prescriptions []model.Prescription
	if err := scoped(c, tenantID).Scopes(filter, database.Paginate(page, limit)).
		Order("issued_at desc").
		Find(&prescriptions).Error; err != nil {
		log.Error("Failed to retrieve prescriptions", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, paginated(prescriptions, page, limit, total))
}

// GetPrescription retrieves a prescription of the current tenant
func GetPrescription(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("prescription", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var prescription model.Prescription
	if err := scoped(c, tenantID).First(&prescription, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve prescription", zap.Uint("prescription_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"prescription": prescription,
		"expired":      prescription.Expired(time.Now()),
	})
}

// CreatePrescription records a refraction for a customer
func CreatePrescription(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("prescription", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req PrescriptionRequest
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

	prescription := model.Prescription{TenantID: tenantID}
	req.apply(&prescription)

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&prescription).Error; err != nil {
		log.Error("Failed to create prescription", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Prescription created",
		zap.Uint("prescription_id", prescription.ID),
		zap.Uint("customer_id", prescription.CustomerID))
	return c.JSON(http.StatusCreated, prescription)
}

// UpdatePrescription updates a prescription of the current tenant
func UpdatePrescription(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("prescription", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req PrescriptionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var prescription model.Prescription
	if err := scoped(c, tenantID).First(&prescription, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve prescription", zap.Uint("prescription_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	if req.CustomerID != prescription.CustomerID {
		exists, err := customerExists(c, tenantID, req.CustomerID)
		if err != nil {
			log.Error("Failed to check customer", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		if !exists {
			return middleware.JSONError(c, http.StatusUnprocessableEntity, "errors.not_found")
		}
	}

	req.apply(&prescription)
	if err := database.GetDB().WithContext(c.Request().Context()).Save(&prescription).Error; err != nil {
		log.Error("Failed to update prescription", zap.Uint("prescription_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Prescription updated", zap.Uint("prescription_id", id))
	return c.JSON(http.StatusOK, prescription)
}

// DeletePrescription soft-deletes a prescription
func DeletePrescription(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("prescription", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.Prescription{}, id)
	if result.Error != nil {
		log.Error("Failed to delete prescription", zap.Uint("prescription_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Prescription deleted", zap.Uint("prescription_id", id))
	return deleted(c)
}
