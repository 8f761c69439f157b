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
	"go.uber.org/zap"
)

// CustomerRequest defines the structure for customer creation/update requests
type CustomerRequest struct {
	FirstName   string     `json:"first_name" validate:"required,max=100"`
	LastName    string     `json:"last_name" validate:"required,max=100"`
	Email       string     `json:"email" validate:"omitempty,email,max=100"`
	Phone       string     `json:"phone" validate:"max=30"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Address     string     `json:"address"`
	Notes       string     `json:"notes"`
}

func (r CustomerRequest) apply(c *model.Customer) {
	c.FirstName = r.FirstName
	c.LastName = r.LastName
	c.Email = r.Email
	c.Phone = r.Phone
	c.DateOfBirth = r.DateOfBirth
	c.Address = r.Address
	c.Notes = r.Notes
}

// ListCustomers lists the tenant's customers. The q parameter matches
// "Last, First" or either name part, case-insensitively.
func ListCustomers(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("customer", "list")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	page, limit := pageParams(c)
	q := c.QueryParam("q")

	defer prometheus.TrackDBOperation("query")(time.Now())

	if q == "" {
		var total int64
		if err := scoped(c, tenantID).Model(&model.Customer{}).Count(&total).Error; err != nil {
			log.Error("Failed to count customers", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		var customers []model.Customer
		if err := scoped(c, tenantID).Scopes(database.Paginate(page, limit)).
			Order("last_name, first_name").
			Find(&customers).Error; err != nil {
			log.Error("Failed to retrieve customers", zap.Error(err))
			return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
		}
		return c.JSON(http.StatusOK, paginated(customers, page, limit, total))
	}

	var all []model.Customer
	if err := scoped(c, tenantID).Order("last_name, first_name").Find(&all).Error; err != nil {
		log.Error("Failed to retrieve customers", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	matched := model.FilterCustomersByName(all, q)

	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	log.Info("Customers searched",
		zap.String("q", q),
		zap.Int("matched", len(matched)),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusOK, paginated(matched[start:end], page, limit, int64(len(matched))))
}

// GetCustomer retrieves a customer of the current tenant
func GetCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("customer", "get")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var customer model.Customer
	if err := scoped(c, tenantID).First(&customer, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve customer", zap.Uint("customer_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, customer)
}

// CreateCustomer creates a customer for the current tenant
func CreateCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("customer", "create")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}

	var req CustomerRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	customer := model.Customer{TenantID: tenantID}
	req.apply(&customer)

	defer prometheus.TrackDBOperation("insert")(time.Now())

	if err := database.GetDB().WithContext(c.Request().Context()).Create(&customer).Error; err != nil {
		log.Error("Failed to create customer", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Customer created",
		zap.Uint("customer_id", customer.ID),
		zap.Uint("tenant_id", tenantID))
	return c.JSON(http.StatusCreated, customer)
}

// UpdateCustomer updates a customer of the current tenant
func UpdateCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("customer", "update")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	var req CustomerRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var customer model.Customer
	if err := scoped(c, tenantID).First(&customer, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve customer", zap.Uint("customer_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	req.apply(&customer)
	if err := database.GetDB().WithContext(c.Request().Context()).Save(&customer).Error; err != nil {
		log.Error("Failed to update customer", zap.Uint("customer_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	log.Info("Customer updated", zap.Uint("customer_id", id))
	return c.JSON(http.StatusOK, customer)
}

// DeleteCustomer soft-deletes a customer of the current tenant
func DeleteCustomer(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("customer", "delete")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	result := scoped(c, tenantID).Delete(&model.Customer{}, id)
	if result.Error != nil {
		log.Error("Failed to delete customer", zap.Uint("customer_id", id), zap.Error(result.Error))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if result.RowsAffected == 0 {
		return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
	}

	log.Info("Customer deleted", zap.Uint("customer_id", id))
	return deleted(c)
}

// CustomerHistory returns everything recorded for a customer: prescriptions,
// medical records, appointments and sales, newest first.
func CustomerHistory(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RecordOperation("customer", "history")

	tenantID, ok := tenantID(c)
	if !ok {
		return tenantRequired(c)
	}
	id, err := paramID(c, "id")
	if err != nil {
		return middleware.JSONError(c, http.StatusBadRequest, "errors.invalid_id")
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var customer model.Customer
	if err := scoped(c, tenantID).First(&customer, id).Error; err != nil {
		if isNotFound(err) {
			return middleware.JSONError(c, http.StatusNotFound, "errors.not_found")
		}
		log.Error("Failed to retrieve customer", zap.Uint("customer_id", id), zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	var (
		prescriptions  []model.Prescription
		medicalRecords []model.MedicalRecord
		appointments   []model.Appointment
		sales          []model.SalesOrder
	)
	if err := scoped(c, tenantID).Where("customer_id = ?", id).Order("issued_at desc").Find(&prescriptions).Error; err != nil {
		log.Error("Failed to load prescriptions", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if err := scoped(c, tenantID).Where("customer_id = ?", id).Order("visit_date desc").Find(&medicalRecords).Error; err != nil {
		log.Error("Failed to load medical records", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if err := scoped(c, tenantID).Where("customer_id = ?", id).Order("scheduled_at desc").Find(&appointments).Error; err != nil {
		log.Error("Failed to load appointments", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}
	if err := scoped(c, tenantID).Where("customer_id = ?", id).Preload("Items").Preload("Payments").Order("created_at desc").Find(&sales).Error; err != nil {
		log.Error("Failed to load sales", zap.Error(err))
		return middleware.JSONError(c, http.StatusInternalServerError, "errors.internal")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"customer":        customer,
		"prescriptions":   prescriptions,
		"medical_records": medicalRecords,
		"appointments":    appointments,
		"sales":           sales,
	})
}
