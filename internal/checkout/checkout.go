package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opticshop/optics/internal/model"
	"github.com/opticshop/optics/pkg/database"
	"github.com/opticshop/optics/pkg/logger"
	"github.com/opticshop/optics/prometheus"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemRequest asks for qty units of an inventory item
type ItemRequest struct {
	InventoryItemID uint `json:"inventory_item_id" validate:"required"`
	Quantity        int  `json:"quantity" validate:"gte=0"`
}

// Request is the input of a checkout or quote
type Request struct {
	TenantID      uint
	ProfileID     uint
	CustomerID    *uint
	Items         []ItemRequest
	Discount      decimal.Decimal
	PaymentMethod string
	Notes         string
}

// Warning reports an inventory decrement that failed after the order was saved
type Warning struct {
	InventoryItemID uint   `json:"inventory_item_id"`
	Quantity        int    `json:"quantity"`
	Error           string `json:"error"`
}

// Result is a saved order plus any non-blocking warnings
type Result struct {
	Order    model.SalesOrder `json:"order"`
	Totals   Totals           `json:"totals"`
	Warnings []Warning        `json:"warnings"`
}

// Service runs checkouts against a database
type Service struct {
	db *gorm.DB
}

// New creates a checkout service
func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Quote prices the request without writing anything
func (s *Service) Quote(ctx context.Context, req Request) (*Cart, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	db := s.db.WithContext(ctx)
	defer prometheus.TrackDBOperation("query")(time.Now())

	if req.CustomerID != nil {
		var count int64
		if err := db.Model(&model.Customer{}).Scopes(database.TenantScope(req.TenantID)).
			Where("id = ?", *req.CustomerID).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("lookup customer: %w", err)
		}
		if count == 0 {
			return nil, ErrCustomerNotFound
		}
	}

	ids := make([]uint, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.InventoryItemID)
	}

	var items []model.InventoryItem
	if err := db.Scopes(database.TenantScope(req.TenantID)).
		Preload("Product").
		Where("id IN ?", ids).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load inventory items: %w", err)
	}
	byID := make(map[uint]model.InventoryItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	rate, err := DefaultTaxRate(ctx, s.db, req.TenantID)
	if err != nil {
		return nil, err
	}

	cart := &Cart{Discount: req.Discount, TaxRate: rate}
	for _, it := range req.Items {
		inv, ok := byID[it.InventoryItemID]
		if !ok || inv.Product == nil {
			return nil, fmt.Errorf("%w: %d", ErrItemNotFound, it.InventoryItemID)
		}
		cart.Add(Line{
			InventoryItemID: inv.ID,
			ProductID:       inv.ProductID,
			Description:     inv.Product.Name,
			Quantity:        it.Quantity,
			UnitPrice:       inv.Product.Price,
		})
	}
	return cart, nil
}

// Checkout saves the order, its lines and one payment in a transaction, then
// decrements inventory for every line concurrently. Decrement failures do not
// undo the order; they come back as warnings.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	log := logger.FromStdContext(ctx)

	if len(req.Items) == 0 {
		prometheus.CheckoutsCounter.WithLabelValues("rejected").Inc()
		return nil, ErrEmptyCart
	}

	cart, err := s.Quote(ctx, req)
	if err != nil {
		prometheus.CheckoutsCounter.WithLabelValues("rejected").Inc()
		return nil, err
	}
	totals := cart.Totals()

	method := req.PaymentMethod
	if method == "" {
		method = model.PaymentCash
	}

	order := model.SalesOrder{
		TenantID:   req.TenantID,
		CustomerID: req.CustomerID,
		ProfileID:  req.ProfileID,
		Status:     model.SaleStatusCompleted,
		Subtotal:   totals.Subtotal,
		Discount:   totals.Discount,
		Tax:        totals.Tax,
		Total:      totals.Total,
		Notes:      req.Notes,
	}
	if totals.TaxRate != nil {
		order.TaxRate = *totals.TaxRate
	}

	start := time.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items", "Payments", "Customer").Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		lines := make([]model.SalesOrderItem, 0, cart.Len())
		for _, l := range cart.Lines {
			lines = append(lines, model.SalesOrderItem{
				TenantID:        req.TenantID,
				SalesOrderID:    order.ID,
				InventoryItemID: l.InventoryItemID,
				ProductID:       l.ProductID,
				Description:     l.Description,
				Quantity:        l.Quantity,
				UnitPrice:       l.UnitPrice,
				LineTotal:       l.LineTotal,
			})
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		payment := model.Payment{
			TenantID:     req.TenantID,
			SalesOrderID: order.ID,
			Amount:       totals.Total,
			Method:       method,
			PaidAt:       time.Now(),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		order.Items = lines
		order.Payments = []model.Payment{payment}
		return nil
	})
	prometheus.TrackDBOperation("insert")(start)
	if err != nil {
		prometheus.CheckoutsCounter.WithLabelValues("failed").Inc()
		log.Error("Checkout failed", zap.Uint("tenant_id", req.TenantID), zap.Error(err))
		return nil, err
	}

	warnings := s.decrementAll(ctx, req.TenantID, cart.Lines)
	if len(warnings) > 0 {
		prometheus.CheckoutsCounter.WithLabelValues("completed_with_warnings").Inc()
		log.Warn("Sale saved but some inventory decrements failed",
			zap.Uint("order_id", order.ID),
			zap.Int("failures", len(warnings)))
	} else {
		prometheus.CheckoutsCounter.WithLabelValues("completed").Inc()
	}

	log.Info("Checkout completed",
		zap.Uint("order_id", order.ID),
		zap.String("total", totals.Total.String()),
		zap.Int("lines", cart.Len()))

	return &Result{Order: order, Totals: totals, Warnings: warnings}, nil
}

// decrementAll runs one decrement per line and waits for all of them
func (s *Service) decrementAll(ctx context.Context, tenantID uint, lines []Line) []Warning {
	errs := make([]error, len(lines))

	var wg sync.WaitGroup
	for i, l := range lines {
		wg.Add(1)
		go func(i int, l Line) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("panic: %v", r)
				}
			}()
			_, errs[i] = Decrement(ctx, s.db, tenantID, l.InventoryItemID, l.Quantity)
		}(i, l)
	}
	wg.Wait()

	warnings := make([]Warning, 0)
	for i, err := range errs {
		if err == nil {
			continue
		}
		prometheus.InventoryDecrementFailures.Inc()
		warnings = append(warnings, Warning{
			InventoryItemID: lines[i].InventoryItemID,
			Quantity:        lines[i].Quantity,
			Error:           err.Error(),
		})
	}
	return warnings
}

// DefaultTaxRate returns the tenant's default rate, or nil when none is set
func DefaultTaxRate(ctx context.Context, db *gorm.DB, tenantID uint) (*decimal.Decimal, error) {
	var rate model.TaxRate
	err := db.WithContext(ctx).Scopes(database.TenantScope(tenantID)).
		Where("is_default = ?", true).
		First(&rate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup default tax rate: %w", err)
	}
	return &rate.Rate, nil
}
