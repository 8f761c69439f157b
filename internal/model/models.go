package model

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&Tenant{},
		&Role{},
		&Profile{},
		&Customer{},
		&Product{},
		&InventoryItem{},
		&SalesOrder{},
		&SalesOrderItem{},
		&Payment{},
		&Prescription{},
		&MedicalRecord{},
		&Appointment{},
		&Supplier{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&TaxRate{},
	}
}
