package readmodel

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/grocery-sync/internal/domain/customer"
	"github.com/example/grocery-sync/internal/domain/delivery"
	"github.com/example/grocery-sync/internal/domain/inventory"
	"github.com/example/grocery-sync/internal/domain/order"
)

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Seed builds a small, consistent dataset anchored at now.
func Seed(now time.Time) *Dataset {
	d := NewDataset()
	_ = d.Update(func(t *Tables) error {
		for _, c := range seedCustomers(now) {
			t.Customers[c.ID] = c
		}
		for _, p := range seedProducts(now) {
			t.Products[p.ID] = p
		}
		for _, dr := range []delivery.Driver{
			{ID: "drv_001", Name: "Sam Carter", Phone: "+1-555-0101", Available: true},
			{ID: "drv_002", Name: "Lena Ortiz", Phone: "+1-555-0102", Available: true},
		} {
			t.Drivers[dr.ID] = dr
		}
		seedOrders(t, now)
		return nil
	})
	return d
}

func seedCustomers(now time.Time) []customer.Customer {
	return []customer.Customer{
		{
			ID: "cus_001", Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+1-555-0201", Status: "active",
			Addresses: []customer.Address{
				{ID: "addr_001", Label: "Home", Street: "12 Analytical Way", City: "Springfield", ZipCode: "10001", IsDefault: true},
			},
			CreatedAt: now.AddDate(0, -6, 0),
		},
		{
			ID: "cus_002", Name: "Grace Hopper", Email: "grace@example.com", Phone: "+1-555-0202", Status: "active",
			Addresses: []customer.Address{
				{ID: "addr_002", Label: "Work", Street: "9 Compiler Ave", City: "Springfield", ZipCode: "10002"},
				{ID: "addr_003", Label: "Home", Street: "44 Cobol St", City: "Shelbyville", ZipCode: "10003", IsDefault: true},
			},
			CreatedAt: now.AddDate(0, -3, 0),
		},
		{
			ID: "cus_003", Name: "Alan Turing", Email: "alan@example.com", Status: "inactive",
			Addresses: []customer.Address{
				{ID: "addr_004", Street: "1 Enigma Rd", City: "Capital City", ZipCode: "10004", IsDefault: true},
			},
			CreatedAt: now.AddDate(-1, 0, 0),
		},
	}
}

func seedProducts(now time.Time) []inventory.Product {
	created := now.AddDate(0, -2, 0)
	p := func(id, name, category, price, cost string, stock, minLvl, maxLvl int, unit, sku string) inventory.Product {
		return inventory.Product{
			ID: id, Name: name, Category: category,
			Price: money(price), Cost: money(cost),
			Stock: stock, MinStockLevel: minLvl, MaxStockLevel: maxLvl,
			Unit: unit, SKU: sku, Supplier: "Fresh Farms Co.", Active: true,
			CreatedAt: created, UpdatedAt: created,
		}
	}
	products := []inventory.Product{
		p("prd_001", "Whole Milk", "dairy", "3.49", "2.10", 42, 10, 100, "l", "DAI-001"),
		p("prd_002", "Free Range Eggs", "dairy", "4.99", "3.00", 6, 12, 120, "dozen", "DAI-002"),
		p("prd_003", "Sourdough Bread", "bakery", "5.25", "2.40", 18, 5, 40, "loaf", "BAK-001"),
		p("prd_004", "Bananas", "produce", "0.69", "0.30", 0, 20, 300, "lb", "PRO-001"),
		p("prd_005", "Baby Spinach", "produce", "3.99", "1.80", 25, 8, 60, "bag", "PRO-002"),
		p("prd_006", "Ground Coffee", "pantry", "11.99", "6.50", 30, 6, 50, "bag", "PAN-001"),
	}
	sale := &inventory.Sale{Price: money("9.99"), StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 0, 6)}
	products[5].Sale = sale
	return products
}

func seedOrders(t *Tables, now time.Time) {
	specs := []struct {
		id       string
		customer string
		age      time.Duration
		status   order.Status
		items    map[string]int
	}{
		{"ord_001", "cus_001", 30 * time.Minute, order.StatusPending, map[string]int{"prd_001": 2, "prd_003": 1}},
		{"ord_002", "cus_002", 2 * time.Hour, order.StatusPreparing, map[string]int{"prd_005": 1, "prd_006": 1}},
		{"ord_003", "cus_001", 5 * time.Hour, order.StatusOutForDelivery, map[string]int{"prd_002": 1}},
		{"ord_004", "cus_002", 26 * time.Hour, order.StatusDelivered, map[string]int{"prd_001": 1, "prd_005": 2}},
	}

	for _, s := range specs {
		c := t.Customers[s.customer]
		addr, _ := c.DefaultAddress()
		created := now.Add(-s.age)

		o := order.Order{
			ID:       s.id,
			Number:   t.NextOrderNumber(),
			Customer: order.Customer{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone},
			DeliveryAddress: order.Address{
				Street: addr.Street, City: addr.City, State: addr.State, ZipCode: addr.ZipCode, Country: addr.Country,
			},
			Payment:   order.Payment{Method: "card", Status: "paid"},
			Tax:       money("0.50"),
			Discount:  decimal.Zero,
			CreatedAt: created,
		}
		for _, pid := range sortedKeys(s.items) {
			prod := t.Products[pid]
			o.Items = append(o.Items, order.LineItem{
				ProductID: pid, ProductName: prod.Name, Quantity: s.items[pid], UnitPrice: prod.Price,
			})
		}
		_ = o.Recalculate()

		at := created
		o.ApplyTransition(order.StatusPending, "Order placed", "customer", at)
		for _, st := range order.Statuses() {
			if st == order.StatusPending || st == order.StatusCancelled {
				continue
			}
			if o.Status == s.status {
				break
			}
			at = at.Add(10 * time.Minute)
			o.ApplyTransition(st, "", "system", at)
		}
		t.Orders[o.ID] = o

		c.Metrics.TotalOrders++
		c.Metrics.TotalSpent = c.Metrics.TotalSpent.Add(o.Total)
		c.Metrics.LoyaltyPoints += int(o.Total.IntPart())
		if c.Metrics.LastOrderAt == nil || created.After(*c.Metrics.LastOrderAt) {
			last := created
			c.Metrics.LastOrderAt = &last
		}
		t.Customers[c.ID] = c
	}

	driver := t.Drivers["drv_001"]
	driverID := driver.ID
	o := t.Orders["ord_003"]
	eta := now.Add(20 * time.Minute)
	t.Deliveries["del_001"] = delivery.Delivery{
		ID: "del_001", OrderID: o.ID, CustomerID: o.Customer.ID, CustomerName: o.Customer.Name,
		DriverID: &driverID, DriverName: driver.Name, Status: delivery.StatusInTransit,
		Address:     delivery.Address(o.DeliveryAddress),
		EstimatedAt: &eta, CreatedAt: o.CreatedAt, UpdatedAt: now.Add(-15 * time.Minute),
	}
	o.DriverID = driverID
	t.Orders[o.ID] = o

	o = t.Orders["ord_004"]
	delivered := o.UpdatedAt
	t.Deliveries["del_002"] = delivery.Delivery{
		ID: "del_002", OrderID: o.ID, CustomerID: o.Customer.ID, CustomerName: o.Customer.Name,
		DriverID: &driverID, DriverName: driver.Name, Status: delivery.StatusDelivered,
		Address:     delivery.Address(o.DeliveryAddress),
		DeliveredAt: &delivered, CreatedAt: o.CreatedAt, UpdatedAt: delivered,
	}
	o.DriverID = driverID
	t.Orders[o.ID] = o
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
