package services

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/plantbazaar/backend/models"
)

// In-memory fakes behind the repository interfaces. Stock decrement is
// conditional under the lock, matching the store-level guarantee.

type fakeProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*models.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[primitive.ObjectID]*models.Product{}}
}

func (r *fakeProductRepo) put(p models.Product) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.products[p.ID] = &p
	return p.ID
}

func (r *fakeProductRepo) stock(id primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.products[id].Quantity
}

func (r *fakeProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[primitive.ObjectID]models.Product{}
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (r *fakeProductRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.Quantity < qty {
		return false, nil
	}
	p.Quantity -= qty
	return true, nil
}

func (r *fakeProductRepo) RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return errors.New("product not found")
	}
	p.Quantity += qty
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[primitive.ObjectID]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[primitive.ObjectID]*models.Order{}}
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	for _, existing := range r.orders {
		if existing.OrderID == order.OrderID {
			return errors.New("duplicate order_id")
		}
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.orders, id)
	return nil
}

func (r *fakeOrderRepo) ExistsOrderID(ctx context.Context, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.OrderID == orderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) FindByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatusFrom(ctx context.Context, id primitive.ObjectID, from []models.OrderStatus, next models.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if o.Status == f {
			o.Status = next
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) SetWaybill(ctx context.Context, id primitive.ObjectID, awb string, courierCharge float64, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return errors.New("order not found")
	}
	o.AWBNumber = awb
	o.CourierCharge = courierCharge
	o.Status = status
	return nil
}

func (r *fakeOrderRepo) FindTrackable(ctx context.Context) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders {
		if o.AWBNumber != "" && !o.Status.IsTerminal() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *fakeOrderRepo) get(id primitive.ObjectID) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.orders[id]; ok {
		cp := *o
		return &cp
	}
	return nil
}

type fakeCartRepo struct {
	mu    sync.Mutex
	carts map[string]*models.Cart
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]*models.Cart{}}
}

func (r *fakeCartRepo) Get(ctx context.Context, userID string) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = append([]models.CartItem(nil), c.Items...)
	return &cp, nil
}

func (r *fakeCartRepo) Save(ctx context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cart
	cp.Items = append([]models.CartItem(nil), cart.Items...)
	r.carts[cart.UserID] = &cp
	return nil
}

func (r *fakeCartRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

type fakeNotificationRepo struct {
	mu    sync.Mutex
	saved []models.Notification
}

func (r *fakeNotificationRepo) Save(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.saved = append(r.saved, *n)
	return nil
}

func (r *fakeNotificationRepo) FindByUserID(ctx context.Context, userID string) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.saved {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.saved {
		if r.saved[i].ID == id {
			r.saved[i].Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) countByType(notifType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, n := range r.saved {
		if n.Type == notifType {
			count++
		}
	}
	return count
}

type fakeCarrier struct {
	mu          sync.Mutex
	statusByAWB map[string]int
	errByAWB    map[string]error
	assignment  *AWBAssignment
	assignErr   error
	polls       int
}

func newFakeCarrier() *fakeCarrier {
	return &fakeCarrier{
		statusByAWB: map[string]int{},
		errByAWB:    map[string]error{},
	}
}

func (c *fakeCarrier) setStatus(awb string, code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusByAWB[awb] = code
	delete(c.errByAWB, awb)
}

func (c *fakeCarrier) setErr(awb string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errByAWB[awb] = err
}

func (c *fakeCarrier) TrackAWB(ctx context.Context, awb string) (*TrackingResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls++
	if err, ok := c.errByAWB[awb]; ok {
		return nil, err
	}
	return &TrackingResult{
		ShipmentStatus: c.statusByAWB[awb],
		CurrentStatus:  "status text",
	}, nil
}

func (c *fakeCarrier) AssignAWB(ctx context.Context, shipmentID, courierID int64) (*AWBAssignment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.assignErr != nil {
		return nil, c.assignErr
	}
	if c.assignment != nil {
		return c.assignment, nil
	}
	return &AWBAssignment{AWBCode: "AWB123", FreightCharge: 55}, nil
}

func (c *fakeCarrier) CheckServiceability(ctx context.Context, req ServiceabilityRequest) (*CourierOption, error) {
	return &CourierOption{CourierName: "test courier", CourierCompanyID: 1, Rate: 40}, nil
}

func (c *fakeCarrier) CreateShipment(ctx context.Context, order *models.Order, billing ShipmentBilling, courier CourierSelection, dims ShipmentDimensions) (*ShipmentResult, error) {
	return &ShipmentResult{OrderID: 1, ShipmentID: 2}, nil
}
