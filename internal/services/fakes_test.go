package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/config"
	"github.com/chachabrian/fleetshare-backend/internal/lifecycle"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/shopspring/decimal"
)

// memDB is an in-memory store behind every repository interface. Serializable
// runs one transaction at a time and restores a snapshot when fn fails.
type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	next uint

	users       map[uint]models.User
	drivers     map[uint]models.Driver
	vehicles    map[uint]models.Vehicle
	bookings    map[uint]models.Booking
	payments    map[uint]models.Payment
	feedback    map[uint]models.Feedback
	maintenance map[uint]models.Maintenance
	tools       map[uint]models.Tool
	requests    map[uint]models.BorrowRequest
	reviews     map[uint]models.Review

	commits int
}

type txKey struct{}

func newMemDB() *memDB {
	return &memDB{
		users:       map[uint]models.User{},
		drivers:     map[uint]models.Driver{},
		vehicles:    map[uint]models.Vehicle{},
		bookings:    map[uint]models.Booking{},
		payments:    map[uint]models.Payment{},
		feedback:    map[uint]models.Feedback{},
		maintenance: map[uint]models.Maintenance{},
		tools:       map[uint]models.Tool{},
		requests:    map[uint]models.BorrowRequest{},
		reviews:     map[uint]models.Review{},
	}
}

func (db *memDB) Serializable(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	restore := db.snapshot()
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		db.mu.Lock()
		restore()
		db.mu.Unlock()
		return err
	}
	db.mu.Lock()
	db.commits++
	db.mu.Unlock()
	return nil
}

func (db *memDB) snapshot() func() {
	fns := []func(){
		snap(db.users), snap(db.drivers), snap(db.vehicles), snap(db.bookings),
		snap(db.payments), snap(db.feedback), snap(db.maintenance), snap(db.tools),
		snap(db.requests), snap(db.reviews),
	}
	next := db.next
	return func() {
		for _, f := range fns {
			f()
		}
		db.next = next
	}
}

func snap[T any](m map[uint]T) func() {
	saved := make(map[uint]T, len(m))
	for k, v := range m {
		saved[k] = v
	}
	return func() {
		for k := range m {
			delete(m, k)
		}
		for k, v := range saved {
			m[k] = v
		}
	}
}

func (db *memDB) stores() Stores {
	return Stores{
		Users:          memUsers{db},
		Drivers:        memDrivers{db},
		Vehicles:       memVehicles{db},
		Bookings:       memBookings{db},
		Payments:       memPayments{db},
		Feedback:       memFeedback{db},
		Maintenance:    memMaintenance{db},
		Tools:          memTools{db},
		BorrowRequests: memRequests{db},
		Reviews:        memReviews{db},
	}
}

func insert[T any](db *memDB, m map[uint]T, base *models.Base, v *T) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.next++
	base.ID = db.next
	base.CreatedAt = time.Now()
	base.UpdatedAt = base.CreatedAt
	m[base.ID] = *v
}

func replace[T any](db *memDB, m map[uint]T, resource string, base *models.Base, v *T) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := m[base.ID]; !ok {
		return apperrors.NotFoundError{Resource: resource, ID: base.ID}
	}
	base.UpdatedAt = time.Now()
	m[base.ID] = *v
	return nil
}

func fetch[T any](db *memDB, m map[uint]T, resource string, id uint) (*T, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	v, ok := m[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: resource, ID: id}
	}
	return &v, nil
}

func remove[T any](db *memDB, m map[uint]T, resource string, id uint) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := m[id]; !ok {
		return apperrors.NotFoundError{Resource: resource, ID: id}
	}
	delete(m, id)
	return nil
}

// find returns the matching values ordered by ID.
func find[T any](db *memDB, m map[uint]T, match func(T) bool) []T {
	db.mu.Lock()
	defer db.mu.Unlock()
	ids := make([]uint, 0, len(m))
	for id, v := range m {
		if match(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func first[T any](items []T, resource string) (*T, error) {
	if len(items) == 0 {
		return nil, apperrors.NotFoundError{Resource: resource}
	}
	return &items[0], nil
}

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *models.User) error {
	insert(s.db, s.db.users, &u.Base, u)
	return nil
}
func (s memUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	return fetch(s.db, s.db.users, "user", id)
}
func (s memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return first(find(s.db, s.db.users, func(u models.User) bool { return u.Email == email }), "user")
}
func (s memUsers) Update(_ context.Context, u *models.User) error {
	return replace(s.db, s.db.users, "user", &u.Base, u)
}

type memDrivers struct{ db *memDB }

func (s memDrivers) Create(_ context.Context, d *models.Driver) error {
	insert(s.db, s.db.drivers, &d.Base, d)
	return nil
}
func (s memDrivers) GetByID(_ context.Context, id uint) (*models.Driver, error) {
	return fetch(s.db, s.db.drivers, "driver", id)
}
func (s memDrivers) GetByUserID(_ context.Context, userID uint) (*models.Driver, error) {
	return first(find(s.db, s.db.drivers, func(d models.Driver) bool { return d.UserID == userID }), "driver")
}
func (s memDrivers) Update(_ context.Context, d *models.Driver) error {
	return replace(s.db, s.db.drivers, "driver", &d.Base, d)
}
func (s memDrivers) Delete(_ context.Context, id uint) error {
	return remove(s.db, s.db.drivers, "driver", id)
}
func (s memDrivers) List(_ context.Context) ([]models.Driver, error) {
	return find(s.db, s.db.drivers, func(models.Driver) bool { return true }), nil
}
func (s memDrivers) ListAvailable(_ context.Context, location string) ([]models.Driver, error) {
	loc := strings.ToLower(location)
	out := find(s.db, s.db.drivers, func(d models.Driver) bool {
		return d.Status == models.DriverAvailable && strings.Contains(strings.ToLower(d.Location), loc)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

type memVehicles struct{ db *memDB }

func (s memVehicles) Create(_ context.Context, v *models.Vehicle) error {
	insert(s.db, s.db.vehicles, &v.Base, v)
	return nil
}
func (s memVehicles) GetByID(_ context.Context, id uint) (*models.Vehicle, error) {
	return fetch(s.db, s.db.vehicles, "vehicle", id)
}
func (s memVehicles) Update(_ context.Context, v *models.Vehicle) error {
	return replace(s.db, s.db.vehicles, "vehicle", &v.Base, v)
}
func (s memVehicles) Delete(_ context.Context, id uint) error {
	if err := remove(s.db, s.db.vehicles, "vehicle", id); err != nil {
		return err
	}
	for _, m := range find(s.db, s.db.maintenance, func(m models.Maintenance) bool { return m.VehicleID == id }) {
		_ = remove(s.db, s.db.maintenance, "maintenance", m.ID)
	}
	return nil
}
func (s memVehicles) List(_ context.Context, status models.VehicleStatus) ([]models.Vehicle, error) {
	return find(s.db, s.db.vehicles, func(v models.Vehicle) bool { return status == 0 || v.Status == status }), nil
}
func (s memVehicles) UsableForDriver(_ context.Context, driverID uint) (*models.Vehicle, error) {
	return first(find(s.db, s.db.vehicles, func(v models.Vehicle) bool {
		return v.DriverID != nil && *v.DriverID == driverID && v.Status != models.VehicleMaintenance
	}), "vehicle")
}

func isOpen(st lifecycle.Status) bool {
	for _, o := range lifecycle.OpenStatuses {
		if st == o {
			return true
		}
	}
	return false
}

func hasStatus(statuses []lifecycle.Status, st lifecycle.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

type memBookings struct{ db *memDB }

func (s memBookings) Create(_ context.Context, b *models.Booking) error {
	insert(s.db, s.db.bookings, &b.Base, b)
	return nil
}
func (s memBookings) GetByID(_ context.Context, id uint) (*models.Booking, error) {
	return fetch(s.db, s.db.bookings, "booking", id)
}
func (s memBookings) Update(_ context.Context, b *models.Booking) error {
	return replace(s.db, s.db.bookings, "booking", &b.Base, b)
}
func (s memBookings) Delete(_ context.Context, id uint) error {
	if err := remove(s.db, s.db.bookings, "booking", id); err != nil {
		return err
	}
	for _, p := range find(s.db, s.db.payments, func(p models.Payment) bool { return p.BookingID != nil && *p.BookingID == id }) {
		_ = remove(s.db, s.db.payments, "payment", p.ID)
	}
	for _, f := range find(s.db, s.db.feedback, func(f models.Feedback) bool { return f.BookingID == id }) {
		_ = remove(s.db, s.db.feedback, "feedback", f.ID)
	}
	return nil
}
func (s memBookings) List(_ context.Context, f models.TransactionFilter) ([]models.Booking, int64, error) {
	out := find(s.db, s.db.bookings, func(b models.Booking) bool {
		if f.RequesterID != 0 && b.CustomerID != f.RequesterID {
			return false
		}
		if f.ResourceID != 0 && (b.DriverID == nil || *b.DriverID != f.ResourceID) {
			return false
		}
		return hasStatus(f.Statuses, b.Status)
	})
	return out, int64(len(out)), nil
}
func (s memBookings) FindOverlaps(_ context.Context, q models.OverlapQuery) ([]models.Booking, error) {
	return find(s.db, s.db.bookings, func(b models.Booking) bool {
		if b.ID == q.ExcludeID || !isOpen(b.Status) {
			return false
		}
		sameDriver := q.DriverID != 0 && b.DriverID != nil && *b.DriverID == q.DriverID
		sameVehicle := q.VehicleID != 0 && b.VehicleID != nil && *b.VehicleID == q.VehicleID
		return (sameDriver || sameVehicle) && lifecycle.Overlaps(b.ScheduledStart, b.ScheduledEnd, q.Start, q.End)
	}), nil
}
func (s memBookings) OpenCountByDriver(_ context.Context, driverIDs []uint) (map[uint]int64, error) {
	counts := map[uint]int64{}
	for _, b := range find(s.db, s.db.bookings, func(b models.Booking) bool { return b.DriverID != nil && isOpen(b.Status) }) {
		for _, id := range driverIDs {
			if *b.DriverID == id {
				counts[id]++
			}
		}
	}
	return counts, nil
}
func (s memBookings) CountByDriver(_ context.Context, driverID uint) (int64, error) {
	return int64(len(find(s.db, s.db.bookings, func(b models.Booking) bool { return b.DriverID != nil && *b.DriverID == driverID }))), nil
}
func (s memBookings) CountByVehicle(_ context.Context, vehicleID uint) (int64, error) {
	return int64(len(find(s.db, s.db.bookings, func(b models.Booking) bool { return b.VehicleID != nil && *b.VehicleID == vehicleID }))), nil
}

type memPayments struct{ db *memDB }

func (s memPayments) Create(_ context.Context, p *models.Payment) error {
	insert(s.db, s.db.payments, &p.Base, p)
	return nil
}
func (s memPayments) GetByID(_ context.Context, id uint) (*models.Payment, error) {
	return fetch(s.db, s.db.payments, "payment", id)
}
func (s memPayments) Update(_ context.Context, p *models.Payment) error {
	return replace(s.db, s.db.payments, "payment", &p.Base, p)
}
func (s memPayments) GetByBooking(_ context.Context, bookingID uint) (*models.Payment, error) {
	return first(find(s.db, s.db.payments, func(p models.Payment) bool { return p.BookingID != nil && *p.BookingID == bookingID }), "payment")
}
func (s memPayments) GetByBorrowRequest(_ context.Context, requestID uint) (*models.Payment, error) {
	return first(find(s.db, s.db.payments, func(p models.Payment) bool {
		return p.BorrowRequestID != nil && *p.BorrowRequestID == requestID
	}), "payment")
}

type memFeedback struct{ db *memDB }

func (s memFeedback) Create(_ context.Context, f *models.Feedback) error {
	insert(s.db, s.db.feedback, &f.Base, f)
	return nil
}
func (s memFeedback) GetByBooking(_ context.Context, bookingID uint) (*models.Feedback, error) {
	return first(find(s.db, s.db.feedback, func(f models.Feedback) bool { return f.BookingID == bookingID }), "feedback")
}
func (s memFeedback) ListByDriver(_ context.Context, driverID uint) ([]models.Feedback, error) {
	return find(s.db, s.db.feedback, func(f models.Feedback) bool { return f.DriverID == driverID }), nil
}
func (s memFeedback) RatingsForDriver(_ context.Context, driverID uint) ([]int, error) {
	var out []int
	for _, f := range find(s.db, s.db.feedback, func(f models.Feedback) bool { return f.DriverID == driverID }) {
		out = append(out, f.Rating)
	}
	return out, nil
}

type memMaintenance struct{ db *memDB }

func (s memMaintenance) Create(_ context.Context, m *models.Maintenance) error {
	insert(s.db, s.db.maintenance, &m.Base, m)
	return nil
}
func (s memMaintenance) GetByID(_ context.Context, id uint) (*models.Maintenance, error) {
	return fetch(s.db, s.db.maintenance, "maintenance", id)
}
func (s memMaintenance) Update(_ context.Context, m *models.Maintenance) error {
	return replace(s.db, s.db.maintenance, "maintenance", &m.Base, m)
}
func (s memMaintenance) ListByVehicle(_ context.Context, vehicleID uint) ([]models.Maintenance, error) {
	return find(s.db, s.db.maintenance, func(m models.Maintenance) bool { return m.VehicleID == vehicleID }), nil
}
func (s memMaintenance) Due(_ context.Context, cutoff time.Time) ([]models.Maintenance, error) {
	return find(s.db, s.db.maintenance, func(m models.Maintenance) bool {
		return m.Status == models.MaintenanceScheduled && !m.ScheduledFor.After(cutoff)
	}), nil
}

type memTools struct{ db *memDB }

func (s memTools) Create(_ context.Context, t *models.Tool) error {
	insert(s.db, s.db.tools, &t.Base, t)
	return nil
}
func (s memTools) GetByID(_ context.Context, id uint) (*models.Tool, error) {
	return fetch(s.db, s.db.tools, "tool", id)
}
func (s memTools) Update(_ context.Context, t *models.Tool) error {
	return replace(s.db, s.db.tools, "tool", &t.Base, t)
}
func (s memTools) Delete(_ context.Context, id uint) error {
	return remove(s.db, s.db.tools, "tool", id)
}
func (s memTools) List(_ context.Context, f models.ToolFilter) ([]models.Tool, int64, error) {
	out := find(s.db, s.db.tools, func(t models.Tool) bool {
		return (f.OwnerID == 0 || t.OwnerID == f.OwnerID) && (f.Category == "" || t.Category == f.Category)
	})
	return out, int64(len(out)), nil
}

type memRequests struct{ db *memDB }

func (s memRequests) Create(_ context.Context, r *models.BorrowRequest) error {
	insert(s.db, s.db.requests, &r.Base, r)
	return nil
}
func (s memRequests) GetByID(_ context.Context, id uint) (*models.BorrowRequest, error) {
	return fetch(s.db, s.db.requests, "borrow request", id)
}
func (s memRequests) Update(_ context.Context, r *models.BorrowRequest) error {
	return replace(s.db, s.db.requests, "borrow request", &r.Base, r)
}
func (s memRequests) Delete(_ context.Context, id uint) error {
	if err := remove(s.db, s.db.requests, "borrow request", id); err != nil {
		return err
	}
	for _, p := range find(s.db, s.db.payments, func(p models.Payment) bool {
		return p.BorrowRequestID != nil && *p.BorrowRequestID == id
	}) {
		_ = remove(s.db, s.db.payments, "payment", p.ID)
	}
	for _, rv := range find(s.db, s.db.reviews, func(rv models.Review) bool { return rv.BorrowRequestID == id }) {
		_ = remove(s.db, s.db.reviews, "review", rv.ID)
	}
	return nil
}
func (s memRequests) List(_ context.Context, f models.TransactionFilter) ([]models.BorrowRequest, int64, error) {
	out := find(s.db, s.db.requests, func(r models.BorrowRequest) bool {
		if f.RequesterID != 0 && r.BorrowerID != f.RequesterID {
			return false
		}
		if f.OwnerID != 0 && r.OwnerID != f.OwnerID {
			return false
		}
		if f.ResourceID != 0 && r.ToolID != f.ResourceID {
			return false
		}
		return hasStatus(f.Statuses, r.Status)
	})
	return out, int64(len(out)), nil
}
func (s memRequests) FindOverlaps(_ context.Context, toolID uint, start, end time.Time, excludeID uint) ([]models.BorrowRequest, error) {
	return find(s.db, s.db.requests, func(r models.BorrowRequest) bool {
		return r.ID != excludeID && r.ToolID == toolID && isOpen(r.Status) &&
			lifecycle.Overlaps(r.StartDate, r.EndDate, start, end)
	}), nil
}
func (s memRequests) ListOverdue(_ context.Context, now time.Time) ([]models.BorrowRequest, error) {
	return find(s.db, s.db.requests, func(r models.BorrowRequest) bool {
		return r.Status == lifecycle.StatusInProgress && r.EndDate.Before(now)
	}), nil
}
func (s memRequests) CountByTool(_ context.Context, toolID uint) (int64, error) {
	return int64(len(find(s.db, s.db.requests, func(r models.BorrowRequest) bool { return r.ToolID == toolID }))), nil
}

type memReviews struct{ db *memDB }

func (s memReviews) Create(_ context.Context, r *models.Review) error {
	insert(s.db, s.db.reviews, &r.Base, r)
	return nil
}
func (s memReviews) GetByBorrowRequest(_ context.Context, requestID uint) (*models.Review, error) {
	return first(find(s.db, s.db.reviews, func(r models.Review) bool { return r.BorrowRequestID == requestID }), "review")
}
func (s memReviews) ListByTool(_ context.Context, toolID uint) ([]models.Review, error) {
	return find(s.db, s.db.reviews, func(r models.Review) bool { return r.ToolID == toolID }), nil
}
func (s memReviews) RatingsForTool(_ context.Context, toolID uint) ([]int, error) {
	var out []int
	for _, r := range find(s.db, s.db.reviews, func(r models.Review) bool { return r.ToolID == toolID }) {
		out = append(out, r.Rating)
	}
	return out, nil
}
func (s memReviews) RatingsForUser(_ context.Context, userID uint) ([]int, error) {
	var out []int
	for _, r := range find(s.db, s.db.reviews, func(r models.Review) bool { return r.RevieweeID == userID }) {
		out = append(out, r.Rating)
	}
	return out, nil
}

type memCache struct {
	mu      sync.Mutex
	ratings map[string]RatingSummary
}

func newMemCache() *memCache {
	return &memCache{ratings: map[string]RatingSummary{}}
}

func (c *memCache) SetRating(_ context.Context, key string, avg float64, count int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ratings[key] = RatingSummary{Average: avg, Count: count}
	return nil
}

func (c *memCache) GetRating(_ context.Context, key string) (float64, int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.ratings[key]
	return r.Average, r.Count, ok, nil
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// env wires every service over one memDB.
type env struct {
	db       *memDB
	cache    *memCache
	events   *recorder
	deps     Deps
	bookings *BookingService
	assign   *AssignmentService
	payments *PaymentService
	feedback *FeedbackService
	fleet    *FleetService
	maint    *MaintenanceService
	tools    *ToolService
	rentals  *RentalService
	reviews  *ReviewService
}

var admin = Actor{UserID: 9999, Role: models.RoleAdmin}

func newEnv() *env {
	db := newMemDB()
	e := &env{db: db, cache: newMemCache(), events: &recorder{}}
	e.deps = Deps{
		Stores:   db.stores(),
		Tx:       db,
		Notifier: e.events,
		Cache:    e.cache,
		Pricing: config.Pricing{
			FareCeiling:       decimal.NewFromInt(100000),
			DefaultRatePerKm:  decimal.NewFromInt(35),
			MaxDriverWorkload: 2,
		},
		Now: func() time.Time { return testNow },
	}
	e.assign = NewAssignmentService(e.deps)
	e.bookings = NewBookingService(e.deps, e.assign)
	e.payments = NewPaymentService(e.deps)
	e.feedback = NewFeedbackService(e.deps)
	e.fleet = NewFleetService(e.deps)
	e.maint = NewMaintenanceService(e.deps)
	e.tools = NewToolService(e.deps, nil)
	e.rentals = NewRentalService(e.deps)
	e.reviews = NewReviewService(e.deps)
	return e
}

func (e *env) user(role models.Role) Actor {
	u := &models.User{Name: string(role), Email: string(role) + "@example.com", Role: role, IsActive: true}
	_ = e.db.stores().Users.Create(context.Background(), u)
	return Actor{UserID: u.ID, Role: role}
}

// driver registers a driver with one paired vehicle at 100 per km.
func (e *env) driver(location string, rating float64) (Actor, *models.Driver, *models.Vehicle) {
	ctx := context.Background()
	a := e.user(models.RoleDriver)
	d := &models.Driver{UserID: a.UserID, Name: "driver", LicenseNumber: location, Location: location, Status: models.DriverAvailable, Rating: rating}
	_ = e.db.stores().Drivers.Create(ctx, d)
	v := &models.Vehicle{RegistrationNumber: "KAA", Type: "van", RatePerKm: decimal.NewFromInt(100), Status: models.VehicleAvailable, DriverID: &d.ID}
	_ = e.db.stores().Vehicles.Create(ctx, v)
	return a, d, v
}

func (e *env) tool(owner Actor, rate int64) *models.Tool {
	t := &models.Tool{OwnerID: owner.UserID, Name: "drill", DailyRate: decimal.NewFromInt(rate), Status: models.ToolAvailable}
	_ = e.db.stores().Tools.Create(context.Background(), t)
	return t
}

func day(n int) time.Time {
	return testNow.AddDate(0, 0, n)
}

func uintPtr(v uint) *uint { return &v }
