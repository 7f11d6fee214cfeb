package database

import (
	"fmt"

	"github.com/chachabrian/fleetshare-backend/internal/models"
	"gorm.io/gorm"
)

type constraint struct {
	table string
	name  string
	def   string
}

// Foreign keys are declared here rather than through association fields so
// the models stay flat.
var constraints = []constraint{
	{"drivers", "fk_drivers_user", "FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE RESTRICT"},
	{"vehicles", "fk_vehicles_driver", "FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE SET NULL"},
	{"bookings", "fk_bookings_customer", "FOREIGN KEY (customer_id) REFERENCES users(id) ON DELETE RESTRICT"},
	{"bookings", "fk_bookings_driver", "FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE RESTRICT"},
	{"bookings", "fk_bookings_vehicle", "FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE RESTRICT"},
	{"bookings", "bookings_window_check", "CHECK (scheduled_end >= scheduled_start)"},
	{"bookings", "bookings_status_check", "CHECK (status BETWEEN 1 AND 6)"},
	{"feedback", "fk_feedback_booking", "FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE"},
	{"feedback", "fk_feedback_driver", "FOREIGN KEY (driver_id) REFERENCES drivers(id) ON DELETE RESTRICT"},
	{"maintenance_records", "fk_maintenance_vehicle", "FOREIGN KEY (vehicle_id) REFERENCES vehicles(id) ON DELETE CASCADE"},
	{"tools", "fk_tools_owner", "FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE RESTRICT"},
	{"borrow_requests", "fk_borrow_requests_tool", "FOREIGN KEY (tool_id) REFERENCES tools(id) ON DELETE RESTRICT"},
	{"borrow_requests", "fk_borrow_requests_borrower", "FOREIGN KEY (borrower_id) REFERENCES users(id) ON DELETE RESTRICT"},
	{"borrow_requests", "borrow_requests_window_check", "CHECK (end_date >= start_date)"},
	{"borrow_requests", "borrow_requests_status_check", "CHECK (status BETWEEN 1 AND 6)"},
	{"reviews", "fk_reviews_borrow_request", "FOREIGN KEY (borrow_request_id) REFERENCES borrow_requests(id) ON DELETE CASCADE"},
	{"payments", "fk_payments_booking", "FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE"},
	{"payments", "fk_payments_borrow_request", "FOREIGN KEY (borrow_request_id) REFERENCES borrow_requests(id) ON DELETE CASCADE"},
	{"payments", "payments_target_check", "CHECK ((booking_id IS NULL) <> (borrow_request_id IS NULL))"},
	{"payments", "payments_amount_check", "CHECK (amount > 0)"},
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Driver{},
		&models.Vehicle{},
		&models.Booking{},
		&models.Feedback{},
		&models.Maintenance{},
		&models.Tool{},
		&models.BorrowRequest{},
		&models.Review{},
		&models.Payment{},
	)
	if err != nil {
		return err
	}

	if err := db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`).Error; err != nil {
		return err
	}
	if err := db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('customer', 'driver', 'owner', 'admin'))`).Error; err != nil {
		return err
	}

	for _, c := range constraints {
		drop := fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s", c.table, c.name)
		if err := db.Exec(drop).Error; err != nil {
			return fmt.Errorf("drop %s: %w", c.name, err)
		}
		add := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s %s", c.table, c.name, c.def)
		if err := db.Exec(add).Error; err != nil {
			return fmt.Errorf("add %s: %w", c.name, err)
		}
	}

	return nil
}
