// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/academy-backend/internal/domain/cart"
	"github.com/your-org/academy-backend/internal/domain/course"
	"github.com/your-org/academy-backend/internal/domain/enrollment"
	"github.com/your-org/academy-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		&user.User{},
		&course.Course{},
		&cart.Cart{},
		&cart.CartItem{},
		&enrollment.Enrollment{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_users_created_at ON users(created_at DESC)",

		// Course indexes
		"CREATE INDEX IF NOT EXISTS idx_courses_status ON courses(status)",
		"CREATE INDEX IF NOT EXISTS idx_courses_slug ON courses(slug)",
		"CREATE INDEX IF NOT EXISTS idx_courses_created_at ON courses(created_at DESC)",

		// Cart indexes. One live row per (cart, course); soft-deleted rows
		// must not block a course from being re-added.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_cart_course_live ON cart_items(cart_id, course_id) WHERE deleted_at IS NULL",
		"CREATE INDEX IF NOT EXISTS idx_cart_items_created_at ON cart_items(created_at DESC)",

		// Enrollment indexes. Status checks and settlement both read the
		// latest row per (user, course).
		"CREATE INDEX IF NOT EXISTS idx_enrollments_user_course_created ON enrollments(user_id, course_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_enrollments_payment_status ON enrollments(payment_status)",
		"CREATE INDEX IF NOT EXISTS idx_enrollments_payment_id ON enrollments(payment_id)",
		"CREATE INDEX IF NOT EXISTS idx_enrollments_email ON enrollments(email)",
		"CREATE INDEX IF NOT EXISTS idx_enrollments_created_at ON enrollments(created_at DESC)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts initial data into the database
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	if err := m.seedTestUser(); err != nil {
		return fmt.Errorf("failed to seed test user: %w", err)
	}

	if err := m.seedCourses(); err != nil {
		return fmt.Errorf("failed to seed courses: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedAdminUser() error {
	log.Println("👤 Seeding admin user...")

	var existing user.User
	result := m.db.Where("email = ?", "admin@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		adminUser := user.User{
			Email:     "admin@example.com",
			Password:  string(hashedPassword),
			FirstName: "Admin",
			LastName:  "User",
			IsActive:  true,
			IsAdmin:   true,
		}

		if err := m.db.Create(&adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		log.Println("✅ Created admin user: admin@example.com (password: admin123)")
	} else {
		log.Printf("⏭️ Admin user already exists with ID: %d", existing.ID)
	}

	return nil
}

func (m *Migration) seedTestUser() error {
	log.Println("👤 Seeding test user...")

	var existing user.User
	result := m.db.Where("email = ?", "student1@example.com").First(&existing)
	if result.Error != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte("student123"), 10)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		testUser := user.User{
			Email:     "student1@example.com",
			Password:  string(hashedPassword),
			FirstName: "Sample",
			LastName:  "Student",
			Phone:     "+15550100",
			IsActive:  true,
			IsAdmin:   false,
		}

		if err := m.db.Create(&testUser).Error; err != nil {
			return err
		}

		log.Println("✅ Created test user: student1@example.com (password: student123)")
	} else {
		log.Println("⏭️ Test user already exists")
	}

	return nil
}

// seedCourses creates the initial course catalog
func (m *Migration) seedCourses() error {
	log.Println("📚 Seeding courses...")

	var courseCount int64
	m.db.Model(&course.Course{}).Count(&courseCount)
	if courseCount > 0 {
		log.Println("⏭️ Courses already exist")
		return nil
	}

	courses := []course.Course{
		{
			Name:        "Certified Nursing Assistant",
			Slug:        "certified-nursing-assistant",
			Description: "State-approved nursing assistant program covering patient care fundamentals, vital signs, infection control, and clinical rotations at partner facilities.",
			Price:       129900, // $1299.00
			Duration:    "6 weeks",
			Status:      course.StatusActive,
		},
		{
			Name:        "Phlebotomy Technician",
			Slug:        "phlebotomy-technician",
			Description: "Hands-on venipuncture training with specimen handling, lab safety, and exam preparation for national certification.",
			Price:       89900, // $899.00
			Duration:    "4 weeks",
			Status:      course.StatusActive,
		},
		{
			Name:        "EKG Technician",
			Slug:        "ekg-technician",
			Description: "Electrocardiography fundamentals, rhythm interpretation, stress testing, and Holter monitoring.",
			Price:       79900, // $799.00
			Duration:    "4 weeks",
			Status:      course.StatusActive,
		},
		{
			Name:        "Medication Aide",
			Slug:        "medication-aide",
			Description: "Advanced program for certified aides covering medication administration, documentation, and state regulations.",
			Price:       69900, // $699.00
			Duration:    "3 weeks",
			Status:      course.StatusDraft,
		},
	}

	for _, c := range courses {
		var existing course.Course
		result := m.db.Where("slug = ?", c.Slug).First(&existing)
		if result.Error != nil {
			if err := m.db.Create(&c).Error; err != nil {
				log.Printf("⚠️ Failed to create course %s: %v", c.Slug, err)
			} else {
				log.Printf("✅ Created course: %s", c.Name)
			}
		} else {
			log.Printf("⏭️ Course already exists: %s", c.Name)
		}
	}

	return nil
}

// DropAllTables drops all tables (use with extreme caution)
func (m *Migration) DropAllTables() error {
	log.Println("⚠️ WARNING: Dropping all database tables...")

	// Reverse dependency order
	tables := []string{
		"enrollments",
		"cart_items",
		"carts",
		"courses",
		"users",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			log.Printf("⚠️ Failed to drop table %s: %v", table, err)
		} else {
			log.Printf("🗑️ Dropped table: %s", table)
		}
	}

	log.Println("✅ All tables dropped successfully")
	return nil
}

// GetTableInfo returns information about database tables
func (m *Migration) GetTableInfo() error {
	var tables []string

	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}

		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)
	log.Printf("🗂️ Total tables: %d", len(tables))

	return nil
}
