package demo

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/askdb/askdb/internal/dbexec"
)

const (
	studentCount = 40

	// datasetSeed is fixed so every --seed-demo run produces the same rows.
	datasetSeed = 1
)

// schemaDDL is written in the portable subset all four supported engines
// accept unmodified.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS students (
  id INTEGER PRIMARY KEY,
  name VARCHAR(64) NOT NULL,
  dept_name VARCHAR(64) NOT NULL,
  email VARCHAR(128) NOT NULL,
  phone VARCHAR(32) NOT NULL,
  enrolled_at DATE NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS courses (
  id INTEGER PRIMARY KEY,
  title VARCHAR(128) NOT NULL,
  dept_name VARCHAR(64) NOT NULL,
  credits INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS takes (
  student_id INTEGER NOT NULL,
  course_id INTEGER NOT NULL,
  semester VARCHAR(16) NOT NULL,
  year INTEGER NOT NULL,
  grade VARCHAR(2)
)`,
}

// Seed opens the configured database, creates the demo schema if it is
// missing, and fills it with a deterministic student/course dataset.
func Seed(ctx context.Context, driver, dsn string, logger *slog.Logger) error {
	dialect, err := dbexec.DialectFor(driver)
	if err != nil {
		return err
	}
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("database dsn is required")
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return SeedDB(ctx, db, dialect.Name(), logger)
}

// SeedDB seeds an already-open handle. It is a no-op when the students table
// holds rows, so restarting with --seed-demo never duplicates data.
func SeedDB(ctx context.Context, db *sql.DB, driver string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, ddl := range schemaDDL {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create demo schema: %w", err)
		}
	}

	var existing int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM students").Scan(&existing); err != nil {
		return fmt.Errorf("check existing demo data: %w", err)
	}
	if existing > 0 {
		logger.Info("demo data already present, skipping seed", slog.Int("students", existing))
		return nil
	}

	generator := NewGenerator(datasetSeed)
	students := generator.Students(studentCount)
	courses := Courses()
	enrollments := generator.Enrollments(students, courses)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	if err := insertAll(ctx, tx, driver, students, courses, enrollments); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}

	logger.Info(
		"seeded demo dataset",
		slog.Int("students", len(students)),
		slog.Int("courses", len(courses)),
		slog.Int("enrollments", len(enrollments)),
	)
	return nil
}

func insertAll(ctx context.Context, tx *sql.Tx, driver string, students []Student, courses []Course, enrollments []Enrollment) error {
	studentStmt := fmt.Sprintf(
		"INSERT INTO students (id, name, dept_name, email, phone, enrolled_at) VALUES (%s)",
		placeholders(driver, 6),
	)
	for _, s := range students {
		if _, err := tx.ExecContext(ctx, studentStmt, s.ID, s.Name, s.DeptName, s.Email, s.Phone, s.EnrolledAt.Format("2006-01-02")); err != nil {
			return fmt.Errorf("insert student %d: %w", s.ID, err)
		}
	}

	courseStmt := fmt.Sprintf(
		"INSERT INTO courses (id, title, dept_name, credits) VALUES (%s)",
		placeholders(driver, 4),
	)
	for _, c := range courses {
		if _, err := tx.ExecContext(ctx, courseStmt, c.ID, c.Title, c.DeptName, c.Credits); err != nil {
			return fmt.Errorf("insert course %d: %w", c.ID, err)
		}
	}

	enrollmentStmt := fmt.Sprintf(
		"INSERT INTO takes (student_id, course_id, semester, year, grade) VALUES (%s)",
		placeholders(driver, 5),
	)
	for _, e := range enrollments {
		if _, err := tx.ExecContext(ctx, enrollmentStmt, e.StudentID, e.CourseID, e.Semester, e.Year, e.Grade); err != nil {
			return fmt.Errorf("insert enrollment for student %d: %w", e.StudentID, err)
		}
	}
	return nil
}

// placeholders renders the positional parameter list the driver expects.
func placeholders(driver string, n int) string {
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if driver == "postgres" {
			parts = append(parts, fmt.Sprintf("$%d", i))
		} else {
			parts = append(parts, "?")
		}
	}
	return strings.Join(parts, ", ")
}
