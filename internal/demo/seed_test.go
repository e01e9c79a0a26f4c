package demo

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestSeedDBCreatesSchemaAndInsertsDataset(t *testing.T) {
	db, mock := newSQLMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS courses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS takes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()

	// The generator is deterministic, so replaying it yields the exact
	// insert sequence SeedDB will issue.
	generator := NewGenerator(datasetSeed)
	students := generator.Students(studentCount)
	courses := Courses()
	enrollments := generator.Enrollments(students, courses)

	for _, s := range students {
		mock.ExpectExec("INSERT INTO students").
			WithArgs(s.ID, s.Name, s.DeptName, s.Email, s.Phone, s.EnrolledAt.Format("2006-01-02")).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	for _, c := range courses {
		mock.ExpectExec("INSERT INTO courses").
			WithArgs(c.ID, c.Title, c.DeptName, c.Credits).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	for _, e := range enrollments {
		mock.ExpectExec("INSERT INTO takes").
			WithArgs(e.StudentID, e.CourseID, e.Semester, e.Year, e.Grade).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	if err := SeedDB(context.Background(), db, "sqlite", nil); err != nil {
		t.Fatalf("SeedDB() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestSeedDBSkipsWhenDataAlreadyPresent(t *testing.T) {
	db, mock := newSQLMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS students").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS courses").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS takes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(40))

	if err := SeedDB(context.Background(), db, "sqlite", nil); err != nil {
		t.Fatalf("SeedDB() error = %v", err)
	}
	assertSQLMock(t, mock)
}

func TestSeedRejectsUnknownDriver(t *testing.T) {
	if err := Seed(context.Background(), "oracle", "dsn", nil); err == nil {
		t.Fatal("Seed() accepted an unsupported driver")
	}
}

func TestPlaceholdersPerDriver(t *testing.T) {
	if got := placeholders("postgres", 3); got != "$1, $2, $3" {
		t.Fatalf("postgres placeholders = %q", got)
	}
	if got := placeholders("mysql", 3); got != "?, ?, ?" {
		t.Fatalf("mysql placeholders = %q", got)
	}
}
