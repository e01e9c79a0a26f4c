package demo

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

type Student struct {
	ID         int
	Name       string
	DeptName   string
	Email      string
	Phone      string
	EnrolledAt time.Time
}

type Course struct {
	ID       int
	Title    string
	DeptName string
	Credits  int
}

type Enrollment struct {
	StudentID int
	CourseID  int
	Semester  string
	Year      int
	Grade     string
}

// enrollmentBase anchors generated enrollment dates so repeated seeds produce
// byte-identical datasets.
var enrollmentBase = time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

var (
	firstNames = []string{
		"Alice", "Ben", "Chen", "Dana", "Elif", "Felix", "Grace", "Hiro",
		"Ines", "Jonas", "Kira", "Liam", "Mei", "Noah", "Omar", "Priya",
		"Quinn", "Rosa", "Sam", "Tara",
	}
	lastNames = []string{
		"Adams", "Brandt", "Costa", "Dubois", "Eriksen", "Fischer", "Gupta",
		"Hassan", "Ito", "Jensen", "Kim", "Lopez", "Meier", "Novak", "Okafor",
		"Park", "Quiroga", "Rossi", "Sato", "Tanaka",
	}
	departments = []string{"Comp. Sci.", "Physics", "Music", "Finance", "Chemistry", "History"}
	grades      = []string{"A", "A-", "B+", "B", "B-", "C+", "C"}
	semesters   = []string{"Spring", "Fall"}
)

// Courses is the fixed demo catalog. The ids are stable so documentation and
// canned example questions keep pointing at real rows.
func Courses() []Course {
	return []Course{
		{ID: 101, Title: "Intro. to Computer Science", DeptName: "Comp. Sci.", Credits: 4},
		{ID: 190, Title: "Music Video Production", DeptName: "Music", Credits: 3},
		{ID: 315, Title: "Robotics", DeptName: "Comp. Sci.", Credits: 3},
		{ID: 341, Title: "Quantum Mechanics", DeptName: "Physics", Credits: 3},
		{ID: 351, Title: "Investment Banking", DeptName: "Finance", Credits: 3},
		{ID: 401, Title: "Database System Concepts", DeptName: "Comp. Sci.", Credits: 4},
		{ID: 629, Title: "Organic Chemistry", DeptName: "Chemistry", Credits: 4},
		{ID: 760, Title: "World History", DeptName: "History", Credits: 3},
	}
}

type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Students returns n students with ids starting at 1. The phone and email
// columns exist so sensitive-field redaction has something real to mask.
func (g *Generator) Students(n int) []Student {
	students := make([]Student, 0, n)
	for i := 0; i < n; i++ {
		id := i + 1
		first := pickOne(g.rnd, firstNames)
		last := pickOne(g.rnd, lastNames)
		students = append(students, Student{
			ID:         id,
			Name:       first + " " + last,
			DeptName:   pickOne(g.rnd, departments),
			Email:      fmt.Sprintf("%s.%s%d@example.edu", strings.ToLower(first), strings.ToLower(last), id),
			Phone:      fmt.Sprintf("+1-555-%04d", g.rnd.Intn(10000)),
			EnrolledAt: enrollmentBase.AddDate(0, 0, -g.rnd.Intn(4*365)),
		})
	}
	return students
}

// Enrollments assigns each student two to four distinct courses.
func (g *Generator) Enrollments(students []Student, courses []Course) []Enrollment {
	enrollments := make([]Enrollment, 0, len(students)*3)
	for _, student := range students {
		count := 2 + g.rnd.Intn(3)
		for _, idx := range g.rnd.Perm(len(courses))[:count] {
			enrollments = append(enrollments, Enrollment{
				StudentID: student.ID,
				CourseID:  courses[idx].ID,
				Semester:  pickOne(g.rnd, semesters),
				Year:      2023 + g.rnd.Intn(2),
				Grade:     pickOne(g.rnd, grades),
			})
		}
	}
	return enrollments
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
