// ABOUTME: Demo models for the modeladmin-demo console
// ABOUTME: A small school domain with single and many-valued relations

package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/2389/modeladmin/metadata"
)

// String keys work against every backend: the SQL stores assign UUIDs,
// the document store assigns ObjectID hex strings.

// Teacher is a staff member who runs courses.
type Teacher struct {
	ID    string `db:"id,pk,auto" bson:"_id"`
	Name  string `db:"name" bson:"name" admin:"required,maxlen=80"`
	Email string `db:"email" bson:"email" admin:"required"`
	Bio   string `db:"bio" bson:"bio" admin:"widget=textarea,label=Biography"`
}

func (t Teacher) String() string { return t.Name }

// Student is a person enrolled in zero or more courses.
type Student struct {
	ID       string    `db:"id,pk,auto" bson:"_id"`
	Name     string    `db:"name" bson:"name" admin:"required,minlen=2,maxlen=80"`
	Email    string    `db:"email" bson:"email"`
	Birthday time.Time `db:"birthday" bson:"birthday"`
	Courses  []string  `db:"-" bson:"courses" admin:"relation=Course,label=Enrolled courses"`
}

func (s Student) String() string { return s.Name }

// Course is a class run by one teacher and attended by many students.
type Course struct {
	ID        string          `db:"id,pk,auto" bson:"_id"`
	Subject   string          `db:"subject" bson:"subject" admin:"required,maxlen=120"`
	Fee       decimal.Decimal `db:"fee" bson:"fee"`
	Seats     int64           `db:"seats" bson:"seats" admin:"min=0,max=500"`
	Active    bool            `db:"active" bson:"active"`
	StartsAt  time.Time       `db:"starts_at" bson:"starts_at" admin:"label=Starts"`
	TeacherID string          `db:"teacher_id" bson:"teacher_id" admin:"relation=Teacher,label=Taught by"`
	Students  []string        `db:"-" bson:"students" admin:"relation=Student"`
}

func (c Course) String() string { return c.Subject }

func newRegistry() *metadata.Registry {
	return metadata.NewRegistry(&Teacher{}, &Student{}, &Course{})
}
