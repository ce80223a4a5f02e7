// Package models holds the directory domain types: lifecycle commands,
// profile rows, and the Result envelope returned to callers.
package models

import "time"

// Role is the identity claim attached to an account at the provider.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleParent  Role = "parent"
	RoleStudent Role = "student"
)

// Sex mirrors the profile schema enum.
type Sex string

const (
	SexMale   Sex = "MALE"
	SexFemale Sex = "FEMALE"
)

// IdentityFields are the account attributes owned by the identity
// provider. Password is required on create and optional on update; an
// empty password on update means "keep the current credential".
type IdentityFields struct {
	Username string
	Password string
	Name     string
	Surname  string
	Email    string
}

// Command is implemented by every role-specific lifecycle command so the
// coordinator can run one pipeline per entity kind.
type Command interface {
	// EntityID returns the shared key, empty on create.
	EntityID() string
	Identity() IdentityFields
	Role() Role
}

// TeacherCommand carries everything needed to create or update a teacher.
// Subjects is the complete set of taught subject ids; on update it
// replaces the stored set, it is never merged.
type TeacherCommand struct {
	ID string
	IdentityFields
	Phone     string
	Address   string
	Img       string
	BloodType string
	Sex       Sex
	Birthday  time.Time
	Subjects  []int64
}

func (c TeacherCommand) EntityID() string         { return c.ID }
func (c TeacherCommand) Identity() IdentityFields { return c.IdentityFields }
func (c TeacherCommand) Role() Role               { return RoleTeacher }

// StudentCommand links a student profile to its class, grade, and parent.
type StudentCommand struct {
	ID string
	IdentityFields
	Phone     string
	Address   string
	Img       string
	BloodType string
	Sex       Sex
	Birthday  time.Time
	ClassID   int64
	GradeID   int64
	ParentID  string
}

func (c StudentCommand) EntityID() string         { return c.ID }
func (c StudentCommand) Identity() IdentityFields { return c.IdentityFields }
func (c StudentCommand) Role() Role               { return RoleStudent }

// ParentCommand carries the parent profile fields.
type ParentCommand struct {
	ID string
	IdentityFields
	Phone   string
	Address string
}

func (c ParentCommand) EntityID() string         { return c.ID }
func (c ParentCommand) Identity() IdentityFields { return c.IdentityFields }
func (c ParentCommand) Role() Role               { return RoleParent }

// Teacher is the stored profile row. Its ID always equals the id of the
// identity account created for it.
type Teacher struct {
	ID        string
	Username  string
	Name      string
	Surname   string
	Email     string
	Phone     string
	Address   string
	Img       string
	BloodType string
	Sex       Sex
	Birthday  time.Time
	Subjects  []int64
	CreatedAt time.Time
}

// Student is the stored profile row for a student.
type Student struct {
	ID        string
	Username  string
	Name      string
	Surname   string
	Email     string
	Phone     string
	Address   string
	Img       string
	BloodType string
	Sex       Sex
	Birthday  time.Time
	ClassID   int64
	GradeID   int64
	ParentID  string
	CreatedAt time.Time
}

// Parent is the stored profile row for a parent.
type Parent struct {
	ID        string
	Username  string
	Name      string
	Surname   string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}

// Result is the normalized outcome handed back to the caller. Error true
// is a hard stop requiring user-visible feedback; PartialFailures lists
// non-fatal sub-step failures (today: email rotation) that did not flip
// the overall outcome.
type Result struct {
	Success         bool     `json:"success"`
	Error           bool     `json:"error"`
	ErrorMessage    string   `json:"errorMessage,omitempty"`
	PartialFailures []string `json:"partialFailures,omitempty"`
}

// OK returns a success Result.
func OK() Result {
	return Result{Success: true}
}

// Failed returns a failure Result with the classified message.
func Failed(message string) Result {
	return Result{Error: true, ErrorMessage: message}
}
