// Package handler is the thin HTTP layer over the lifecycle
// coordinators. Payload validation happens upstream of the coordinator
// contract; handlers only decode, hand off, and translate the Result.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roster/internal/directory/models"
	"roster/internal/ledger"
	"roster/internal/platform/middleware"
)

// TeacherCoordinator runs the teacher lifecycle.
type TeacherCoordinator interface {
	Create(ctx context.Context, cmd models.TeacherCommand) models.Result
	Update(ctx context.Context, cmd models.TeacherCommand) models.Result
	Delete(ctx context.Context, id string) models.Result
}

// ParentCoordinator runs the parent lifecycle.
type ParentCoordinator interface {
	Create(ctx context.Context, cmd models.ParentCommand) models.Result
	Update(ctx context.Context, cmd models.ParentCommand) models.Result
	Delete(ctx context.Context, id string) models.Result
}

// StudentCoordinator runs the student lifecycle.
type StudentCoordinator interface {
	Create(ctx context.Context, cmd models.StudentCommand) models.Result
	Update(ctx context.Context, cmd models.StudentCommand) models.Result
	Delete(ctx context.Context, id string) models.Result
}

// Handler wires the admin lifecycle endpoints.
type Handler struct {
	logger   *slog.Logger
	teachers TeacherCoordinator
	parents  ParentCoordinator
	students StudentCoordinator
	ledger   ledger.Store
}

// New creates a directory Handler.
func New(teachers TeacherCoordinator, parents ParentCoordinator, students StudentCoordinator, ledgerStore ledger.Store, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		teachers: teachers,
		parents:  parents,
		students: students,
		ledger:   ledgerStore,
	}
}

// Register registers the directory routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/teachers", h.handleCreateTeacher)
	r.Put("/admin/teachers/{id}", h.handleUpdateTeacher)
	r.Delete("/admin/teachers/{id}", h.handleDeleteTeacher)

	r.Post("/admin/parents", h.handleCreateParent)
	r.Put("/admin/parents/{id}", h.handleUpdateParent)
	r.Delete("/admin/parents/{id}", h.handleDeleteParent)

	r.Post("/admin/students", h.handleCreateStudent)
	r.Put("/admin/students/{id}", h.handleUpdateStudent)
	r.Delete("/admin/students/{id}", h.handleDeleteStudent)

	r.Get("/admin/inconsistencies", h.handleListInconsistencies)
}

type teacherPayload struct {
	identityPayload
	Phone     string  `json:"phone"`
	Address   string  `json:"address"`
	Img       string  `json:"img"`
	BloodType string  `json:"bloodType"`
	Sex       string  `json:"sex"`
	Birthday  string  `json:"birthday"`
	Subjects  []int64 `json:"subjects"`
}

type studentPayload struct {
	identityPayload
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Img       string `json:"img"`
	BloodType string `json:"bloodType"`
	Sex       string `json:"sex"`
	Birthday  string `json:"birthday"`
	ClassID   int64  `json:"classId"`
	GradeID   int64  `json:"gradeId"`
	ParentID  string `json:"parentId"`
}

type parentPayload struct {
	identityPayload
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type identityPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
}

func (p identityPayload) fields() models.IdentityFields {
	return models.IdentityFields{
		Username: p.Username,
		Password: p.Password,
		Name:     p.Name,
		Surname:  p.Surname,
		Email:    p.Email,
	}
}

func (p teacherPayload) command(id string) models.TeacherCommand {
	return models.TeacherCommand{
		ID:             id,
		IdentityFields: p.fields(),
		Phone:          p.Phone,
		Address:        p.Address,
		Img:            p.Img,
		BloodType:      p.BloodType,
		Sex:            models.Sex(p.Sex),
		Birthday:       parseDate(p.Birthday),
		Subjects:       p.Subjects,
	}
}

func (p studentPayload) command(id string) models.StudentCommand {
	return models.StudentCommand{
		ID:             id,
		IdentityFields: p.fields(),
		Phone:          p.Phone,
		Address:        p.Address,
		Img:            p.Img,
		BloodType:      p.BloodType,
		Sex:            models.Sex(p.Sex),
		Birthday:       parseDate(p.Birthday),
		ClassID:        p.ClassID,
		GradeID:        p.GradeID,
		ParentID:       p.ParentID,
	}
}

func (p parentPayload) command(id string) models.ParentCommand {
	return models.ParentCommand{
		ID:             id,
		IdentityFields: p.fields(),
		Phone:          p.Phone,
		Address:        p.Address,
	}
}

func (h *Handler) handleCreateTeacher(w http.ResponseWriter, r *http.Request) {
	var payload teacherPayload
	if !h.decode(w, r, &payload) {
		return
	}
	writeResult(w, http.StatusCreated, h.teachers.Create(r.Context(), payload.command("")))
}

func (h *Handler) handleUpdateTeacher(w http.ResponseWriter, r *http.Request) {
	var payload teacherPayload
	if !h.decode(w, r, &payload) {
		return
	}
	writeResult(w, http.StatusOK, h.teachers.Update(r.Context(), payload.command(chi.URLParam(r, "id"))))
}

func (h *Handler) handleDeleteTeacher(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, h.teachers.Delete(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) handleCreateParent(w http.ResponseWriter, r *http.Request) {
	var payload parentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	writeResult(w, http.StatusCreated, h.parents.Create(r.Context(), payload.command("")))
}

func (h *Handler) handleUpdateParent(w http.ResponseWriter, r *http.Request) {
	var payload parentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	writeResult(w, http.StatusOK, h.parents.Update(r.Context(), payload.command(chi.URLParam(r, "id"))))
}

func (h *Handler) handleDeleteParent(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, h.parents.Delete(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var payload studentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	writeResult(w, http.StatusCreated, h.students.Create(r.Context(), payload.command("")))
}

func (h *Handler) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	var payload studentPayload
	if !h.decode(w, r, &payload) {
		return
	}
	writeResult(w, http.StatusOK, h.students.Update(r.Context(), payload.command(chi.URLParam(r, "id"))))
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	writeResult(w, http.StatusOK, h.students.Delete(r.Context(), chi.URLParam(r, "id")))
}

func (h *Handler) handleListInconsistencies(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		writeJSON(w, http.StatusOK, []ledger.Entry{})
		return
	}
	entries, err := h.ledger.Recent(r.Context(), 100)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to read ledger",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(r.Context()),
		)
		w.WriteHeader(http.StatusBadRequest)
		return false
	}
	return true
}

// writeResult translates the Result envelope. A hard failure keeps the
// envelope in the body so the caller can show the classified message.
func writeResult(w http.ResponseWriter, successStatus int, result models.Result) {
	status := successStatus
	if result.Error {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
