package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/student"
)

type StudentRequest struct {
	StudentID  string `json:"student_id" validate:"required,max=20,excludesall=/\\"`
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"omitempty,email,max=100"`
	Phone      string `json:"phone" validate:"max=15"`
	Department string `json:"department" validate:"max=100"`
	Year       int    `json:"year" validate:"gte=0,lte=10"`
}

type LogMealRequest struct {
	StudentID   uuid.UUID `json:"student" validate:"required"`
	MealType    string    `json:"meal_type" validate:"required,oneof=breakfast lunch dinner"`
	Description string    `json:"description" validate:"max=500"`
}

type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}

type StudentHandler struct {
	service  student.Service
	validate *validator.Validate
}

func NewStudentHandler(service student.Service) *StudentHandler {
	return &StudentHandler{service: service, validate: newValidator()}
}

func (h *StudentHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceStudents, auth.ActionRead)).Get("/students", h.handleList)
	router.With(authz.Authorize(auth.ResourceStudents, auth.ActionCreate)).Post("/students", h.handleCreate)
	router.With(authz.Authorize(auth.ResourceStudents, auth.ActionRead)).Get("/students/{id}", h.handleGet)
	router.With(authz.Authorize(auth.ResourceStudents, auth.ActionUpdate)).Put("/students/{id}", h.handleUpdate)
	router.With(authz.Authorize(auth.ResourceStudents, auth.ActionDelete)).Delete("/students/{id}", h.handleDelete)
	router.With(authz.Authorize(auth.ResourceStudents, auth.ActionUpdate)).Post("/students/{id}/badge", h.handleBadge)

	router.With(authz.Authorize(auth.ResourceMeals, auth.ActionRead)).Get("/meals", h.handleListMeals)
	router.With(authz.Authorize(auth.ResourceMeals, auth.ActionCreate)).Post("/meals", h.handleLogMeal)
	router.With(authz.Authorize(auth.ResourceMeals, auth.ActionCreate)).Post("/meals/scan", h.handleScan)
	router.With(authz.Authorize(auth.ResourceMeals, auth.ActionRead)).Get("/meals/{id}", h.handleGetMeal)
}

func (req StudentRequest) toStudent(id uuid.UUID) *student.Student {
	return &student.Student{
		ID:         id,
		StudentID:  req.StudentID,
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Year:       req.Year,
	}
}

func (h *StudentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := student.Filter{Department: q.Get("department"), Search: q.Get("search")}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid year filter")
			return
		}
		filter.Year = year
	}

	list, err := h.service.ListStudents(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list students")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (h *StudentHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req StudentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	s, err := h.service.CreateStudent(r.Context(), req.toStudent(uuid.Nil))
	if err != nil {
		respondWithServiceError(w, err, "Failed to create student")
		return
	}
	respondWithJSON(w, http.StatusCreated, s)
}

func (h *StudentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	s, err := h.service.GetStudent(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get student")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *StudentHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	var req StudentRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	s, err := h.service.UpdateStudent(r.Context(), req.toStudent(id))
	if err != nil {
		respondWithServiceError(w, err, "Failed to update student")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *StudentHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		respondWithServiceError(w, err, "Failed to delete student")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudentHandler) handleBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	var (
		s   *student.Student
		err error
	)
	if force {
		s, err = h.service.RegenerateBadge(r.Context(), id)
	} else {
		s, err = h.service.EnsureBadge(r.Context(), id)
	}
	if err != nil {
		respondWithServiceError(w, err, "Failed to generate badge")
		return
	}
	respondWithJSON(w, http.StatusOK, s)
}

func (h *StudentHandler) handleListMeals(w http.ResponseWriter, r *http.Request) {
	studentID, ok := parseUUIDQuery(w, r, "student")
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := student.MealFilter{StudentID: studentID, MealType: student.MealType(q.Get("meal_type"))}
	if filter.MealType != "" && !filter.MealType.Valid() {
		respondWithError(w, http.StatusBadRequest, "Invalid meal_type filter")
		return
	}
	if raw := q.Get("date"); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid date filter, expected YYYY-MM-DD")
			return
		}
		filter.Date = &day
	}

	meals, err := h.service.ListMeals(r.Context(), filter)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list meals")
		return
	}
	respondWithJSON(w, http.StatusOK, meals)
}

func (h *StudentHandler) handleGetMeal(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid meal log ID")
		return
	}
	meal, err := h.service.GetMeal(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get meal log")
		return
	}
	respondWithJSON(w, http.StatusOK, meal)
}

func (h *StudentHandler) handleLogMeal(w http.ResponseWriter, r *http.Request) {
	var req LogMealRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	meal, err := h.service.LogMeal(r.Context(), student.MealInput{
		StudentID:   req.StudentID,
		MealType:    student.MealType(req.MealType),
		Description: req.Description,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to log meal")
		return
	}
	respondWithJSON(w, http.StatusCreated, meal)
}

func (h *StudentHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	meal, err := h.service.Scan(r.Context(), req.Code)
	if err != nil {
		respondWithServiceError(w, err, "Failed to record scanned meal")
		return
	}
	respondWithJSON(w, http.StatusCreated, meal)
}
