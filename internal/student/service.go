package student

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/campus-cafe/internal/badge"
)

var (
	ErrInvalidMealType = errors.New("invalid meal type")
	ErrCafeClosed      = errors.New("cafe closed")
	ErrEmptyScan       = errors.New("scanned code is empty")
)

// BadgeRenderer is satisfied by *badge.Generator.
type BadgeRenderer interface {
	Generate(studentID, name, department string) ([]byte, error)
}

// FileStore is satisfied by *storage.LocalStore.
type FileStore interface {
	Save(key string, data []byte) error
	Exists(key string) (bool, error)
	Delete(key string) error
	URL(key string) string
}

type MealInput struct {
	StudentID   uuid.UUID
	MealType    MealType
	Description string
}

type Service interface {
	CreateStudent(ctx context.Context, s *Student) (*Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (*Student, error)
	ListStudents(ctx context.Context, filter Filter) ([]Student, error)
	UpdateStudent(ctx context.Context, s *Student) (*Student, error)
	DeleteStudent(ctx context.Context, id uuid.UUID) error
	EnsureBadge(ctx context.Context, id uuid.UUID) (*Student, error)
	RegenerateBadge(ctx context.Context, id uuid.UUID) (*Student, error)

	LogMeal(ctx context.Context, input MealInput) (*MealLog, error)
	GetMeal(ctx context.Context, id int64) (*MealLog, error)
	ListMeals(ctx context.Context, filter MealFilter) ([]MealLog, error)
	Scan(ctx context.Context, code string) (*MealLog, error)
}

type service struct {
	repo   Repository
	badges BadgeRenderer
	files  FileStore
	now    func() time.Time
}

func NewService(repo Repository, badges BadgeRenderer, files FileStore) Service {
	return &service{repo: repo, badges: badges, files: files, now: time.Now}
}

func (s *service) withURL(st *Student) *Student {
	if st.HasBadge() {
		st.BadgeURL = s.files.URL(*st.BadgeKey)
	}
	return st
}

// CreateStudent inserts the student and ensures its badge. A badge failure
// removes the row again so no student exists without a badge.
func (s *service) CreateStudent(ctx context.Context, st *Student) (*Student, error) {
	st.BadgeKey = nil
	if err := s.repo.Create(ctx, st); err != nil {
		if errors.Is(err, ErrStudentIDExists) {
			return nil, ErrStudentIDExists
		}
		log.Error().Err(err).Str("student_id", st.StudentID).Msg("service: failed to create student")
		return nil, fmt.Errorf("service: failed to create student: %w", err)
	}

	created, err := s.EnsureBadge(ctx, st.ID)
	if err != nil {
		if delErr := s.repo.Delete(ctx, st.ID); delErr != nil {
			log.Error().Err(delErr).Stringer("id", st.ID).Msg("service: failed to roll back student without badge")
		}
		return nil, err
	}

	log.Info().Stringer("id", created.ID).Str("student_id", created.StudentID).Msg("service: student created")
	return created, nil
}

func (s *service) GetStudent(ctx context.Context, id uuid.UUID) (*Student, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to get student: %w", err)
	}
	return s.withURL(st), nil
}

func (s *service) ListStudents(ctx context.Context, filter Filter) ([]Student, error) {
	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list students: %w", err)
	}
	for i := range list {
		s.withURL(&list[i])
	}
	return list, nil
}

// UpdateStudent changes identity fields. An existing badge is left as is
// even when name or department change; RegenerateBadge refreshes it.
func (s *service) UpdateStudent(ctx context.Context, st *Student) (*Student, error) {
	if err := s.repo.Update(ctx, st); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStudentIDExists) {
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to update student: %w", err)
	}
	return s.GetStudent(ctx, st.ID)
}

func (s *service) DeleteStudent(ctx context.Context, id uuid.UUID) error {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("service: failed to delete student: %w", err)
	}
	if st.HasBadge() {
		if err := s.files.Delete(*st.BadgeKey); err != nil {
			log.Warn().Err(err).Str("key", *st.BadgeKey).Msg("service: failed to remove badge file")
		}
	}
	return nil
}

// EnsureBadge generates and stores the badge only when the student has none.
// A recorded key whose file went missing is rewritten under the same key.
func (s *service) EnsureBadge(ctx context.Context, id uuid.UUID) (*Student, error) {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	if st.HasBadge() {
		ok, err := s.files.Exists(*st.BadgeKey)
		if err != nil {
			return nil, fmt.Errorf("service: failed to check badge file: %w", err)
		}
		if ok {
			return st, nil
		}
		log.Warn().Stringer("id", id).Str("key", *st.BadgeKey).Msg("service: badge file missing, rewriting")
		if err := s.storeBadge(st, *st.BadgeKey); err != nil {
			return nil, err
		}
		return st, nil
	}

	// The key is claimed before the file is written, so a file is only
	// ever written under a key this row owns.
	key := badge.FileKey(st.StudentID)
	changed, err := s.repo.SetBadgeKey(ctx, id, key, false)
	if err != nil {
		if errors.Is(err, ErrBadgeKeyTaken) {
			log.Warn().Stringer("id", id).Str("key", key).Msg("service: badge key held by another student")
			return nil, ErrBadgeKeyTaken
		}
		return nil, fmt.Errorf("service: failed to record badge: %w", err)
	}
	if !changed {
		// Another request recorded a badge first.
		return s.GetStudent(ctx, id)
	}
	if err := s.storeBadge(st, key); err != nil {
		s.releaseBadge(ctx, id, key, nil)
		return nil, err
	}

	st.BadgeKey = &key
	log.Info().Stringer("id", id).Str("key", key).Msg("service: badge generated")
	return s.withURL(st), nil
}

// RegenerateBadge overwrites the badge with one built from the current
// identity fields.
func (s *service) RegenerateBadge(ctx context.Context, id uuid.UUID) (*Student, error) {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}

	key := badge.FileKey(st.StudentID)
	moved := !st.HasBadge() || *st.BadgeKey != key
	if moved {
		if _, err := s.repo.SetBadgeKey(ctx, id, key, true); err != nil {
			if errors.Is(err, ErrBadgeKeyTaken) {
				log.Warn().Stringer("id", id).Str("key", key).Msg("service: badge key held by another student")
				return nil, ErrBadgeKeyTaken
			}
			return nil, fmt.Errorf("service: failed to record badge: %w", err)
		}
	}
	if err := s.storeBadge(st, key); err != nil {
		if moved {
			s.releaseBadge(ctx, id, key, st.BadgeKey)
		}
		return nil, err
	}
	if st.HasBadge() && *st.BadgeKey != key {
		if err := s.files.Delete(*st.BadgeKey); err != nil {
			log.Warn().Err(err).Str("key", *st.BadgeKey).Msg("service: failed to remove old badge file")
		}
	}

	st.BadgeKey = &key
	log.Info().Stringer("id", id).Str("key", key).Msg("service: badge regenerated")
	return s.withURL(st), nil
}

// releaseBadge undoes a claim whose file could not be stored: the file is
// removed and the row goes back to its previous key, or to none.
func (s *service) releaseBadge(ctx context.Context, id uuid.UUID, key string, previous *string) {
	if err := s.files.Delete(key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("service: failed to remove badge file")
	}

	var err error
	if previous != nil {
		_, err = s.repo.SetBadgeKey(ctx, id, *previous, true)
	} else {
		err = s.repo.ClearBadgeKey(ctx, id, key)
	}
	if err != nil {
		log.Error().Err(err).Stringer("id", id).Str("key", key).Msg("service: failed to release badge key")
	}
}

func (s *service) storeBadge(st *Student, key string) error {
	png, err := s.badges.Generate(st.StudentID, st.Name, st.Department)
	if err != nil {
		log.Error().Err(err).Str("student_id", st.StudentID).Msg("service: failed to generate badge")
		return fmt.Errorf("service: failed to generate badge: %w", err)
	}
	if err := s.files.Save(key, png); err != nil {
		log.Error().Err(err).Str("key", key).Msg("service: failed to store badge")
		return fmt.Errorf("service: failed to store badge: %w", err)
	}
	return nil
}

func (s *service) LogMeal(ctx context.Context, input MealInput) (*MealLog, error) {
	if !input.MealType.Valid() {
		return nil, ErrInvalidMealType
	}
	now := s.now()
	m := &MealLog{
		StudentID:   input.StudentID,
		MealType:    input.MealType,
		MealDate:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Description: input.Description,
		LoggedAt:    now.UTC(),
	}
	if err := s.repo.CreateMeal(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateMeal) || errors.Is(err, ErrNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("student", input.StudentID).Msg("service: failed to log meal")
		return nil, fmt.Errorf("service: failed to log meal: %w", err)
	}
	return s.GetMeal(ctx, m.ID)
}

func (s *service) GetMeal(ctx context.Context, id int64) (*MealLog, error) {
	m, err := s.repo.GetMeal(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMealNotFound) {
			return nil, ErrMealNotFound
		}
		return nil, fmt.Errorf("service: failed to get meal log: %w", err)
	}
	return m, nil
}

func (s *service) ListMeals(ctx context.Context, filter MealFilter) ([]MealLog, error) {
	if filter.MealType != "" && !filter.MealType.Valid() {
		return nil, ErrInvalidMealType
	}
	meals, err := s.repo.ListMeals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list meal logs: %w", err)
	}
	return meals, nil
}

// Scan logs the current meal for a scanned code, which is either a bare
// student id or a full badge payload.
func (s *service) Scan(ctx context.Context, code string) (*MealLog, error) {
	studentID, err := parseScan(code)
	if err != nil {
		return nil, err
	}

	meal, open := MealTypeAt(s.now())
	if !open {
		return nil, ErrCafeClosed
	}

	st, err := s.repo.GetByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve scanned student: %w", err)
	}

	return s.LogMeal(ctx, MealInput{StudentID: st.ID, MealType: meal, Description: "scanned"})
}

func parseScan(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", ErrEmptyScan
	}
	if strings.Contains(code, "|") || strings.HasPrefix(code, "STUDENT_ID:") {
		return badge.StudentIDFromPayload(code)
	}
	return code, nil
}
