package student

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/campus-cafe/internal/badge"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, s *Student) error {
	args := m.Called(ctx, s)
	if args.Error(0) == nil && s.ID == uuid.Nil {
		s.ID = uuid.Must(uuid.NewV4())
	}
	return args.Error(0)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	st := *args.Get(0).(*Student)
	return &st, args.Error(1)
}

func (m *mockRepository) GetByStudentID(ctx context.Context, studentID string) (*Student, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Student), args.Error(1)
}

func (m *mockRepository) List(ctx context.Context, filter Filter) ([]Student, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]Student), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, s *Student) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) SetBadgeKey(ctx context.Context, id uuid.UUID, key string, force bool) (bool, error) {
	args := m.Called(ctx, id, key, force)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) ClearBadgeKey(ctx context.Context, id uuid.UUID, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

func (m *mockRepository) CreateMeal(ctx context.Context, ml *MealLog) error {
	args := m.Called(ctx, ml)
	if args.Error(0) == nil {
		ml.ID = 42
	}
	return args.Error(0)
}

func (m *mockRepository) GetMeal(ctx context.Context, id int64) (*MealLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MealLog), args.Error(1)
}

func (m *mockRepository) ListMeals(ctx context.Context, filter MealFilter) ([]MealLog, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]MealLog), args.Error(1)
}

type memStore struct {
	files   map[string][]byte
	saveErr error
	saves   int
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte)}
}

func (s *memStore) Save(key string, data []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	s.files[key] = append([]byte(nil), data...)
	return nil
}

func (s *memStore) Exists(key string) (bool, error) {
	_, ok := s.files[key]
	return ok, nil
}

func (s *memStore) Delete(key string) error {
	delete(s.files, key)
	return nil
}

func (s *memStore) URL(key string) string {
	return "/media/" + key
}

type failingRenderer struct{}

func (failingRenderer) Generate(string, string, string) ([]byte, error) {
	return nil, badge.ErrCompositing
}

func strPtr(s string) *string {
	return &s
}

func at(hour, minute int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 3, 14, hour, minute, 0, 0, time.Local)
	}
}

func TestMealTypeAt(t *testing.T) {
	testCases := []struct {
		hour, minute int
		want         MealType
		open         bool
	}{
		{6, 59, "", false},
		{7, 0, Breakfast, true},
		{8, 59, Breakfast, true},
		{9, 0, "", false},
		{11, 30, Lunch, true},
		{13, 0, "", false},
		{17, 0, Dinner, true},
		{19, 59, Dinner, true},
		{20, 0, "", false},
	}
	for _, tc := range testCases {
		meal, open := MealTypeAt(at(tc.hour, tc.minute)())
		assert.Equal(t, tc.want, meal, "%02d:%02d", tc.hour, tc.minute)
		assert.Equal(t, tc.open, open, "%02d:%02d", tc.hour, tc.minute)
	}
}

func TestEnsureBadge(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	key := badge.FileKey("S100")

	t.Run("generates once", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S100", Name: "Ada", Department: "CS"}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, key, false).Return(true, nil).Once()

		st, err := svc.EnsureBadge(context.Background(), id)
		require.NoError(t, err)
		require.NotNil(t, st.BadgeKey)
		assert.Equal(t, "qr_code_S100.png", *st.BadgeKey)
		assert.Equal(t, "/media/qr_code_S100.png", st.BadgeURL)
		assert.Equal(t, 1, files.saves)
		repo.AssertExpectations(t)
	})

	t.Run("existing badge is preserved", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		files.files[key] = []byte("original")
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		// Name changed since the badge was made; it must stay as is.
		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S100", Name: "Ada L.", Department: "Math", BadgeKey: strPtr(key)}, nil).Once()

		_, err := svc.EnsureBadge(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, []byte("original"), files.files[key])
		assert.Zero(t, files.saves)
		repo.AssertNotCalled(t, "SetBadgeKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("storage failure releases the key", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		files.saveErr = errors.New("disk full")
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S100"}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, key, false).Return(true, nil).Once()
		repo.On("ClearBadgeKey", mock.Anything, id, key).Return(nil).Once()

		_, err := svc.EnsureBadge(context.Background(), id)
		require.Error(t, err)
		assert.Empty(t, files.files)
		repo.AssertExpectations(t)
	})

	t.Run("lost race reloads", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S100"}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, key, false).Return(false, nil).Once()
		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S100", BadgeKey: strPtr(key)}, nil).Once()

		st, err := svc.EnsureBadge(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, key, *st.BadgeKey)
		assert.Zero(t, files.saves)
	})

	t.Run("key held by renamed student is not overwritten", func(t *testing.T) {
		// Student A was renamed S100 -> S200 and still owns qr_code_S100.png.
		repo := new(mockRepository)
		files := newMemStore()
		files.files[key] = []byte("badge of A")
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		bob := uuid.Must(uuid.NewV4())
		repo.On("GetByID", mock.Anything, bob).Return(&Student{ID: bob, StudentID: "S100", Name: "Bob"}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, bob, key, false).Return(false, ErrBadgeKeyTaken).Once()

		_, err := svc.EnsureBadge(context.Background(), bob)
		assert.ErrorIs(t, err, ErrBadgeKeyTaken)
		assert.Equal(t, []byte("badge of A"), files.files[key])
		assert.Zero(t, files.saves)
		repo.AssertNotCalled(t, "ClearBadgeKey", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRegenerateBadge_Overwrites(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	key := badge.FileKey("S100")
	repo := new(mockRepository)
	files := newMemStore()
	files.files[key] = []byte("stale")
	svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

	repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S100", Name: "Ada", Department: "CS", BadgeKey: strPtr(key)}, nil).Once()

	_, err := svc.RegenerateBadge(context.Background(), id)
	require.NoError(t, err)
	assert.NotEqual(t, []byte("stale"), files.files[key])
	assert.Equal(t, 1, files.saves)
	repo.AssertNotCalled(t, "SetBadgeKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegenerateBadge_AfterRename(t *testing.T) {
	id := uuid.Must(uuid.NewV4())
	oldKey := badge.FileKey("S100")
	newKey := badge.FileKey("S200")

	t.Run("moves to the new key", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		files.files[oldKey] = []byte("old")
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S200", Name: "Ada", BadgeKey: strPtr(oldKey)}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, newKey, true).Return(true, nil).Once()

		st, err := svc.RegenerateBadge(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, newKey, *st.BadgeKey)
		assert.Contains(t, files.files, newKey)
		assert.NotContains(t, files.files, oldKey)
		repo.AssertExpectations(t)
	})

	t.Run("new key held by another student", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		files.files[oldKey] = []byte("old")
		files.files[newKey] = []byte("badge of someone else")
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S200", Name: "Ada", BadgeKey: strPtr(oldKey)}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, newKey, true).Return(false, ErrBadgeKeyTaken).Once()

		_, err := svc.RegenerateBadge(context.Background(), id)
		assert.ErrorIs(t, err, ErrBadgeKeyTaken)
		assert.Equal(t, []byte("badge of someone else"), files.files[newKey])
		assert.Equal(t, []byte("old"), files.files[oldKey])
		assert.Zero(t, files.saves)
	})

	t.Run("storage failure restores the old key", func(t *testing.T) {
		repo := new(mockRepository)
		files := newMemStore()
		files.files[oldKey] = []byte("old")
		files.saveErr = errors.New("disk full")
		svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

		repo.On("GetByID", mock.Anything, id).Return(&Student{ID: id, StudentID: "S200", Name: "Ada", BadgeKey: strPtr(oldKey)}, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, newKey, true).Return(true, nil).Once()
		repo.On("SetBadgeKey", mock.Anything, id, oldKey, true).Return(true, nil).Once()

		_, err := svc.RegenerateBadge(context.Background(), id)
		require.Error(t, err)
		assert.Equal(t, []byte("old"), files.files[oldKey])
		repo.AssertExpectations(t)
	})
}

func TestCreateStudent_BadgeFailureRollsBack(t *testing.T) {
	key := badge.FileKey("S7")
	repo := new(mockRepository)
	files := newMemStore()
	svc := &service{repo: repo, badges: failingRenderer{}, files: files, now: time.Now}

	repo.On("Create", mock.Anything, mock.AnythingOfType("*student.Student")).Return(nil).Once()
	repo.On("GetByID", mock.Anything, mock.Anything).Return(&Student{StudentID: "S7"}, nil).Once()
	repo.On("SetBadgeKey", mock.Anything, mock.Anything, key, false).Return(true, nil).Once()
	repo.On("ClearBadgeKey", mock.Anything, mock.Anything, key).Return(nil).Once()
	repo.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateStudent(context.Background(), &Student{StudentID: "S7", Name: "Bo", Department: "EE", Year: 2})
	assert.ErrorIs(t, err, badge.ErrCompositing)
	assert.NotContains(t, files.files, key)
	repo.AssertExpectations(t)
}

func TestCreateStudent_StoreFailureLeavesNoFile(t *testing.T) {
	key := badge.FileKey("S8")
	repo := new(mockRepository)
	files := newMemStore()
	// An orphan from an earlier crash sits under the claimed key.
	files.files[key] = []byte("orphan")
	files.saveErr = errors.New("disk full")
	svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

	repo.On("Create", mock.Anything, mock.AnythingOfType("*student.Student")).Return(nil).Once()
	repo.On("GetByID", mock.Anything, mock.Anything).Return(&Student{StudentID: "S8"}, nil).Once()
	repo.On("SetBadgeKey", mock.Anything, mock.Anything, key, false).Return(true, nil).Once()
	repo.On("ClearBadgeKey", mock.Anything, mock.Anything, key).Return(nil).Once()
	repo.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateStudent(context.Background(), &Student{StudentID: "S8", Name: "Cy"})
	require.Error(t, err)
	assert.Empty(t, files.files)
	repo.AssertExpectations(t)
}

func TestCreateStudent_BadgeKeyTakenKeepsOtherFile(t *testing.T) {
	key := badge.FileKey("S100")
	repo := new(mockRepository)
	files := newMemStore()
	files.files[key] = []byte("badge of A")
	svc := &service{repo: repo, badges: badge.NewGenerator(), files: files, now: time.Now}

	repo.On("Create", mock.Anything, mock.AnythingOfType("*student.Student")).Return(nil).Once()
	repo.On("GetByID", mock.Anything, mock.Anything).Return(&Student{StudentID: "S100", Name: "Bob"}, nil).Once()
	repo.On("SetBadgeKey", mock.Anything, mock.Anything, key, false).Return(false, ErrBadgeKeyTaken).Once()
	repo.On("Delete", mock.Anything, mock.Anything).Return(nil).Once()

	_, err := svc.CreateStudent(context.Background(), &Student{StudentID: "S100", Name: "Bob"})
	assert.ErrorIs(t, err, ErrBadgeKeyTaken)
	assert.Equal(t, []byte("badge of A"), files.files[key])
	repo.AssertExpectations(t)
}

func TestScan(t *testing.T) {
	st := &Student{ID: uuid.Must(uuid.NewV4()), StudentID: "S100", Name: "Ada"}

	for name, code := range map[string]string{
		"bare id":       "S100",
		"badge payload": badge.Payload("S100", "Ada", "CS"),
	} {
		t.Run(name, func(t *testing.T) {
			repo := new(mockRepository)
			svc := &service{repo: repo, files: newMemStore(), now: at(12, 15)}

			repo.On("GetByStudentID", mock.Anything, "S100").Return(st, nil).Once()
			repo.On("CreateMeal", mock.Anything, mock.MatchedBy(func(m *MealLog) bool {
				return m.StudentID == st.ID && m.MealType == Lunch && m.MealDate.Day() == 14
			})).Return(nil).Once()
			repo.On("GetMeal", mock.Anything, int64(42)).Return(&MealLog{ID: 42, StudentID: st.ID, MealType: Lunch}, nil).Once()

			m, err := svc.Scan(context.Background(), code)
			require.NoError(t, err)
			assert.Equal(t, Lunch, m.MealType)
			repo.AssertExpectations(t)
		})
	}

	t.Run("closed", func(t *testing.T) {
		svc := &service{repo: new(mockRepository), files: newMemStore(), now: at(15, 0)}
		_, err := svc.Scan(context.Background(), "S100")
		assert.ErrorIs(t, err, ErrCafeClosed)
	})

	t.Run("malformed payload", func(t *testing.T) {
		svc := &service{repo: new(mockRepository), files: newMemStore(), now: at(8, 0)}
		_, err := svc.Scan(context.Background(), "NAME:Ada|DEPT:CS")
		assert.ErrorIs(t, err, badge.ErrBadPayload)
	})

	t.Run("already logged", func(t *testing.T) {
		repo := new(mockRepository)
		svc := &service{repo: repo, files: newMemStore(), now: at(8, 0)}
		repo.On("GetByStudentID", mock.Anything, "S100").Return(st, nil).Once()
		repo.On("CreateMeal", mock.Anything, mock.Anything).Return(ErrDuplicateMeal).Once()

		_, err := svc.Scan(context.Background(), "S100")
		assert.ErrorIs(t, err, ErrDuplicateMeal)
	})
}

func TestLogMeal_RejectsUnknownType(t *testing.T) {
	svc := &service{repo: new(mockRepository), files: newMemStore(), now: time.Now}
	_, err := svc.LogMeal(context.Background(), MealInput{StudentID: uuid.Must(uuid.NewV4()), MealType: "brunch"})
	assert.ErrorIs(t, err, ErrInvalidMealType)
}
