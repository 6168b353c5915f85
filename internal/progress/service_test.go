package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booktrack/internal/book"
	"booktrack/internal/status"
)

// fakeStore implements Repository and BookDirectory in memory, mirroring
// the transactional contract of the Postgres repo: combined methods apply
// both writes or neither, and the (book, owner) pair is unique.
type fakeStore struct {
	mu      sync.Mutex
	books   map[string]*book.Book
	records map[string]*Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		books:   make(map[string]*book.Book),
		records: make(map[string]*Record),
	}
}

func recordKey(bookID, ownerID string) string {
	return bookID + "|" + ownerID
}

func (f *fakeStore) addBook(id, ownerID string, pageCount *int) *book.Book {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &book.Book{
		ID:                 id,
		OwnerID:            ownerID,
		Title:              "Dom Casmurro",
		Author:             "Machado de Assis",
		Genre:              "Romance",
		PageCount:          pageCount,
		Status:             status.WantToRead,
		LastStatusChangeAt: time.Now(),
	}
	f.books[id] = b
	return b
}

func (f *fakeStore) bookStatus(id string) status.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.books[id].Status
}

func (f *fakeStore) recordStatus(bookID, ownerID string) (status.Status, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(bookID, ownerID)]
	if !ok {
		return "", false
	}
	return rec.ReadingStatus, true
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*book.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.books[id]
	if !ok {
		return nil, book.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) CountByStatus(_ context.Context, ownerID string) (map[status.Status]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[status.Status]int)
	for _, b := range f.books {
		if b.OwnerID == ownerID {
			counts[b.Status]++
		}
	}
	return counts, nil
}

func (f *fakeStore) GetByBookAndOwner(_ context.Context, bookID, ownerID string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[recordKey(bookID, ownerID)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeStore) ListByOwner(_ context.Context, ownerID string) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateWithBookStatus(_ context.Context, rec *Record, bookStatus status.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(rec.BookID, rec.OwnerID)
	if _, exists := f.records[k]; exists {
		return ErrDuplicate
	}
	rec.ID = rec.BookID + "-rec"
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	cp := *rec
	f.records[k] = &cp
	f.setBookStatus(rec.BookID, bookStatus, rec.UpdatedAt)
	return nil
}

func (f *fakeStore) UpdateWithBookStatus(_ context.Context, rec *Record, bookStatus status.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(rec.BookID, rec.OwnerID)
	if _, exists := f.records[k]; !exists {
		return ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	f.records[k] = &cp
	f.setBookStatus(rec.BookID, bookStatus, rec.UpdatedAt)
	return nil
}

func (f *fakeStore) Update(_ context.Context, rec *Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(rec.BookID, rec.OwnerID)
	if _, exists := f.records[k]; !exists {
		return ErrNotFound
	}
	rec.UpdatedAt = time.Now()
	cp := *rec
	f.records[k] = &cp
	return nil
}

func (f *fakeStore) SetReadingStatus(_ context.Context, bookID, ownerID string, s status.Status, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setBookStatus(bookID, s, at)
	if rec, ok := f.records[recordKey(bookID, ownerID)]; ok {
		rec.ReadingStatus = s
		rec.UpdatedAt = at
	}
	return nil
}

func (f *fakeStore) DeleteAndResetBook(_ context.Context, bookID, ownerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := recordKey(bookID, ownerID)
	if _, ok := f.records[k]; !ok {
		return false, nil
	}
	delete(f.records, k)
	f.setBookStatus(bookID, status.WantToRead, time.Now())
	return true, nil
}

func (f *fakeStore) SumPagesRead(_ context.Context, ownerID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			total += rec.CurrentPage
		}
	}
	return total, nil
}

func (f *fakeStore) AverageRating(_ context.Context, bookID string) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum, n := 0, 0
	for _, rec := range f.records {
		if rec.BookID == bookID && rec.Rating != nil {
			sum += *rec.Rating
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	avg := float64(sum) / float64(n)
	return &avg, nil
}

// callers hold the lock
func (f *fakeStore) setBookStatus(bookID string, s status.Status, at time.Time) {
	b, ok := f.books[bookID]
	if !ok {
		return
	}
	if b.Status != s {
		b.LastStatusChangeAt = at
	}
	b.Status = s
	b.UpdatedAt = at
}

func intPtr(v int) *int { return &v }

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	return NewService(store, store), store
}

func TestService_CreateOrUpdate_Walkthrough(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(200))

	rec, err := svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 0, TotalPages: 200})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.PercentComplete)
	assert.Equal(t, status.WantToRead, rec.ReadingStatus)
	assert.Equal(t, status.WantToRead, store.bookStatus("book-1"))

	rec, err = svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 100, TotalPages: 200})
	require.NoError(t, err)
	assert.Equal(t, 50, rec.PercentComplete)
	assert.Equal(t, status.Reading, rec.ReadingStatus)
	assert.Equal(t, status.Reading, store.bookStatus("book-1"))

	// A rating halfway through is rejected.
	_, err = svc.Rate(ctx, "book-1", "owner-1", 4)
	assert.ErrorIs(t, err, ErrNotFinished)

	rec, err = svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 200, TotalPages: 200})
	require.NoError(t, err)
	assert.Equal(t, 100, rec.PercentComplete)
	assert.Equal(t, status.Finished, rec.ReadingStatus)
	assert.Equal(t, status.Finished, store.bookStatus("book-1"))

	// Now the rating sticks, and a second reader moves the average.
	rec, err = svc.Rate(ctx, "book-1", "owner-1", 4)
	require.NoError(t, err)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 4, *rec.Rating)

	avg, err := svc.AverageRating(ctx, "book-1")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 0.001)

	_, err = svc.CreateOrUpdate(ctx, "book-1", "owner-2", UpdateInput{CurrentPage: 200, TotalPages: 200})
	require.ErrorIs(t, err, book.ErrForbidden)
}

func TestService_AverageRating_AcrossOwners(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(200))

	_, err := svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 200, TotalPages: 200})
	require.NoError(t, err)
	_, err = svc.Rate(ctx, "book-1", "owner-1", 4)
	require.NoError(t, err)

	// Second owner's record is inserted directly; ownership checks would
	// reject it through the service, which only ever sees one owner's shelf.
	second, err := New("book-1", "owner-2", 200, 200, "")
	require.NoError(t, err)
	require.NoError(t, second.SetRating(5))
	require.NoError(t, store.CreateWithBookStatus(ctx, second, status.Finished))

	avg, err := svc.AverageRating(ctx, "book-1")
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.5, *avg, 0.001)
}

func TestService_CreateOrUpdate_Idempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", nil)

	in := UpdateInput{CurrentPage: 42, TotalPages: 300, Note: "slow going"}
	first, err := svc.CreateOrUpdate(ctx, "book-1", "owner-1", in)
	require.NoError(t, err)
	second, err := svc.CreateOrUpdate(ctx, "book-1", "owner-1", in)
	require.NoError(t, err)

	assert.Equal(t, first.CurrentPage, second.CurrentPage)
	assert.Equal(t, first.TotalPages, second.TotalPages)
	assert.Equal(t, first.PercentComplete, second.PercentComplete)
	assert.Equal(t, first.ReadingStatus, second.ReadingStatus)
	assert.Equal(t, first.Note, second.Note)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_CreateOrUpdate_Errors(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", nil)

	_, err := svc.CreateOrUpdate(ctx, "missing", "owner-1", UpdateInput{CurrentPage: 1, TotalPages: 10})
	assert.ErrorIs(t, err, book.ErrNotFound)

	_, err = svc.CreateOrUpdate(ctx, "book-1", "other-owner", UpdateInput{CurrentPage: 1, TotalPages: 10})
	assert.ErrorIs(t, err, book.ErrForbidden)

	_, err = svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 1, TotalPages: 0})
	assert.ErrorIs(t, err, ErrInvalidPages)
}

func TestService_InitProgress_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(150))

	require.NoError(t, svc.InitProgress(ctx, "book-1", "owner-1", 150))
	err := svc.InitProgress(ctx, "book-1", "owner-1", 150)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestService_SetBookStatus(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(200))

	// Without a progress record the book alone changes.
	b, err := svc.SetBookStatus(ctx, "book-1", "owner-1", "em_leitura")
	require.NoError(t, err)
	assert.Equal(t, status.Reading, b.Status)
	assert.Equal(t, status.Reading, store.bookStatus("book-1"))
	_, exists := store.recordStatus("book-1", "owner-1")
	assert.False(t, exists)

	// With a record, both views move together, including backwards.
	_, err = svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 200, TotalPages: 200})
	require.NoError(t, err)

	for _, target := range []string{"quero_ler", "concluido", "em_leitura", "Não iniciado"} {
		_, err = svc.SetBookStatus(ctx, "book-1", "owner-1", target)
		require.NoError(t, err)
		recStatus, ok := store.recordStatus("book-1", "owner-1")
		require.True(t, ok)
		assert.Equal(t, store.bookStatus("book-1"), recStatus, "book and record status diverged after %q", target)
	}

	_, err = svc.SetBookStatus(ctx, "book-1", "owner-1", "Abandonado")
	assert.ErrorIs(t, err, status.ErrInvalid)

	_, err = svc.SetBookStatus(ctx, "missing", "owner-1", "quero_ler")
	assert.ErrorIs(t, err, book.ErrNotFound)
}

func TestService_SetBookStatus_SameStatusKeepsChangeTime(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	original := store.addBook("book-1", "owner-1", intPtr(200)).LastStatusChangeAt

	// New books start as want-to-read; re-requesting it is a no-op for the
	// change timestamp, in the response as well as in the store.
	got, err := svc.SetBookStatus(ctx, "book-1", "owner-1", "quero_ler")
	require.NoError(t, err)
	assert.True(t, got.LastStatusChangeAt.Equal(original))

	stored, err := store.GetByID(ctx, "book-1")
	require.NoError(t, err)
	assert.True(t, got.LastStatusChangeAt.Equal(stored.LastStatusChangeAt))

	// A real transition moves it, and the response matches the store.
	got, err = svc.SetBookStatus(ctx, "book-1", "owner-1", "em_leitura")
	require.NoError(t, err)
	assert.True(t, got.LastStatusChangeAt.After(original))

	stored, err = store.GetByID(ctx, "book-1")
	require.NoError(t, err)
	assert.True(t, got.LastStatusChangeAt.Equal(stored.LastStatusChangeAt))
}

func TestService_Rate_LazyCreate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(320))

	rec, err := svc.Rate(ctx, "book-1", "owner-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 320, rec.CurrentPage)
	assert.Equal(t, 320, rec.TotalPages)
	assert.Equal(t, 100, rec.PercentComplete)
	assert.Equal(t, status.Finished, rec.ReadingStatus)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 5, *rec.Rating)
	assert.Equal(t, status.Finished, store.bookStatus("book-1"))
}

func TestService_Rate_LazyCreateWithoutPageCount(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", nil)

	rec, err := svc.Rate(ctx, "book-1", "owner-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.TotalPages)
	assert.Equal(t, 1, rec.CurrentPage)
	assert.Equal(t, status.Finished, rec.ReadingStatus)
}

func TestService_Rate_Errors(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(200))

	// Neither record nor book.
	_, err := svc.Rate(ctx, "missing", "owner-1", 4)
	assert.ErrorIs(t, err, book.ErrNotFound)

	// Out-of-range ratings fail before the lazy record is persisted.
	_, err = svc.Rate(ctx, "book-1", "owner-1", 0)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = svc.Rate(ctx, "book-1", "owner-1", 6)
	assert.ErrorIs(t, err, ErrInvalidRating)
	_, err = store.GetByBookAndOwner(ctx, "book-1", "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)

	// An unfinished tracked book cannot be rated.
	_, err = svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 100, TotalPages: 200})
	require.NoError(t, err)
	_, err = svc.Rate(ctx, "book-1", "owner-1", 4)
	assert.ErrorIs(t, err, ErrNotFinished)
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(200))

	removed, err := svc.Remove(ctx, "book-1", "owner-1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 200, TotalPages: 200})
	require.NoError(t, err)
	assert.Equal(t, status.Finished, store.bookStatus("book-1"))

	removed, err = svc.Remove(ctx, "book-1", "owner-1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, status.WantToRead, store.bookStatus("book-1"))

	_, err = svc.Get(ctx, "book-1", "owner-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Statistics(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService()
	store.addBook("book-1", "owner-1", intPtr(200))
	store.addBook("book-2", "owner-1", intPtr(300))
	store.addBook("book-3", "owner-1", intPtr(100))
	store.addBook("other", "owner-2", nil)

	_, err := svc.CreateOrUpdate(ctx, "book-1", "owner-1", UpdateInput{CurrentPage: 200, TotalPages: 200})
	require.NoError(t, err)
	_, err = svc.CreateOrUpdate(ctx, "book-2", "owner-1", UpdateInput{CurrentPage: 120, TotalPages: 300})
	require.NoError(t, err)

	stats, err := svc.Statistics(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalBooks)
	assert.Equal(t, 1, stats.ByStatus.WantToRead)
	assert.Equal(t, 1, stats.ByStatus.Reading)
	assert.Equal(t, 1, stats.ByStatus.Finished)
	assert.Equal(t, 320, stats.TotalPagesRead)
}
