package catalog

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/ledger"
	"pharmapos/pkg/numerator"
)

// Mock objects
type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	medicaments map[int64]*Medicament
	nextID      int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{medicaments: make(map[int64]*Medicament)}
}

func (r *fakeRepo) Create(ctx context.Context, m *Medicament) error {
	r.nextID++
	m.ID = r.nextID
	stored := *m
	r.medicaments[m.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id int64) (*Medicament, error) {
	m, ok := r.medicaments[id]
	if !ok {
		return nil, apperror.NewNotFound("medicament", id)
	}
	copied := *m
	return &copied, nil
}

func (r *fakeRepo) GetByCode(ctx context.Context, code string) (*Medicament, error) {
	for _, m := range r.medicaments {
		if m.Code == code {
			copied := *m
			return &copied, nil
		}
	}
	return nil, apperror.NewNotFound("medicament", code)
}

func (r *fakeRepo) GetByIDs(ctx context.Context, ids []int64) ([]*Medicament, error) {
	var out []*Medicament
	for _, id := range ids {
		if m, ok := r.medicaments[id]; ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, id int64) (*Medicament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeRepo) Update(ctx context.Context, m *Medicament) error {
	if _, ok := r.medicaments[m.ID]; !ok {
		return apperror.NewNotFound("medicament", m.ID)
	}
	stored := *m
	r.medicaments[m.ID] = &stored
	return nil
}

func (r *fakeRepo) SetActive(ctx context.Context, id int64, active bool) error {
	m, ok := r.medicaments[id]
	if !ok {
		return apperror.NewNotFound("medicament", id)
	}
	m.IsActive = active
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Medicament], error) {
	var items []*Medicament
	for _, m := range r.medicaments {
		if m.IsActive || filter.IncludeInactive {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return domain.ListResult[*Medicament]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeRepo) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Medicament], error) {
	var items []*Medicament
	for _, m := range r.medicaments {
		if m.IsActive && m.IsLowStock() {
			items = append(items, m)
		}
	}
	return domain.ListResult[*Medicament]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeRepo) FindExpiringSoon(ctx context.Context, days int, filter domain.ListFilter) (domain.ListResult[*Medicament], error) {
	now := time.Now()
	var items []*Medicament
	for _, m := range r.medicaments {
		if m.IsActive && m.IsExpiringSoon(days, now) {
			items = append(items, m)
		}
	}
	return domain.ListResult[*Medicament]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeRepo) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	for _, m := range r.medicaments {
		if m.Code == code && m.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

// fakeLedgerRepo writes quantities through to the shared medicament
// map, the same row the real schema keeps the cached quantity on.
type fakeLedgerRepo struct {
	meds      map[int64]*Medicament
	movements []*ledger.StockMovement
	nextID    int64
}

func newFakeLedgerRepo(meds map[int64]*Medicament) *fakeLedgerRepo {
	return &fakeLedgerRepo{meds: meds}
}

func (r *fakeLedgerRepo) Insert(ctx context.Context, m *ledger.StockMovement) error {
	r.nextID++
	m.ID = r.nextID
	r.movements = append(r.movements, m)
	return nil
}

func (r *fakeLedgerRepo) GetByID(ctx context.Context, id int64) (*ledger.StockMovement, error) {
	for _, m := range r.movements {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, apperror.NewNotFound("stock movement", id)
}

func (r *fakeLedgerRepo) ListByMedicament(ctx context.Context, medicamentID int64, filter domain.ListFilter) (domain.ListResult[*ledger.StockMovement], error) {
	return domain.ListResult[*ledger.StockMovement]{}, nil
}

func (r *fakeLedgerRepo) ListBySale(ctx context.Context, saleID int64) ([]*ledger.StockMovement, error) {
	return nil, nil
}

func (r *fakeLedgerRepo) ListSince(ctx context.Context, since time.Time, filter domain.ListFilter) (domain.ListResult[*ledger.StockMovement], error) {
	return domain.ListResult[*ledger.StockMovement]{}, nil
}

func (r *fakeLedgerRepo) LockBalances(ctx context.Context, medicamentIDs []int64) ([]ledger.StockBalance, error) {
	var out []ledger.StockBalance
	for _, id := range medicamentIDs {
		if m, ok := r.meds[id]; ok {
			out = append(out, ledger.StockBalance{MedicamentID: id, Quantity: m.QuantityInStock, IsActive: m.IsActive})
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ApplyDelta(ctx context.Context, medicamentID int64, delta int) (int, error) {
	m, ok := r.meds[medicamentID]
	if !ok {
		return 0, apperror.NewNotFound("medicament", medicamentID)
	}
	if m.QuantityInStock+delta < 0 {
		return 0, apperror.NewInsufficientStock(medicamentID, -delta, m.QuantityInStock)
	}
	m.QuantityInStock += delta
	return m.QuantityInStock, nil
}

func (r *fakeLedgerRepo) SumDeltas(ctx context.Context, medicamentID int64) (int, error) {
	sum := 0
	for _, m := range r.movements {
		if m.MedicamentID == medicamentID {
			sum += m.Delta()
		}
	}
	return sum, nil
}

func (r *fakeLedgerRepo) SetQuantity(ctx context.Context, medicamentID int64, quantity int) error {
	m, ok := r.meds[medicamentID]
	if !ok {
		return apperror.NewNotFound("medicament", medicamentID)
	}
	m.QuantityInStock = quantity
	return nil
}

type mockRow struct {
	val int64
}

func (m *mockRow) Scan(dest ...any) error {
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	value int64
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}
	m.value += increment
	return &mockRow{val: m.value}
}

func newTestService() (*Service, *fakeRepo, *fakeLedgerRepo) {
	repo := newFakeRepo()
	ledgerRepo := newFakeLedgerRepo(repo.medicaments)
	txManager := fakeTxManager{}
	ledgerSvc := ledger.NewService(ledgerRepo, txManager)
	num := numerator.New(&mockQuerier{})
	return NewService(repo, ledgerSvc, num, txManager), repo, ledgerRepo
}

func testMedicament(name, code string) *Medicament {
	return &Medicament{
		Name:          name,
		Code:          code,
		PurchasePrice: types.MustMoney("5.00"),
		SellingPrice:  types.MustMoney("9.90"),
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("with initial stock", func(t *testing.T) {
		svc, repo, ledgerRepo := newTestService()
		operator := int64(1)

		m := testMedicament("Doliprane 500mg", "MED-00001")
		require.NoError(t, svc.Create(ctx, m, 100, &operator))

		assert.NotZero(t, m.ID)
		assert.True(t, m.IsActive)
		assert.Equal(t, 100, m.QuantityInStock)
		assert.False(t, m.CreatedAt.IsZero())

		// The initial quantity arrives as a ledger entry, not a raw write.
		require.Len(t, ledgerRepo.movements, 1)
		entry := ledgerRepo.movements[0]
		assert.Equal(t, ledger.TypeEntry, entry.MovementType)
		assert.Equal(t, 100, entry.Quantity)
		assert.Equal(t, m.ID, entry.MedicamentID)
		require.NotNil(t, entry.UserID)
		assert.Equal(t, operator, *entry.UserID)

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "MED-00001", stored.Code)
	})

	t.Run("zero initial stock writes no movement", func(t *testing.T) {
		svc, _, ledgerRepo := newTestService()
		m := testMedicament("Aspirine 100mg", "MED-00002")
		require.NoError(t, svc.Create(ctx, m, 0, nil))
		assert.Empty(t, ledgerRepo.movements)
	})

	t.Run("missing code is generated", func(t *testing.T) {
		svc, _, _ := newTestService()
		m := testMedicament("Smecta", "")
		require.NoError(t, svc.Create(ctx, m, 0, nil))
		assert.NotEmpty(t, m.Code)
		assert.Contains(t, m.Code, "MED")
	})

	t.Run("negative initial quantity rejected", func(t *testing.T) {
		svc, _, _ := newTestService()
		err := svc.Create(ctx, testMedicament("Bad", "MED-00003"), -1, nil)
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	})

	t.Run("duplicate code rejected", func(t *testing.T) {
		svc, _, _ := newTestService()
		require.NoError(t, svc.Create(ctx, testMedicament("First", "MED-X"), 0, nil))
		err := svc.Create(ctx, testMedicament("Second", "MED-X"), 0, nil)
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
	})

	t.Run("invalid fields rejected", func(t *testing.T) {
		svc, _, _ := newTestService()
		bad := testMedicament("", "MED-00004")
		assert.Error(t, svc.Create(ctx, bad, 0, nil))

		negPrice := testMedicament("Neg", "MED-00005")
		negPrice.SellingPrice = types.MustMoney("-1")
		assert.Error(t, svc.Create(ctx, negPrice, 0, nil))
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	m := testMedicament("Doliprane 500mg", "MED-00001")
	require.NoError(t, svc.Create(ctx, m, 50, nil))

	t.Run("stock and active flag are preserved", func(t *testing.T) {
		updated := testMedicament("Doliprane 1000mg", "MED-00001")
		updated.ID = m.ID
		updated.QuantityInStock = 9999 // must be ignored
		updated.IsActive = false       // must be ignored

		require.NoError(t, svc.Update(ctx, updated))

		stored, err := repo.GetByID(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, "Doliprane 1000mg", stored.Name)
		assert.Equal(t, 50, stored.QuantityInStock)
		assert.True(t, stored.IsActive)
		assert.Equal(t, m.CreatedAt, stored.CreatedAt)
	})

	t.Run("empty code keeps the current one", func(t *testing.T) {
		updated := testMedicament("Doliprane 1000mg", "")
		updated.ID = m.ID
		require.NoError(t, svc.Update(ctx, updated))
		assert.Equal(t, "MED-00001", updated.Code)
	})

	t.Run("unknown medicament", func(t *testing.T) {
		ghost := testMedicament("Ghost", "MED-GHOST")
		ghost.ID = 404
		err := svc.Update(ctx, ghost)
		require.Error(t, err)
		assert.True(t, apperror.IsNotFound(err))
	})

	t.Run("code collision rejected", func(t *testing.T) {
		other := testMedicament("Other", "MED-OTHER")
		require.NoError(t, svc.Create(ctx, other, 0, nil))

		updated := testMedicament("Other renamed", "MED-00001")
		updated.ID = other.ID
		err := svc.Update(ctx, updated)
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
	})
}

func TestDeactivateReactivate(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService()

	m := testMedicament("Doliprane 500mg", "MED-00001")
	require.NoError(t, svc.Create(ctx, m, 10, nil))

	require.NoError(t, svc.Deactivate(ctx, m.ID))
	stored, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, 10, stored.QuantityInStock)

	// Deactivating twice is a no-op, not an error.
	require.NoError(t, svc.Deactivate(ctx, m.ID))

	require.NoError(t, svc.Reactivate(ctx, m.ID))
	stored, err = repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)

	assert.Error(t, svc.Deactivate(ctx, 404))
	assert.Error(t, svc.Reactivate(ctx, 404))
}

func TestLowStockAndExpiry(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	low := testMedicament("Low", "MED-LOW")
	low.StockThreshold = 10
	require.NoError(t, svc.Create(ctx, low, 5, nil))

	ok := testMedicament("Plenty", "MED-OK")
	ok.StockThreshold = 10
	require.NoError(t, svc.Create(ctx, ok, 50, nil))

	soon := time.Now().AddDate(0, 0, 10)
	expiring := testMedicament("Expiring", "MED-EXP")
	expiring.ExpirationDate = &soon
	require.NoError(t, svc.Create(ctx, expiring, 50, nil))

	lowStock, err := svc.FindLowStock(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, lowStock.Items, 1)
	assert.Equal(t, "MED-LOW", lowStock.Items[0].Code)

	expSoon, err := svc.FindExpiringSoon(ctx, 30, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, expSoon.Items, 1)
	assert.Equal(t, "MED-EXP", expSoon.Items[0].Code)

	expLater, err := svc.FindExpiringSoon(ctx, 5, domain.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, expLater.Items)
}
