package sale

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmapos/internal/core/apperror"
	"pharmapos/internal/core/types"
	"pharmapos/internal/domain"
	"pharmapos/internal/domain/catalog"
	"pharmapos/internal/domain/client"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/loyalty"
	"pharmapos/pkg/numerator"
)

// Mock objects

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSaleRepo struct {
	sales     map[int64]*Sale
	nextID    int64
	insertErr []error // consumed front to back before inserts succeed
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[int64]*Sale)}
}

func (r *fakeSaleRepo) Insert(ctx context.Context, s *Sale) error {
	if len(r.insertErr) > 0 {
		err := r.insertErr[0]
		r.insertErr = r.insertErr[1:]
		return err
	}
	r.nextID++
	s.ID = r.nextID
	for i := range s.Lines {
		s.Lines[i].ID = r.nextID*100 + int64(i)
		s.Lines[i].SaleID = s.ID
	}
	stored := *s
	stored.Lines = append([]SaleLine(nil), s.Lines...)
	r.sales[s.ID] = &stored
	return nil
}

func (r *fakeSaleRepo) GetByID(ctx context.Context, id int64) (*Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, apperror.NewNotFound("sale", id)
	}
	return s, nil
}

func (r *fakeSaleRepo) GetByIDForUpdate(ctx context.Context, id int64) (*Sale, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeSaleRepo) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	for _, s := range r.sales {
		if s.SaleNumber == number {
			return s, nil
		}
	}
	return nil, apperror.NewNotFound("sale", number)
}

func (r *fakeSaleRepo) MarkCancelled(ctx context.Context, id int64, by int64, reason string, at time.Time) error {
	s, ok := r.sales[id]
	if !ok {
		return apperror.NewNotFound("sale", id)
	}
	s.Status = StatusCancelled
	s.CancelledAt = &at
	s.CancelledBy = &by
	if reason != "" {
		s.CancelReason = &reason
	}
	return nil
}

func (r *fakeSaleRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	var items []*Sale
	for _, s := range r.sales {
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return domain.ListResult[*Sale]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeSaleRepo) ListByClient(ctx context.Context, clientID int64, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	var items []*Sale
	for _, s := range r.sales {
		if s.ClientID != nil && *s.ClientID == clientID {
			items = append(items, s)
		}
	}
	return domain.ListResult[*Sale]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeSaleRepo) ListBetween(ctx context.Context, from, to time.Time, filter domain.ListFilter) (domain.ListResult[*Sale], error) {
	var items []*Sale
	for _, s := range r.sales {
		if !s.SaleDate.Before(from) && s.SaleDate.Before(to) {
			items = append(items, s)
		}
	}
	return domain.ListResult[*Sale]{Items: items, TotalCount: int64(len(items))}, nil
}

type fakeCatalogRepo struct {
	medicaments map[int64]*catalog.Medicament
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{medicaments: make(map[int64]*catalog.Medicament)}
}

func (r *fakeCatalogRepo) Create(ctx context.Context, m *catalog.Medicament) error {
	r.medicaments[m.ID] = m
	return nil
}

func (r *fakeCatalogRepo) GetByID(ctx context.Context, id int64) (*catalog.Medicament, error) {
	m, ok := r.medicaments[id]
	if !ok {
		return nil, apperror.NewNotFound("medicament", id)
	}
	return m, nil
}

func (r *fakeCatalogRepo) GetByCode(ctx context.Context, code string) (*catalog.Medicament, error) {
	for _, m := range r.medicaments {
		if m.Code == code {
			return m, nil
		}
	}
	return nil, apperror.NewNotFound("medicament", code)
}

func (r *fakeCatalogRepo) GetByIDs(ctx context.Context, ids []int64) ([]*catalog.Medicament, error) {
	var out []*catalog.Medicament
	for _, id := range ids {
		if m, ok := r.medicaments[id]; ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCatalogRepo) GetForUpdate(ctx context.Context, id int64) (*catalog.Medicament, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeCatalogRepo) Update(ctx context.Context, m *catalog.Medicament) error {
	r.medicaments[m.ID] = m
	return nil
}

func (r *fakeCatalogRepo) SetActive(ctx context.Context, id int64, active bool) error {
	m, ok := r.medicaments[id]
	if !ok {
		return apperror.NewNotFound("medicament", id)
	}
	m.IsActive = active
	return nil
}

func (r *fakeCatalogRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	return domain.ListResult[*catalog.Medicament]{}, nil
}

func (r *fakeCatalogRepo) FindLowStock(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	return domain.ListResult[*catalog.Medicament]{}, nil
}

func (r *fakeCatalogRepo) FindExpiringSoon(ctx context.Context, days int, filter domain.ListFilter) (domain.ListResult[*catalog.Medicament], error) {
	return domain.ListResult[*catalog.Medicament]{}, nil
}

func (r *fakeCatalogRepo) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	for _, m := range r.medicaments {
		if m.Code == code && m.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type fakeClientRepo struct {
	clients map[int64]*client.Client
}

func newFakeClientRepo() *fakeClientRepo {
	return &fakeClientRepo{clients: make(map[int64]*client.Client)}
}

func (r *fakeClientRepo) Create(ctx context.Context, c *client.Client) error {
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) GetByID(ctx context.Context, id int64) (*client.Client, error) {
	c, ok := r.clients[id]
	if !ok {
		return nil, apperror.NewNotFound("client", id)
	}
	return c, nil
}

func (r *fakeClientRepo) GetByCode(ctx context.Context, code string) (*client.Client, error) {
	for _, c := range r.clients {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, apperror.NewNotFound("client", code)
}

func (r *fakeClientRepo) GetForUpdate(ctx context.Context, id int64) (*client.Client, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeClientRepo) Update(ctx context.Context, c *client.Client) error {
	r.clients[c.ID] = c
	return nil
}

func (r *fakeClientRepo) Delete(ctx context.Context, id int64) error {
	delete(r.clients, id)
	return nil
}

func (r *fakeClientRepo) AdjustBalance(ctx context.Context, id int64, pointsDelta int, spentDelta types.Money) error {
	c, ok := r.clients[id]
	if !ok {
		return apperror.NewNotFound("client", id)
	}
	if c.LoyaltyPoints+pointsDelta < 0 {
		return apperror.NewConstraintViolation("loyalty points cannot go negative")
	}
	c.LoyaltyPoints += pointsDelta
	c.TotalSpent = c.TotalSpent.Add(spentDelta)
	return nil
}

func (r *fakeClientRepo) AdjustBalanceClamped(ctx context.Context, id int64, pointsDelta int, spentDelta types.Money) error {
	c, ok := r.clients[id]
	if !ok {
		return apperror.NewNotFound("client", id)
	}
	c.LoyaltyPoints += pointsDelta
	if c.LoyaltyPoints < 0 {
		c.LoyaltyPoints = 0
	}
	c.TotalSpent = types.ClampNonNegative(c.TotalSpent.Add(spentDelta))
	return nil
}

func (r *fakeClientRepo) ExistsByCode(ctx context.Context, code string, excludeID int64) (bool, error) {
	for _, c := range r.clients {
		if c.Code == code && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeClientRepo) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*client.Client], error) {
	return domain.ListResult[*client.Client]{}, nil
}

type fakeLedgerRepo struct {
	balances  map[int64]*ledger.StockBalance
	movements []*ledger.StockMovement
	nextID    int64
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{balances: make(map[int64]*ledger.StockBalance)}
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
	var items []*ledger.StockMovement
	for _, m := range r.movements {
		if m.MedicamentID == medicamentID {
			items = append(items, m)
		}
	}
	return domain.ListResult[*ledger.StockMovement]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeLedgerRepo) ListBySale(ctx context.Context, saleID int64) ([]*ledger.StockMovement, error) {
	var items []*ledger.StockMovement
	for _, m := range r.movements {
		if m.SaleID != nil && *m.SaleID == saleID {
			items = append(items, m)
		}
	}
	return items, nil
}

func (r *fakeLedgerRepo) ListSince(ctx context.Context, since time.Time, filter domain.ListFilter) (domain.ListResult[*ledger.StockMovement], error) {
	return domain.ListResult[*ledger.StockMovement]{Items: r.movements, TotalCount: int64(len(r.movements))}, nil
}

func (r *fakeLedgerRepo) LockBalances(ctx context.Context, medicamentIDs []int64) ([]ledger.StockBalance, error) {
	ids := append([]int64(nil), medicamentIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []ledger.StockBalance
	for _, id := range ids {
		if b, ok := r.balances[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeLedgerRepo) ApplyDelta(ctx context.Context, medicamentID int64, delta int) (int, error) {
	b, ok := r.balances[medicamentID]
	if !ok {
		return 0, apperror.NewNotFound("medicament", medicamentID)
	}
	if b.Quantity+delta < 0 {
		return 0, apperror.NewInsufficientStock(medicamentID, -delta, b.Quantity)
	}
	b.Quantity += delta
	return b.Quantity, nil
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
	b, ok := r.balances[medicamentID]
	if !ok {
		return apperror.NewNotFound("medicament", medicamentID)
	}
	b.Quantity = quantity
	return nil
}

type fakeTierRepo struct {
	tiers []*loyalty.Tier
}

func (r *fakeTierRepo) ListOrdered(ctx context.Context) ([]*loyalty.Tier, error) {
	return r.tiers, nil
}

func (r *fakeTierRepo) ListAll(ctx context.Context) ([]*loyalty.Tier, error) {
	return r.tiers, nil
}

func (r *fakeTierRepo) GetByID(ctx context.Context, id int64) (*loyalty.Tier, error) {
	for _, t := range r.tiers {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, apperror.NewNotFound("loyalty tier", id)
}

func (r *fakeTierRepo) Update(ctx context.Context, t *loyalty.Tier) error {
	return nil
}

type recordingAudit struct {
	events []DiscountOverrideEvent
}

func (a *recordingAudit) RecordDiscountOverride(ctx context.Context, e DiscountOverrideEvent) error {
	a.events = append(a.events, e)
	return nil
}

type countingRow struct {
	val int64
}

func (r *countingRow) Scan(dest ...any) error {
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = r.val
		}
	}
	return nil
}

type countingQuerier struct {
	mu    sync.Mutex
	value int64
	calls int
}

func (q *countingQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.value++
	q.calls++
	return &countingRow{val: q.value}
}

// saleFixture wires a processor and canceller over in-memory fakes.
type saleFixture struct {
	processor  *Processor
	canceller  *CancellationHandler
	sales      *fakeSaleRepo
	meds       *fakeCatalogRepo
	clients    *fakeClientRepo
	ledgerRepo *fakeLedgerRepo
	audit      *recordingAudit
	querier    *countingQuerier
}

func newSaleFixture() *saleFixture {
	f := &saleFixture{
		sales:      newFakeSaleRepo(),
		meds:       newFakeCatalogRepo(),
		clients:    newFakeClientRepo(),
		ledgerRepo: newFakeLedgerRepo(),
		audit:      &recordingAudit{},
		querier:    &countingQuerier{},
	}

	tiers := &fakeTierRepo{tiers: []*loyalty.Tier{
		{ID: 1, Name: "Standard", MinPoints: 0, DiscountPercent: types.MustMoney("0"), IsActive: true},
		{ID: 2, Name: "Bronze", MinPoints: 100, DiscountPercent: types.MustMoney("2"), IsActive: true},
		{ID: 3, Name: "Argent", MinPoints: 250, DiscountPercent: types.MustMoney("5"), IsActive: true},
		{ID: 4, Name: "Or", MinPoints: 500, DiscountPercent: types.MustMoney("8"), IsActive: true},
		{ID: 5, Name: "Platine", MinPoints: 1000, DiscountPercent: types.MustMoney("10"), IsActive: true},
	}}

	txManager := fakeTxManager{}
	ledgerSvc := ledger.NewService(f.ledgerRepo, txManager)
	loyaltyEngine := loyalty.NewEngine(tiers, loyalty.DefaultConfig())
	num := numerator.New(f.querier)

	f.processor = NewProcessor(f.sales, f.meds, f.clients, loyaltyEngine, ledgerSvc, num, f.audit, txManager)
	f.canceller = NewCancellationHandler(f.sales, f.clients, ledgerSvc, txManager)
	return f
}

func (f *saleFixture) addMedicament(id int64, price string, quantity int) {
	f.meds.medicaments[id] = &catalog.Medicament{
		ID:           id,
		Code:         fmt.Sprintf("MED-TEST-%d", id),
		Name:         "Medicament",
		SellingPrice: types.MustMoney(price),
		IsActive:     true,
	}
	f.ledgerRepo.balances[id] = &ledger.StockBalance{MedicamentID: id, Quantity: quantity, IsActive: true}
}

func (f *saleFixture) addClient(id int64, points int, spent string) *client.Client {
	c := &client.Client{
		ID:            id,
		Code:          "CLI-TEST",
		FirstName:     "Marie",
		LastName:      "Dupont",
		LoyaltyPoints: points,
		TotalSpent:    types.MustMoney(spent),
		IsActive:      true,
	}
	f.clients.clients[id] = c
	return c
}

func (f *saleFixture) stockOf(id int64) int {
	return f.ledgerRepo.balances[id].Quantity
}

func TestProcessSale_WalkIn(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "12.50", 20)
	f.addMedicament(2, "3.20", 10)

	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines: []LineRequest{
			{MedicamentID: 1, Quantity: 2},
			{MedicamentID: 2, Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sale.SaleNumber, "VNT-"))
	assert.Equal(t, StatusCompleted, sale.Status)
	assert.Nil(t, sale.ClientID)
	assert.Equal(t, int64(7), sale.UserID)

	// 2*12.50 + 3*3.20 = 34.60, no discount for a walk-in.
	assert.True(t, sale.Subtotal.Equal(types.MustMoney("34.60")), "subtotal %s", sale.Subtotal)
	assert.True(t, sale.DiscountAmount.IsZero())
	assert.True(t, sale.TotalAmount.Equal(types.MustMoney("34.60")))
	assert.Equal(t, 0, sale.PointsEarned)

	require.Len(t, sale.Lines, 2)
	assert.Equal(t, 1, sale.Lines[0].LineNo)
	assert.True(t, sale.Lines[0].UnitPrice.Equal(types.MustMoney("12.50")))
	assert.True(t, sale.Lines[1].LineTotal.Equal(types.MustMoney("9.60")))

	assert.Equal(t, 18, f.stockOf(1))
	assert.Equal(t, 7, f.stockOf(2))

	movements, err := f.ledgerRepo.ListBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Equal(t, ledger.TypeExit, m.MovementType)
		require.NotNil(t, m.Reason)
		assert.Equal(t, "sale "+sale.SaleNumber, *m.Reason)
		require.NotNil(t, m.UserID)
		assert.Equal(t, int64(7), *m.UserID)
	}
}

func TestProcessSale_TierDiscount(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "50", 10)
	clientID := int64(1)
	f.addClient(clientID, 250, "0")

	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		ClientID:   &clientID,
		OperatorID: 7,
		Lines:      []LineRequest{{MedicamentID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	// Argent at 250 points: 5% of 100 = 5.00, total 95.00, 9 points earned.
	assert.True(t, sale.Subtotal.Equal(types.MustMoney("100")))
	assert.True(t, sale.DiscountPercentage.Equal(types.MustMoney("5")))
	assert.True(t, sale.DiscountAmount.Equal(types.MustMoney("5")))
	assert.True(t, sale.TotalAmount.Equal(types.MustMoney("95")))
	assert.Equal(t, 9, sale.PointsEarned)
	assert.Equal(t, 0, sale.PointsUsed)

	c := f.clients.clients[clientID]
	assert.Equal(t, 259, c.LoyaltyPoints)
	assert.True(t, c.TotalSpent.Equal(types.MustMoney("95")))

	assert.Empty(t, f.audit.events)
}

func TestProcessSale_ManualDiscountReplacesTier(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "100", 10)
	clientID := int64(1)
	f.addClient(clientID, 1000, "0") // Platine would give 10%

	manual := types.MustMoney("50")
	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		ClientID:          &clientID,
		OperatorID:        7,
		Lines:             []LineRequest{{MedicamentID: 1, Quantity: 1}},
		ManualDiscountPct: &manual,
	})
	require.NoError(t, err)

	assert.True(t, sale.DiscountPercentage.Equal(types.MustMoney("50")))
	assert.True(t, sale.DiscountAmount.Equal(types.MustMoney("50")))
	assert.True(t, sale.TotalAmount.Equal(types.MustMoney("50")))

	// Operator overrides are audited exactly once.
	require.Len(t, f.audit.events, 1)
	event := f.audit.events[0]
	assert.Equal(t, sale.ID, event.SaleID)
	assert.Equal(t, sale.SaleNumber, event.SaleNumber)
	assert.Equal(t, int64(7), event.OperatorID)
	assert.Equal(t, "50", event.DiscountPercentage)
	assert.Equal(t, "100", event.Subtotal)
}

func TestProcessSale_Redemption(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "40", 10)
	clientID := int64(1)
	f.addClient(clientID, 300, "0")

	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		ClientID:       &clientID,
		OperatorID:     7,
		Lines:          []LineRequest{{MedicamentID: 1, Quantity: 1}},
		PointsToRedeem: 100,
	})
	require.NoError(t, err)

	// Argent 5% of 40 = 2.00; 100 points at 0.10 come off after the
	// discount: 40 - 2 - 10 = 28. Points accrue on the final total.
	assert.True(t, sale.DiscountAmount.Equal(types.MustMoney("2")))
	assert.True(t, sale.RedemptionValue.Equal(types.MustMoney("10")))
	assert.True(t, sale.TotalAmount.Equal(types.MustMoney("28")))
	assert.Equal(t, 100, sale.PointsUsed)
	assert.Equal(t, 2, sale.PointsEarned)

	c := f.clients.clients[clientID]
	assert.Equal(t, 202, c.LoyaltyPoints)
	assert.True(t, c.TotalSpent.Equal(types.MustMoney("28")))
}

func TestProcessSale_RedemptionFloorsAtZero(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "5", 10)
	clientID := int64(1)
	f.addClient(clientID, 1000, "0")

	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		ClientID:       &clientID,
		OperatorID:     7,
		Lines:          []LineRequest{{MedicamentID: 1, Quantity: 1}},
		PointsToRedeem: 1000, // worth 100, far above the 4.50 total
	})
	require.NoError(t, err)

	assert.True(t, sale.TotalAmount.IsZero(), "total %s", sale.TotalAmount)
	assert.Equal(t, 1000, sale.PointsUsed)
	assert.Equal(t, 0, sale.PointsEarned)
	assert.Equal(t, 0, f.clients.clients[clientID].LoyaltyPoints)
}

func TestProcessSale_RedemptionRequiresClient(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 10)

	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID:     7,
		Lines:          []LineRequest{{MedicamentID: 1, Quantity: 1}},
		PointsToRedeem: 10,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Empty(t, f.sales.sales)
}

func TestProcessSale_InsufficientPoints(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 10)
	clientID := int64(1)
	f.addClient(clientID, 50, "0")

	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		ClientID:       &clientID,
		OperatorID:     7,
		Lines:          []LineRequest{{MedicamentID: 1, Quantity: 1}},
		PointsToRedeem: 51,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientPoints))
	assert.Equal(t, 10, f.stockOf(1))
	assert.Equal(t, 50, f.clients.clients[clientID].LoyaltyPoints)
}

func TestProcessSale_InsufficientStock(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 3)

	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines:      []LineRequest{{MedicamentID: 1, Quantity: 4}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	// Nothing written.
	assert.Empty(t, f.sales.sales)
	assert.Empty(t, f.ledgerRepo.movements)
	assert.Equal(t, 3, f.stockOf(1))
}

func TestProcessSale_InactiveMedicament(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 5)
	f.ledgerRepo.balances[1].IsActive = false

	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines:      []LineRequest{{MedicamentID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeMedicamentInactive))
}

func TestProcessSale_RetriesOnConflict(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 5)
	f.sales.insertErr = []error{apperror.NewTransactionConflict("sale", 0)}

	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines:      []LineRequest{{MedicamentID: 1, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, sale.Status)

	// The receipt number is allocated once and reused across retries.
	assert.Equal(t, 1, f.querier.calls)
	assert.Equal(t, 4, f.stockOf(1))
}

func TestProcessSale_ConflictRetriesExhausted(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 5)
	f.sales.insertErr = []error{
		apperror.NewTransactionConflict("sale", 0),
		apperror.NewTransactionConflict("sale", 0),
		apperror.NewTransactionConflict("sale", 0),
		apperror.NewTransactionConflict("sale", 0),
	}

	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines:      []LineRequest{{MedicamentID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsTransactionConflict(err))
}

func TestProcessSale_ValidateRequest(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 5)
	over := types.MustMoney("101")
	negative := types.MustMoney("-1")

	tests := []struct {
		name     string
		req      ProcessRequest
		wantCode string
	}{
		{
			name:     "missing operator",
			req:      ProcessRequest{Lines: []LineRequest{{MedicamentID: 1, Quantity: 1}}},
			wantCode: apperror.CodeValidation,
		},
		{
			name:     "empty cart",
			req:      ProcessRequest{OperatorID: 7},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "bad lines",
			req: ProcessRequest{
				OperatorID: 7,
				Lines:      []LineRequest{{MedicamentID: 1, Quantity: 0}, {MedicamentID: 0, Quantity: 1}},
			},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "negative redemption",
			req: ProcessRequest{
				OperatorID:     7,
				Lines:          []LineRequest{{MedicamentID: 1, Quantity: 1}},
				PointsToRedeem: -1,
			},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "manual discount above 100",
			req: ProcessRequest{
				OperatorID:        7,
				Lines:             []LineRequest{{MedicamentID: 1, Quantity: 1}},
				ManualDiscountPct: &over,
			},
			wantCode: apperror.CodeInvalidDiscount,
		},
		{
			name: "negative manual discount",
			req: ProcessRequest{
				OperatorID:        7,
				Lines:             []LineRequest{{MedicamentID: 1, Quantity: 1}},
				ManualDiscountPct: &negative,
			},
			wantCode: apperror.CodeInvalidDiscount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.processor.ProcessSale(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, tt.wantCode), "got %v", err)
		})
	}

	assert.Empty(t, f.sales.sales)
}

func TestProcessSale_DuplicateLinesShareStock(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 5)

	// Two lines for the same medicament summing above stock must fail
	// even though each alone would fit.
	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines: []LineRequest{
			{MedicamentID: 1, Quantity: 3},
			{MedicamentID: 1, Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	sale, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines: []LineRequest{
			{MedicamentID: 1, Quantity: 3},
			{MedicamentID: 1, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, sale.Lines, 2)
	assert.Equal(t, 0, f.stockOf(1))
}

func TestListToday(t *testing.T) {
	f := newSaleFixture()
	f.addMedicament(1, "10", 10)

	_, err := f.processor.ProcessSale(context.Background(), ProcessRequest{
		OperatorID: 7,
		Lines:      []LineRequest{{MedicamentID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	// Pretend one sale happened yesterday.
	old := &Sale{ID: 999, SaleNumber: "VNT-OLD", UserID: 7, SaleDate: time.Now().AddDate(0, 0, -1), Status: StatusCompleted}
	f.sales.sales[old.ID] = old

	result, err := f.processor.ListToday(context.Background(), time.Now(), domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalCount)
}
