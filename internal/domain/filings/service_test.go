package filings

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/core/types"
	"bilanco/internal/domain"
	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/companies"
	"bilanco/internal/domain/extraction"
	"bilanco/internal/domain/match"
	"bilanco/internal/domain/normalize"
	"bilanco/pkg/numerator"
)

func newTestID() id.ID { return id.New() }

// --- fakes ---

type fakeRepo struct {
	mu      sync.Mutex
	filings map[string]*Filing // by ID
	items   map[string][]*normalize.LineItem
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		filings: make(map[string]*Filing),
		items:   make(map[string][]*normalize.LineItem),
	}
}

func (r *fakeRepo) Create(ctx context.Context, f *Filing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filings[f.ID.String()] = f
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, filingID id.ID) (*Filing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.filings[filingID.String()]
	if !ok {
		return nil, apperror.NewNotFound("filing", filingID.String())
	}
	return f, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*Filing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.filings {
		if f.Number == number {
			return f, nil
		}
	}
	return nil, apperror.NewNotFound("filing", number)
}

func (r *fakeRepo) Update(ctx context.Context, f *Filing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filings[f.ID.String()] = f
	return nil
}

func (r *fakeRepo) FindActiveByKey(ctx context.Context, companyID id.ID, year int, period types.Period) (*Filing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.filings {
		if f.CompanyID == companyID && f.Year == year && f.Period == period && f.IsActive() {
			return f, nil
		}
	}
	return nil, apperror.NewNotFound("filing", keyOf(companyID, year, period))
}

func (r *fakeRepo) GetItems(ctx context.Context, filingID id.ID) ([]*normalize.LineItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[filingID.String()], nil
}

func (r *fakeRepo) SaveItems(ctx context.Context, filingID id.ID, items []*normalize.LineItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[filingID.String()] = items
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Filing], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Filing
	for _, f := range r.filings {
		out = append(out, f)
	}
	return domain.ListResult[*Filing]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, filingID id.ID) (*Filing, error) {
	return r.GetByID(ctx, filingID)
}

type fakeDirectory struct {
	mu      sync.Mutex
	company *companies.Company
}

func (d *fakeDirectory) GetByID(ctx context.Context, companyID id.ID) (*companies.Company, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.company == nil || d.company.ID != companyID {
		return nil, apperror.NewNotFound("company", companyID.String())
	}
	return d.company, nil
}

func (d *fakeDirectory) UpdateTitle(ctx context.Context, companyID id.ID, title string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.company == nil || d.company.ID != companyID {
		return apperror.NewNotFound("company", companyID.String())
	}
	d.company.Name = title
	return nil
}

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type seqRow struct{ val int64 }

func (r *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.val
	}
	return nil
}

type seqQuerier struct {
	mu  sync.Mutex
	val int64
}

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.val++
	return &seqRow{val: q.val}
}

// --- harness ---

type harness struct {
	svc     *Service
	repo    *fakeRepo
	dir     *fakeDirectory
	company *companies.Company
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	reg, err := accounts.Load()
	require.NoError(t, err)

	company := companies.NewCompany("CMP-00001", "Demir Çelik Sanayi A.Ş.")
	taxID := "1234567890"
	company.TaxID = &taxID

	repo := newFakeRepo()
	dir := &fakeDirectory{company: company}

	svc := NewService(
		repo,
		dir,
		match.New(reg),
		reg,
		numerator.New(&seqQuerier{}),
		nopTxManager{},
		nil,
	)

	return &harness{svc: svc, repo: repo, dir: dir, company: company}
}

func balancedRaw(companyName string) *extraction.RawExtractionResult {
	return &extraction.RawExtractionResult{
		Meta: &extraction.Meta{
			CompanyName: companyName,
			Year:        2024,
			Period:      "annual",
		},
		Items: []extraction.RawLineItem{
			{Label: "Kasa", SuggestedCode: "A.1.1.1", YearValues: map[string]string{"2024": "25.000,00"}},
			{Label: "Alıcılar", SuggestedCode: "A.1.3.1", YearValues: map[string]string{"2024": "100.000,00"}},
			{Label: "Satıcılar", SuggestedCode: "P.3.2.1", YearValues: map[string]string{"2024": "50.000,00"}},
			{Label: "Ödenmiş Sermaye", SuggestedCode: "P.5.1", YearValues: map[string]string{"2024": "75.000,00"}},
		},
	}
}

func TestSubmit_BalancedFiling(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw(h.company.Name),
	})
	require.NoError(t, err)

	require.Equal(t, SignalNone, res.Signal)
	require.NotNil(t, res.Filing)
	assert.Equal(t, StatusValidated, res.Filing.Status)
	assert.Equal(t, "BSF-2024-00001", res.Filing.Number)
	assert.True(t, res.Filing.ActiveTotal.Equal(types.MustMoney("125000")))
	assert.True(t, res.Filing.PassiveTotal.Equal(types.MustMoney("125000")))
	require.NotNil(t, res.Balance)
	assert.True(t, res.Balance.Balanced)
	assert.Equal(t, 4, res.MatchStats.BySuggestion)
}

func TestSubmit_UnbalancedKeptAndFlagged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	raw := balancedRaw(h.company.Name)
	raw.Items = raw.Items[:3] // drop equity, sides no longer agree

	res, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: raw})
	require.NoError(t, err)

	require.NotNil(t, res.Filing)
	assert.Equal(t, StatusUnbalanced, res.Filing.Status)
	assert.True(t, res.Filing.BalanceDelta.Equal(types.MustMoney("75000")))

	// The filing is persisted despite being unbalanced.
	stored, err := h.repo.GetByID(ctx, res.Filing.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnbalanced, stored.Status)
}

func TestSubmit_DuplicateParksSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)
	require.NotNil(t, first.Filing)

	second, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)

	assert.Equal(t, SignalDuplicate, second.Signal)
	assert.NotEmpty(t, second.Token)
	assert.Nil(t, second.Filing)
	require.NotNil(t, second.Existing)
	assert.Equal(t, first.Filing.ID, second.Existing.ID)
}

func TestResume_KeepExisting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)

	second, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)

	res, err := h.svc.Resume(ctx, second.Token, DecisionKeepExisting)
	require.NoError(t, err)

	assert.True(t, res.Discarded)
	assert.Equal(t, first.Filing.ID, res.Filing.ID)

	// The token is single-use.
	_, err = h.svc.Resume(ctx, second.Token, DecisionKeepExisting)
	require.Error(t, err)
	app, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeUnknownToken, app.Code)
}

func TestResume_Supersede(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)

	second, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)

	res, err := h.svc.Resume(ctx, second.Token, DecisionSupersede)
	require.NoError(t, err)

	require.NotNil(t, res.Filing)
	assert.NotEqual(t, first.Filing.ID, res.Filing.ID)
	assert.Equal(t, StatusValidated, res.Filing.Status)

	old, err := h.repo.GetByID(ctx, first.Filing.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuperseded, old.Status)

	// The slot now belongs to the new filing.
	active, err := h.repo.FindActiveByKey(ctx, h.company.ID, 2024, types.PeriodAnnual)
	require.NoError(t, err)
	assert.Equal(t, res.Filing.ID, active.ID)
}

func TestSubmit_TitleMismatchParksSubmission(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("Bakır Alüminyum Ticaret Ltd. Şti."),
	})
	require.NoError(t, err)

	assert.Equal(t, SignalTitleMismatch, res.Signal)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Bakır Alüminyum Ticaret Ltd. Şti.", res.DeclaredTitle)
	assert.Equal(t, "Demir Çelik Sanayi A.Ş.", res.RegistryTitle)
	assert.Nil(t, res.Filing)
}

func TestResume_AcceptTitleRenamesCompany(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	parked, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("Bakır Alüminyum Ticaret Ltd. Şti."),
	})
	require.NoError(t, err)
	require.Equal(t, SignalTitleMismatch, parked.Signal)

	res, err := h.svc.Resume(ctx, parked.Token, DecisionAcceptTitle)
	require.NoError(t, err)

	require.NotNil(t, res.Filing)
	assert.Equal(t, StatusValidated, res.Filing.Status)
	assert.Equal(t, "Bakır Alüminyum Ticaret Ltd. Şti.", h.dir.company.Name)
}

func TestResume_KeepTitleContinues(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	parked, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("Bakır Alüminyum Ticaret Ltd. Şti."),
	})
	require.NoError(t, err)

	res, err := h.svc.Resume(ctx, parked.Token, DecisionKeepTitle)
	require.NoError(t, err)

	require.NotNil(t, res.Filing)
	assert.Equal(t, "Demir Çelik Sanayi A.Ş.", h.dir.company.Name)
}

func TestResume_TitleThenDuplicateChainsSignals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Occupy the slot.
	first, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: balancedRaw(h.company.Name)})
	require.NoError(t, err)
	require.NotNil(t, first.Filing)

	// A mismatching title parks the submission first.
	parked, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("Bakır Alüminyum Ticaret Ltd. Şti."),
	})
	require.NoError(t, err)
	require.Equal(t, SignalTitleMismatch, parked.Signal)

	// Resolving the title surfaces the duplicate, parked again.
	res, err := h.svc.Resume(ctx, parked.Token, DecisionKeepTitle)
	require.NoError(t, err)
	require.Equal(t, SignalDuplicate, res.Signal)
	require.NotEmpty(t, res.Token)

	final, err := h.svc.Resume(ctx, res.Token, DecisionSupersede)
	require.NoError(t, err)
	require.NotNil(t, final.Filing)

	old, err := h.repo.GetByID(ctx, first.Filing.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuperseded, old.Status)
}

func TestResume_WrongDecisionKeepsTokenAlive(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	parked, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("Bakır Alüminyum Ticaret Ltd. Şti."),
	})
	require.NoError(t, err)

	// A duplicate decision makes no sense for a title mismatch.
	_, err = h.svc.Resume(ctx, parked.Token, DecisionSupersede)
	require.Error(t, err)

	// The submission is still resumable with a valid decision.
	res, err := h.svc.Resume(ctx, parked.Token, DecisionKeepTitle)
	require.NoError(t, err)
	require.NotNil(t, res.Filing)
}

func TestSubmit_UnknownCompany(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: newTestID(), Raw: balancedRaw("X")})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestSubmit_MissingYear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	raw := balancedRaw(h.company.Name)
	raw.Meta.Year = 0

	_, err := h.svc.Submit(ctx, SubmitRequest{CompanyID: h.company.ID, Raw: raw})
	require.Error(t, err)
}

func TestSubmit_TrivialDeclaredNameSkipsTitleCheck(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Nothing left of the declared name after normalization, so
	// there is no title to dispute.
	res, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("A.Ş."),
	})
	require.NoError(t, err)

	assert.Equal(t, SignalNone, res.Signal)
	require.NotNil(t, res.Filing)
}

func TestSubmit_TruncatedDeclaredNameParks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// More than a case or whitespace difference must park, even when
	// the declared name is a prefix of the registered one.
	res, err := h.svc.Submit(ctx, SubmitRequest{
		CompanyID: h.company.ID,
		Raw:       balancedRaw("Demir Çelik"),
	})
	require.NoError(t, err)

	assert.Equal(t, SignalTitleMismatch, res.Signal)
	assert.NotEmpty(t, res.Token)
	assert.Nil(t, res.Filing)
}

func TestSubmit_ConcurrentSameSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 8
	results := make([]*SubmitResult, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Submit(ctx, SubmitRequest{
				CompanyID: h.company.ID,
				Raw:       balancedRaw(h.company.Name),
			})
		}(i)
	}
	wg.Wait()

	var persisted, parked int
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		switch results[i].Signal {
		case SignalNone:
			persisted++
		case SignalDuplicate:
			parked++
		default:
			t.Fatalf("unexpected signal %q", results[i].Signal)
		}
	}

	assert.Equal(t, 1, persisted, "exactly one submission may take the slot")
	assert.Equal(t, n-1, parked)
	assert.Len(t, h.repo.filings, 1)
}
