package filings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bilanco/internal/core/apperror"
	"bilanco/internal/core/id"
	"bilanco/internal/core/tx"
	"bilanco/internal/core/types"
	"bilanco/internal/domain"
	"bilanco/internal/domain/accounts"
	"bilanco/internal/domain/companies"
	"bilanco/internal/domain/extraction"
	"bilanco/internal/domain/match"
	"bilanco/internal/domain/normalize"
	"bilanco/pkg/logger"
	"bilanco/pkg/numerator"
)

// Signal marks a submission that needs an operator decision before it
// can proceed. The submission is parked under a continuation token.
type Signal string

const (
	SignalNone          Signal = ""
	SignalDuplicate     Signal = "duplicate_detected"
	SignalTitleMismatch Signal = "title_mismatch"
)

// Decision resolves a parked submission.
type Decision string

const (
	// DecisionKeepExisting discards the new filing, the existing one stays.
	DecisionKeepExisting Decision = "keep_existing"

	// DecisionSupersede replaces the existing filing with the new one.
	DecisionSupersede Decision = "supersede"

	// DecisionAcceptTitle renames the company to the extracted title.
	DecisionAcceptTitle Decision = "accept_extracted_title"

	// DecisionKeepTitle keeps the registry title and continues.
	DecisionKeepTitle Decision = "keep_registry_title"
)

// CompanyDirectory is the slice of the company catalog the
// reconciliation flow needs.
type CompanyDirectory interface {
	GetByID(ctx context.Context, companyID id.ID) (*companies.Company, error)
	UpdateTitle(ctx context.Context, companyID id.ID, title string) error
}

// SubmitRequest carries one extraction result into reconciliation.
type SubmitRequest struct {
	CompanyID id.ID

	// Raw is the decoded extraction output
	Raw *extraction.RawExtractionResult

	// Payload is the original extraction response, archived for audit
	Payload []byte

	// Year and Period override the document metadata when set
	Year   int
	Period types.Period

	// Income carries optional income statement totals
	Income *IncomeFigures
}

// SubmitResult is the outcome of Submit or Resume.
type SubmitResult struct {
	// Filing is set when a filing was persisted (or, for
	// DecisionKeepExisting, the surviving filing).
	Filing *Filing `json:"filing,omitempty"`

	// Signal and Token are set when the submission is parked.
	Signal Signal `json:"signal,omitempty"`
	Token  string `json:"token,omitempty"`

	// Existing describes the current slot occupant on SignalDuplicate.
	Existing *Filing `json:"existing,omitempty"`

	// Titles in play on SignalTitleMismatch.
	DeclaredTitle string `json:"declaredTitle,omitempty"`
	RegistryTitle string `json:"registryTitle,omitempty"`

	// Discarded is true when DecisionKeepExisting dropped the new filing.
	Discarded bool `json:"discarded,omitempty"`

	// Balance is set when a filing was persisted.
	Balance *BalanceResult `json:"balance,omitempty"`

	MatchStats match.Stats     `json:"matchStats"`
	NormStats  normalize.Stats `json:"normStats"`
}

// pendingTTL bounds how long a parked submission waits for a decision.
const pendingTTL = time.Hour

type pendingSubmission struct {
	token  string
	signal Signal

	company *companies.Company
	filing  *Filing
	payload []byte

	existing *Filing

	titleResolved bool
	createdAt     time.Time
}

// Service runs the ingestion and reconciliation flow.
type Service struct {
	repo      Repository
	companies CompanyDirectory
	matcher   *match.Matcher
	registry  *accounts.Registry
	numerator *numerator.Service
	txManager tx.Manager
	archiver  Archiver // optional

	pendingMu sync.Mutex
	pending   map[string]*pendingSubmission

	keyMu   sync.Mutex
	keyLock map[string]*sync.Mutex
}

// NewService creates a reconciliation service.
func NewService(
	repo Repository,
	directory CompanyDirectory,
	matcher *match.Matcher,
	registry *accounts.Registry,
	num *numerator.Service,
	txManager tx.Manager,
	archiver Archiver,
) *Service {
	return &Service{
		repo:      repo,
		companies: directory,
		matcher:   matcher,
		registry:  registry,
		numerator: num,
		txManager: txManager,
		archiver:  archiver,
		pending:   make(map[string]*pendingSubmission),
		keyLock:   make(map[string]*sync.Mutex),
	}
}

// Submit runs a fresh extraction result through reconciliation. When a
// duplicate or title mismatch is found the submission is parked and
// the result carries a continuation token instead of a filing.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if req.Raw == nil {
		return nil, apperror.NewValidation("extraction result is required").
			WithDetail("field", "raw")
	}

	company, err := s.companies.GetByID(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	fc, err := fiscalContext(req, req.Raw.Meta)
	if err != nil {
		return nil, err
	}

	// A degraded extraction still flows through; the operator fills
	// the items in manually later.
	if req.Raw.Empty() {
		logger.Warn(ctx, "submission carries no extracted line items",
			"company_id", req.CompanyID,
			"extraction_failed", req.Raw.Failed,
		)
	}

	unlock := s.lockKey(keyOf(req.CompanyID, fc.Year, fc.Period))
	defer unlock()

	items, normStats := normalize.Items(ctx, req.Raw.Items, fc)
	matchStats := s.matcher.Items(ctx, items)

	f := NewFiling(req.CompanyID, fc.Year, fc.Period)
	f.Items = items
	f.Income = req.Income
	if req.Raw.Meta != nil {
		f.DeclaredCompanyName = req.Raw.Meta.CompanyName
		if req.Raw.Meta.TaxID != "" {
			taxID := req.Raw.Meta.TaxID
			f.DeclaredTaxID = &taxID
		}
	}

	p := &pendingSubmission{
		company:   company,
		filing:    f,
		payload:   req.Payload,
		createdAt: time.Now(),
	}

	res, err := s.advance(ctx, p)
	if err != nil {
		return nil, err
	}
	res.MatchStats = matchStats
	res.NormStats = normStats
	return res, nil
}

// Resume applies a decision to a parked submission. The flow picks up
// where it stopped, so resolving a title mismatch can still surface a
// duplicate and park the submission again.
func (s *Service) Resume(ctx context.Context, token string, decision Decision) (*SubmitResult, error) {
	p, err := s.takePending(token)
	if err != nil {
		return nil, err
	}

	unlock := s.lockKey(p.filing.Key())
	defer unlock()

	switch p.signal {
	case SignalTitleMismatch:
		return s.resumeTitle(ctx, p, decision)
	case SignalDuplicate:
		return s.resumeDuplicate(ctx, p, decision)
	default:
		return nil, apperror.NewInternal(fmt.Errorf("pending submission without signal"))
	}
}

func (s *Service) resumeTitle(ctx context.Context, p *pendingSubmission, decision Decision) (*SubmitResult, error) {
	switch decision {
	case DecisionAcceptTitle:
		if err := s.companies.UpdateTitle(ctx, p.company.ID, p.filing.DeclaredCompanyName); err != nil {
			s.park(p) // decision failed, keep the submission resumable
			return nil, err
		}
		p.company.Name = p.filing.DeclaredCompanyName
	case DecisionKeepTitle:
		// registry title wins, nothing to change
	default:
		s.park(p)
		return nil, apperror.NewValidation("decision not applicable to title mismatch").
			WithDetail("decision", string(decision))
	}

	p.titleResolved = true
	p.signal = SignalNone
	return s.advance(ctx, p)
}

func (s *Service) resumeDuplicate(ctx context.Context, p *pendingSubmission, decision Decision) (*SubmitResult, error) {
	switch decision {
	case DecisionKeepExisting:
		logger.Info(ctx, "duplicate filing discarded",
			"company_id", p.filing.CompanyID,
			"year", p.filing.Year,
			"period", p.filing.Period,
			"kept", p.existing.Number,
		)
		return &SubmitResult{Filing: p.existing, Discarded: true}, nil
	case DecisionSupersede:
		return s.persist(ctx, p, p.existing)
	default:
		s.park(p)
		return nil, apperror.NewValidation("decision not applicable to duplicate").
			WithDetail("decision", string(decision))
	}
}

// advance moves a submission through the remaining checks and, when
// none fires, persists it.
func (s *Service) advance(ctx context.Context, p *pendingSubmission) (*SubmitResult, error) {
	if !p.titleResolved &&
		!companies.TrivialTitle(p.filing.DeclaredCompanyName) &&
		!p.company.TitleMatches(p.filing.DeclaredCompanyName) {
		p.signal = SignalTitleMismatch
		s.park(p)
		logger.Info(ctx, "filing parked on title mismatch",
			"company_id", p.company.ID,
			"declared", p.filing.DeclaredCompanyName,
			"registry", p.company.Name,
			"token", p.token,
		)
		return &SubmitResult{
			Signal:        SignalTitleMismatch,
			Token:         p.token,
			DeclaredTitle: p.filing.DeclaredCompanyName,
			RegistryTitle: p.company.Name,
		}, nil
	}

	existing, err := s.repo.FindActiveByKey(ctx, p.filing.CompanyID, p.filing.Year, p.filing.Period)
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		p.signal = SignalDuplicate
		p.existing = existing
		s.park(p)
		logger.Info(ctx, "filing parked on duplicate",
			"company_id", p.filing.CompanyID,
			"year", p.filing.Year,
			"period", p.filing.Period,
			"existing", existing.Number,
			"token", p.token,
		)
		return &SubmitResult{
			Signal:   SignalDuplicate,
			Token:    p.token,
			Existing: existing,
		}, nil
	}

	return s.persist(ctx, p, nil)
}

// persist assigns a number, verifies the balance and writes the filing
// (superseding the previous occupant when given) in one transaction.
func (s *Service) persist(ctx context.Context, p *pendingSubmission, supersede *Filing) (*SubmitResult, error) {
	f := p.filing

	if err := f.Validate(ctx); err != nil {
		return nil, err
	}

	if f.Number == "" {
		cfg := numerator.DefaultConfig("BSF")
		number, err := s.numerator.GetNextNumber(ctx, cfg, nil, time.Date(f.Year, 1, 1, 0, 0, 0, 0, time.UTC))
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		f.Number = number
	}

	balance := verifyAndStamp(s.registry, f)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if supersede != nil {
			locked, err := s.repo.GetForUpdate(ctx, supersede.ID)
			if err != nil {
				return err
			}
			if !locked.IsActive() {
				return apperror.NewFilingSuperseded(locked.ID.String())
			}
			if err := locked.Supersede(); err != nil {
				return err
			}
			locked.Touch()
			if err := s.repo.Update(ctx, locked); err != nil {
				return fmt.Errorf("supersede filing: %w", err)
			}
		}

		if err := s.repo.Create(ctx, f); err != nil {
			return fmt.Errorf("create filing: %w", err)
		}
		if err := s.repo.SaveItems(ctx, f.ID, f.Items); err != nil {
			return fmt.Errorf("save items: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Archive failure must not undo an accepted filing.
	if s.archiver != nil && len(p.payload) > 0 {
		if err := s.archiver.Store(ctx, f.ID, p.payload); err != nil {
			logger.Warn(ctx, "payload archive failed", "filing_id", f.ID, "error", err)
		}
	}

	logger.Info(ctx, "filing persisted",
		"id", f.ID,
		"number", f.Number,
		"status", f.Status,
		"active_total", f.ActiveTotal,
		"passive_total", f.PassiveTotal,
	)

	return &SubmitResult{Filing: f, Balance: &balance}, nil
}

// GetByID retrieves a filing with its items.
func (s *Service) GetByID(ctx context.Context, filingID id.ID) (*Filing, error) {
	f, err := s.repo.GetByID(ctx, filingID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, filingID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	f.Items = items

	return f, nil
}

// GetByNumber retrieves a filing by document number, with items.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Filing, error) {
	f, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, f.ID)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	f.Items = items

	return f, nil
}

// List retrieves filings with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Filing], error) {
	return s.repo.List(ctx, filter)
}

// --- pending submission bookkeeping ---

func (s *Service) park(p *pendingSubmission) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	if p.token == "" {
		p.token = id.New().String()
	}
	p.createdAt = time.Now()
	s.pending[p.token] = p
}

func (s *Service) takePending(token string) (*pendingSubmission, error) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	s.evictExpiredLocked()

	p, ok := s.pending[token]
	if !ok {
		return nil, apperror.NewUnknownToken(token)
	}
	delete(s.pending, token)
	return p, nil
}

func (s *Service) evictExpiredLocked() {
	cutoff := time.Now().Add(-pendingTTL)
	for token, p := range s.pending {
		if p.createdAt.Before(cutoff) {
			delete(s.pending, token)
		}
	}
}

// lockKey serializes submissions per fiscal slot so two concurrent
// uploads for the same company and period cannot both pass the
// duplicate check.
func (s *Service) lockKey(key string) func() {
	s.keyMu.Lock()
	mu, ok := s.keyLock[key]
	if !ok {
		mu = &sync.Mutex{}
		s.keyLock[key] = mu
	}
	s.keyMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

func keyOf(companyID id.ID, year int, period types.Period) string {
	return fmt.Sprintf("%s:%d:%s", companyID, year, period)
}

// fiscalContext derives the fiscal year and period for a submission,
// preferring explicit request values over document metadata.
func fiscalContext(req SubmitRequest, meta *extraction.Meta) (normalize.FiscalContext, error) {
	year := req.Year
	period := req.Period

	if year == 0 && meta != nil {
		year = meta.Year
	}
	if period != "" {
		parsed, err := types.ParsePeriod(string(period))
		if err != nil {
			return normalize.FiscalContext{}, apperror.NewValidation("unrecognized period").
				WithDetail("value", string(period))
		}
		period = parsed
	} else if meta != nil && meta.Period != "" {
		parsed, err := types.ParsePeriod(meta.Period)
		if err != nil {
			return normalize.FiscalContext{}, apperror.NewValidation("unrecognized period").
				WithDetail("value", meta.Period)
		}
		period = parsed
	}
	if period == "" {
		period = types.PeriodAnnual
	}
	if year == 0 {
		return normalize.FiscalContext{}, apperror.NewValidation("fiscal year is required").
			WithDetail("field", "year")
	}

	return normalize.FiscalContext{Year: year, Period: period}, nil
}
