package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/apr-engine/apr"
	"github.com/warp/apr-engine/loan"
	"github.com/warp/apr-engine/store/rediscache"
	"github.com/warp/apr-engine/store/sqlite"
)

// QuoteCache is the optional read-through cache in front of quote
// computation. A nil cache disables caching entirely.
type QuoteCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) error
}

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	store *sqlite.Store
	cache QuoteCache
	log   *zap.Logger

	// Per-loan serialization: mutating a ledger is a load-modify-save
	// cycle, so two concurrent payments on the same loan must queue.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewHandler(store *sqlite.Store, cache QuoteCache, log *zap.Logger) *Handler {
	return &Handler{
		store: store,
		cache: cache,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

func (h *Handler) loanLock(id string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	h.locks[id] = l
	return l
}

// =============================================================================
// QUOTES
// =============================================================================

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	terms, err := parseTerms(req.TermsRequest)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	key := rediscache.QuoteKey(terms.Principal, terms.AnnualRate, terms.Frequency, terms.Disbursed, terms.FirstPayment)
	if h.cache != nil && terms.End == nil {
		if payload, ok := h.cache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(payload))
			return
		}
	}

	resp, err := h.computeQuote(terms)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	if h.cache != nil && terms.End == nil && resp.Converged {
		buf, _ := json.Marshal(resp)
		if err := h.cache.Set(r.Context(), key, string(buf)); err != nil {
			h.log.Warn("quote cache write failed", zap.Error(err))
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) computeQuote(terms loan.Terms) (*QuoteResponse, error) {
	estimate, err := apr.LevelPayment(terms.Principal, terms.AnnualRate, terms.Frequency)
	if err != nil {
		return nil, err
	}
	payment, ledger, err := loan.Refine(terms, estimate)
	if err != nil {
		return nil, err
	}
	full, fraction, err := apr.UnitPeriods(terms.Disbursed, terms.FirstPayment, terms.Frequency)
	if err != nil {
		return nil, err
	}
	result, err := apr.CalculateFinalAPR(
		terms.Principal, payment, terms.Frequency,
		terms.AnnualRate, decimal.NewFromFloat(fraction), full,
	)
	if err != nil && !errors.Is(err, apr.ErrAPRNotConverged) {
		return nil, err
	}

	resp := &QuoteResponse{
		Payment:      payment.InexactFloat64(),
		APR:          result.APR.InexactFloat64(),
		PeriodicRate: result.PeriodicRate.InexactFloat64(),
		Iterations:   result.Iterations,
		Converged:    result.Converged,
		Schedule:     entriesToDTO(ledger.Entries),
	}
	return resp, nil
}

// =============================================================================
// LOANS
// =============================================================================

func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	if req.LoanID == "" {
		h.writeError(w, http.StatusBadRequest, loan.ErrMissingScheduleID)
		return
	}
	terms, err := parseTerms(req.TermsRequest)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}

	estimate, err := apr.LevelPayment(terms.Principal, terms.AnnualRate, terms.Frequency)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	_, ledger, err := loan.Refine(terms, estimate)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if err := ledger.Initialize(); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if err := h.store.SaveSchedule(r.Context(), req.LoanID, ledger); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.log.Info("loan originated",
		zap.String("loan_id", req.LoanID),
		zap.String("frequency", string(terms.Frequency)),
		zap.String("principal", terms.Principal.String()))
	h.writeJSON(w, http.StatusCreated, scheduleResponse(req.LoanID, ledger))
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")
	ledger, err := h.store.LoadSchedule(r.Context(), loanID)
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	if ledger == nil {
		h.writeError(w, http.StatusNotFound, fmt.Errorf("loan %q not found", loanID))
		return
	}
	h.writeJSON(w, http.StatusOK, scheduleResponse(loanID, ledger))
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListLoanIDs(r.Context())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"loan_ids": ids})
}

// =============================================================================
// LEDGER MUTATIONS
// =============================================================================

// mutate runs fn against the loan's ledger under the per-loan lock and
// persists the result. Every mutating endpoint funnels through here.
func (h *Handler) mutate(ctx context.Context, loanID string, fn func(*loan.Ledger) error) (*loan.Ledger, error) {
	lock := h.loanLock(loanID)
	lock.Lock()
	defer lock.Unlock()

	ledger, err := h.store.LoadSchedule(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, fmt.Errorf("loan %q: %w", loanID, errNoSuchLoan)
	}
	if err := fn(ledger); err != nil {
		return nil, err
	}
	if err := h.store.SaveSchedule(ctx, loanID, ledger); err != nil {
		return nil, err
	}
	return ledger, nil
}

var errNoSuchLoan = errors.New("loan not found")

func (h *Handler) PostPayment(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	dueDate, err := apr.ParseDate(req.DueDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	ledger, err := h.mutate(r.Context(), loanID, func(l *loan.Ledger) error {
		return l.ApplyPayment(dueDate, decimal.NewFromFloat(req.Amount))
	})
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.log.Info("payment applied",
		zap.String("loan_id", loanID),
		zap.String("due_date", req.DueDate),
		zap.Float64("amount", req.Amount))
	h.writeJSON(w, http.StatusOK, scheduleResponse(loanID, ledger))
}

func (h *Handler) Accrue(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")
	var req AccrueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	asOf, err := apr.ParseDate(req.AsOf)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	ledger, err := h.mutate(r.Context(), loanID, func(l *loan.Ledger) error {
		return l.AccrueInterest(asOf)
	})
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, scheduleResponse(loanID, ledger))
}

func (h *Handler) ChangeFrequency(w http.ResponseWriter, r *http.Request) {
	loanID := chi.URLParam(r, "loanID")
	var req FrequencyChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	effective, err := apr.ParseDate(req.EffectiveDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	freq, err := apr.ParseFrequency(req.Frequency)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	var newPayment decimal.Decimal
	ledger, err := h.mutate(r.Context(), loanID, func(l *loan.Ledger) error {
		p, err := l.ChangeFrequency(effective, freq)
		if err != nil {
			return err
		}
		newPayment = p
		return nil
	})
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.log.Info("frequency migrated",
		zap.String("loan_id", loanID),
		zap.String("frequency", req.Frequency),
		zap.String("effective", req.EffectiveDate))
	h.writeJSON(w, http.StatusOK, FrequencyChangeResponse{
		Payment:  newPayment.InexactFloat64(),
		Schedule: *scheduleResponse(loanID, ledger),
	})
}

// =============================================================================
// REFERENCE DATA
// =============================================================================

func (h *Handler) ListFrequencies(w http.ResponseWriter, r *http.Request) {
	out := make([]FrequencyDTO, 0, len(apr.AllFrequencies()))
	for _, f := range apr.AllFrequencies() {
		ppy, _ := apr.Periods(f, apr.PerYear)
		total, _ := apr.Periods(f, apr.Total)
		out = append(out, FrequencyDTO{
			Code:           string(f),
			PeriodsPerYear: ppy,
			TotalPeriods:   total,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DueDates(w http.ResponseWriter, r *http.Request) {
	var req DueDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	start, err := apr.ParseDate(req.StartDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	freq, err := apr.ParseFrequency(req.Frequency)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var end *apr.Date
	if req.EndDate != "" {
		e, err := apr.ParseDate(req.EndDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		end = &e
	}

	dates, err := apr.GenerateDueDates(start, freq, req.SkipNonBusinessDays, end, h.store.Calendar())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	resp := DueDatesResponse{Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		resp.Dates = append(resp.Dates, d.String())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func (h *Handler) AddHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("decoding request: %w", err))
		return
	}
	date, err := apr.ParseDate(req.Date)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	id := req.ID
	if id == "" {
		id = "hol-" + req.Date
	}
	if err := h.store.AddHoliday(r.Context(), sqlite.Holiday{ID: id, Date: date, Name: req.Name}); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	h.writeJSON(w, http.StatusCreated, HolidayDTO{ID: id, Date: req.Date, Name: req.Name})
}

func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.store.ListHolidays(r.Context())
	if err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	out := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		out = append(out, HolidayDTO{ID: hol.ID, Date: hol.Date.String(), Name: hol.Name})
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "holidayID")
	if err := h.store.DeleteHoliday(r.Context(), id); err != nil {
		h.writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseTerms(req TermsRequest) (loan.Terms, error) {
	disbursed, err := apr.ParseDate(req.DisbursementDate)
	if err != nil {
		return loan.Terms{}, err
	}
	firstPayment, err := apr.ParseDate(req.FirstPaymentDate)
	if err != nil {
		return loan.Terms{}, err
	}
	freq, err := apr.ParseFrequency(req.Frequency)
	if err != nil {
		return loan.Terms{}, err
	}
	terms := loan.Terms{
		Principal:    decimal.NewFromFloat(req.Principal),
		AnnualRate:   decimal.NewFromFloat(req.AnnualInterestRate),
		Frequency:    freq,
		Disbursed:    disbursed,
		FirstPayment: firstPayment,
	}
	if req.EndDate != "" {
		end, err := apr.ParseDate(req.EndDate)
		if err != nil {
			return loan.Terms{}, err
		}
		terms.End = &end
	}
	if err := terms.Validate(); err != nil {
		return loan.Terms{}, err
	}
	return terms, nil
}

func scheduleResponse(loanID string, l *loan.Ledger) *ScheduleResponse {
	return &ScheduleResponse{
		LoanID:    loanID,
		Frequency: string(l.Frequency),
		Payment:   l.Payment.InexactFloat64(),
		Entries:   entriesToDTO(l.Entries),
	}
}

func entriesToDTO(entries []loan.Entry) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := EntryDTO{
			Num:                e.Num,
			DueDate:            e.DueDate.String(),
			Days:               e.Days,
			DuePayment:         e.DuePayment.InexactFloat64(),
			NewInterest:        e.NewInterest.InexactFloat64(),
			MaturedInterest:    e.MaturedInterest.InexactFloat64(),
			Fees:               e.Fees.InexactFloat64(),
			PaidInterest:       e.PaidInterest.InexactFloat64(),
			UnpaidInterest:     e.UnpaidInterest.InexactFloat64(),
			PaidFees:           e.PaidFees.InexactFloat64(),
			UnpaidFees:         e.UnpaidFees.InexactFloat64(),
			PrincipalReduction: e.PrincipalReduction.InexactFloat64(),
			Balance:            e.Balance.InexactFloat64(),
			AmountPaid:         e.AmountPaid.InexactFloat64(),
		}
		if e.PaidDate != nil {
			dto.PaidDate = e.PaidDate.String()
		}
		out = append(out, dto)
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errNoSuchLoan), loan.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, apr.ErrAPRNotConverged):
		return http.StatusUnprocessableEntity
	case loan.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("encoding response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	h.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
